// Package finalize derives cross-source ratios from the joined table, fills
// undefined values with zero and shapes the published summary.
package finalize

import (
	"math"
	"sort"
	"strconv"

	"dailysummary/internal/aggregate"
	"dailysummary/internal/config"
	"dailysummary/internal/join"
)

// Step derives one or more columns from a joined row.
type Step struct {
	Name   string
	Derive func(r join.Row) map[string]float64
}

// Steps lists every available finalizer step in application order.
func Steps() []Step {
	return []Step{
		{Name: "fill_rate", Derive: func(r join.Row) map[string]float64 {
			return map[string]float64{
				ColFillRateMilk:    ratio(r, aggregate.ColMilkQtyDelivered, aggregate.ColMilkQtyOrdered),
				ColFillRateNonMilk: ratio(r, aggregate.ColNonMilkQtyDelivered, aggregate.ColNonMilkQtyOrdered),
				ColFillRateOverall: ratio(r, aggregate.ColTotalDeliveredQty, aggregate.ColTotalOrderedQty),
			}
		}},
		{Name: "abv", Derive: func(r join.Row) map[string]float64 {
			return map[string]float64{ColABV: ratio(r, aggregate.ColRevenue, aggregate.ColOrdersDelivered)}
		}},
		{Name: "abq", Derive: func(r join.Row) map[string]float64 {
			return map[string]float64{ColABQ: ratio(r, aggregate.ColTotalDeliveredQty, aggregate.ColOrdersDelivered)}
		}},
		{Name: "weight_per_route", Derive: func(r join.Row) map[string]float64 {
			return map[string]float64{ColWeightPerRoute: ratio(r, aggregate.ColTotalWeight, aggregate.ColTotalRoutes)}
		}},
		{Name: "weight_per_order", Derive: func(r join.Row) map[string]float64 {
			return map[string]float64{ColWeightPerOrder: ratio(r, aggregate.ColTotalWeight, aggregate.ColOrdersDelivered)}
		}},
	}
}

// ratio divides two cells of r. Missing operands count as zero and any
// division by zero yields zero.
func ratio(r join.Row, num, den string) float64 {
	return safeDiv(r.Get(num).Value, r.Get(den).Value)
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

// Summary is the published table: Date and Store Name followed by Columns.
type Summary struct {
	Columns []Column
	Rows    []SummaryRow
}

// SummaryRow holds one (date, store) row; Values is aligned with Columns and
// never contains NaN or infinities.
type SummaryRow struct {
	Date   string
	Store  string
	Values []float64
}

// Headers returns the header row.
func (s Summary) Headers() []string {
	h := make([]string, 0, len(s.Columns)+2)
	h = append(h, LabelDate, LabelStore)
	for _, c := range s.Columns {
		h = append(h, c.Label)
	}
	return h
}

// Fields returns the internal field names in header order.
func (s Summary) Fields() []string {
	f := make([]string, 0, len(s.Columns)+2)
	f = append(f, "date", "store_name")
	for _, c := range s.Columns {
		f = append(f, c.Field)
	}
	return f
}

// Records formats every row as text cells in header order.
func (s Summary) Records() [][]string {
	out := make([][]string, 0, len(s.Rows))
	for _, r := range s.Rows {
		rec := make([]string, 0, len(s.Columns)+2)
		rec = append(rec, r.Date, r.Store)
		for i, c := range s.Columns {
			rec = append(rec, FormatValue(c.Kind, r.Values[i]))
		}
		out = append(out, rec)
	}
	return out
}

// FormatValue renders plain decimal text: no exponent, no trailing zeros.
func FormatValue(k Kind, v float64) string {
	if k == KindRatio {
		v = round6(v)
	}
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Finalizer applies the enabled steps and projects the published columns.
type Finalizer struct {
	steps   []Step
	columns []Column
}

func New(cfg *config.Config) *Finalizer {
	f := &Finalizer{columns: Published(cfg)}
	for _, s := range Steps() {
		if cfg.Finalize.StepEnabled(s.Name) {
			f.steps = append(f.steps, s)
		}
	}
	return f
}

// StepNames returns the enabled steps in application order.
func (f *Finalizer) StepNames() []string {
	names := make([]string, 0, len(f.steps))
	for _, s := range f.steps {
		names = append(names, s.Name)
	}
	return names
}

// Apply derives ratios, fills every undefined value with zero and projects
// the published columns. The joined table is left untouched.
func (f *Finalizer) Apply(t join.Table) Summary {
	out := Summary{Columns: f.columns, Rows: make([]SummaryRow, 0, len(t.Rows))}
	for _, r := range t.Rows {
		derived := map[string]float64{}
		for _, s := range f.steps {
			for c, v := range s.Derive(r) {
				derived[c] = v
			}
		}
		vals := make([]float64, len(f.columns))
		for i, c := range f.columns {
			v, ok := derived[c.Field]
			if !ok {
				v = fill(r.Get(c.Field))
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			vals[i] = v
		}
		out.Rows = append(out.Rows, SummaryRow{Date: r.Key.Date, Store: r.Key.Store, Values: vals})
	}
	sortRows(out.Rows)
	return out
}

func fill(c aggregate.Cell) float64 {
	if !c.Valid {
		return 0
	}
	return c.Value
}

func sortRows(rows []SummaryRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].Store < rows[j].Store
	})
}
