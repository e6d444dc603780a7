package finalize

import (
	"math"
	"testing"

	"dailysummary/internal/aggregate"
	"dailysummary/internal/config"
	"dailysummary/internal/join"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valueOf(t *testing.T, s Summary, row int, label string) float64 {
	t.Helper()
	for i, c := range s.Columns {
		if c.Label == label {
			return s.Rows[row].Values[i]
		}
	}
	t.Fatalf("no column %q", label)
	return 0
}

func TestPublishedHeaderOrder(t *testing.T) {
	s := Summary{Columns: Published(config.Defaults())}
	want := []string{
		"Date", "Store Name", "Total Ordered Customers (Unique)", "Total Orders", "Orders Delivered",
		"Subscription Orders", "Top-up Orders", "Orders Undelivered", "Cancelled Orders by Customer",
		"Undelivered Orders Due to OOS", "Total Ordered Quantity", "Subscription Quantity",
		"Milk Quantity (Ordered)", "Non-Milk Quantity (Ordered)", "Topup Quantity",
		"Milk Quantity (Delivered)", "Non-Milk Quantity (Delivered)",
		"On-Time Delivery (Before 7:00 AM)", "On-Time Delivery (Before 7:30 AM)", "On-Time Delivery (Before 8:00 AM)",
		"ABV", "ABQ", "Fill Rate – Milk", "Fill Rate – Non-Milk", "Overall Fill Rate", "Sale(₹)",
		"Total Routes", "Weight/Route", "Weight/Order", "Societies Migrated",
		"On Time Picking (Before 4 AM)", "ROD Quantity", "On Time Arrival (03:00 AM)",
	}
	assert.Equal(t, want, s.Headers())
}

func TestExtraColumnsAppended(t *testing.T) {
	cfg := config.Defaults()
	cfg.Output.ExtraColumns = []string{aggregate.ColCEECount, "custom_field"}
	cols := Published(cfg)
	require.GreaterOrEqual(t, len(cols), 2)
	assert.Equal(t, "CEE Count (Unique)", cols[len(cols)-2].Label)
	assert.Equal(t, "custom_field", cols[len(cols)-1].Label)
}

func joined(cells map[string]aggregate.Cell, k aggregate.Key) join.Table {
	cols := make([]string, 0, len(cells))
	for c := range cells {
		cols = append(cols, c)
	}
	return join.Table{Columns: cols, Rows: []join.Row{{Key: k, Cells: cells}}}
}

func TestApplyDerivesRatios(t *testing.T) {
	k := aggregate.Key{Date: "2024-01-01", Store: "A"}
	tbl := joined(map[string]aggregate.Cell{
		aggregate.ColTotalOrders:         aggregate.Num(4),
		aggregate.ColOrdersDelivered:     aggregate.Num(2),
		aggregate.ColMilkQtyOrdered:      aggregate.Num(10),
		aggregate.ColMilkQtyDelivered:    aggregate.Num(8),
		aggregate.ColNonMilkQtyOrdered:   aggregate.Num(0),
		aggregate.ColNonMilkQtyDelivered: aggregate.Num(0),
		aggregate.ColTotalOrderedQty:     aggregate.Num(10),
		aggregate.ColTotalDeliveredQty:   aggregate.Num(8),
		aggregate.ColRevenue:             aggregate.Num(250),
		aggregate.ColTotalWeight:         aggregate.Num(30),
		aggregate.ColTotalRoutes:         aggregate.Num(3),
	}, k)

	s := New(config.Defaults()).Apply(tbl)
	require.Len(t, s.Rows, 1)
	assert.Equal(t, 0.8, valueOf(t, s, 0, "Fill Rate – Milk"))
	assert.Equal(t, 0.0, valueOf(t, s, 0, "Fill Rate – Non-Milk"))
	assert.Equal(t, 0.8, valueOf(t, s, 0, "Overall Fill Rate"))
	assert.Equal(t, 125.0, valueOf(t, s, 0, "ABV"))
	assert.Equal(t, 4.0, valueOf(t, s, 0, "ABQ"))
	assert.Equal(t, 10.0, valueOf(t, s, 0, "Weight/Route"))
	assert.Equal(t, 15.0, valueOf(t, s, 0, "Weight/Order"))
}

func TestApplyFillsMissingWithZero(t *testing.T) {
	k := aggregate.Key{Date: "2024-01-01", Store: "A"}
	tbl := joined(map[string]aggregate.Cell{
		aggregate.ColTotalOrders:     aggregate.Num(1),
		aggregate.ColOrdersDelivered: aggregate.Num(0),
		aggregate.ColOTA:             aggregate.Null,
		aggregate.ColRevenue:         aggregate.Num(math.NaN()),
	}, k)

	s := New(config.Defaults()).Apply(tbl)
	for i, v := range s.Rows[0].Values {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), s.Columns[i].Label)
	}
	assert.Equal(t, 0.0, valueOf(t, s, 0, "Sale(₹)"))
	assert.Equal(t, 0.0, valueOf(t, s, 0, "ABV"))
	assert.Equal(t, 0.0, valueOf(t, s, 0, "On Time Arrival (03:00 AM)"))
	assert.Equal(t, 1.0, valueOf(t, s, 0, "Total Orders"))
}

func TestDisabledStepStillPublishesZeroColumn(t *testing.T) {
	cfg := config.Defaults()
	cfg.Finalize.Steps = []string{"abv"}
	k := aggregate.Key{Date: "2024-01-01", Store: "A"}
	tbl := joined(map[string]aggregate.Cell{
		aggregate.ColOrdersDelivered: aggregate.Num(2),
		aggregate.ColRevenue:         aggregate.Num(10),
		aggregate.ColTotalWeight:     aggregate.Num(30),
		aggregate.ColTotalRoutes:     aggregate.Num(3),
	}, k)

	f := New(cfg)
	assert.Equal(t, []string{"abv"}, f.StepNames())
	s := f.Apply(tbl)
	assert.Equal(t, 5.0, valueOf(t, s, 0, "ABV"))
	assert.Equal(t, 0.0, valueOf(t, s, 0, "Weight/Route"))
}

func TestFillRateAboveOneIsKept(t *testing.T) {
	k := aggregate.Key{Date: "2024-01-01", Store: "A"}
	tbl := joined(map[string]aggregate.Cell{
		aggregate.ColTotalOrderedQty:   aggregate.Num(2),
		aggregate.ColTotalDeliveredQty: aggregate.Num(3),
	}, k)
	s := New(config.Defaults()).Apply(tbl)
	assert.Equal(t, 1.5, valueOf(t, s, 0, "Overall Fill Rate"))
}

func TestRecordsFormatting(t *testing.T) {
	s := Summary{
		Columns: []Column{
			{Field: "a", Label: "A", Kind: KindCount},
			{Field: "b", Label: "B", Kind: KindRatio},
			{Field: "c", Label: "C", Kind: KindMoney},
			{Field: "d", Label: "D", Kind: KindQuantity},
		},
		Rows: []SummaryRow{{Date: "2024-01-01", Store: "A", Values: []float64{12, 2.0 / 3.0, 1234.5, 1e21}}},
	}
	assert.Equal(t, [][]string{{"2024-01-01", "A", "12", "0.666667", "1234.5", "1000000000000000000000"}}, s.Records())
	assert.Equal(t, "0", FormatValue(KindRatio, math.Copysign(0, -1)))
}

func TestApplySortsRows(t *testing.T) {
	tbl := join.Table{Rows: []join.Row{
		{Key: aggregate.Key{Date: "2024-01-02", Store: "A"}},
		{Key: aggregate.Key{Date: "2024-01-01", Store: "B"}},
		{Key: aggregate.Key{Date: "2024-01-01", Store: "A"}},
	}}
	s := New(config.Defaults()).Apply(tbl)
	var got []string
	for _, r := range s.Rows {
		got = append(got, r.Date+"|"+r.Store)
	}
	assert.Equal(t, []string{"2024-01-01|A", "2024-01-01|B", "2024-01-02|A"}, got)
}

func TestPublishedFieldsAreReservedFromExtraColumns(t *testing.T) {
	s := Summary{Columns: Published(config.Defaults())}
	for _, f := range s.Fields() {
		cfg := config.Defaults()
		cfg.Output.ExtraColumns = []string{f}
		assert.Error(t, cfg.Validate(), f)
	}
}

func TestCutoffsDifferingInSecondsPublishSeparately(t *testing.T) {
	cfg := config.Defaults()
	cfg.Thresholds.Delivery = []config.ClockTime{{Hour: 6, Minute: 30}, {Hour: 6, Minute: 30, Second: 30}}
	require.NoError(t, cfg.Validate())

	s := Summary{Columns: Published(cfg)}
	seen := map[string]bool{}
	for _, f := range s.Fields() {
		assert.False(t, seen[f], "duplicate field %s", f)
		seen[f] = true
	}
	headers := s.Headers()
	assert.Contains(t, headers, "On-Time Delivery (Before 6:30 AM)")
	assert.Contains(t, headers, "On-Time Delivery (Before 6:30:30 AM)")
}
