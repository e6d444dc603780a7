// Package normalize coerces raw report records into typed records and derives
// the per-record flags the aggregator counts. It holds no cross-record logic.
package normalize

import (
	"fmt"
	"regexp"
	"time"

	"dailysummary/internal/config"
	"dailysummary/internal/table"

	"github.com/shopspring/decimal"
)

// MissingColumnError reports a table that lacks a column the source schema
// needs to key its records.
type MissingColumnError struct {
	Source  string
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("source %s: none of the columns %q present", e.Source, e.Columns)
}

// Order is one line of the orders report. Date is "" when the delivery date
// could not be parsed.
type Order struct {
	Date               string
	Store              string
	OrderID            string
	MemberID           string
	Status             string
	Type               string
	Class              string
	CancellationReason string
	OrderedQty         decimal.Decimal
	DeliveredQty       decimal.Decimal

	IsDelivered           bool
	IsSubscription        bool
	IsTopup               bool
	IsMilk                bool
	IsNonMilk             bool
	IsCancelledOOS        bool
	IsCancelledByCustomer bool
}

// Sale is one SKU line of the sales report. Amount is the line revenue.
type Sale struct {
	Date     string
	Store    string
	Class    string
	Quantity decimal.Decimal
	Amount   decimal.Decimal
	IsMilk   bool
}

// Delivery is one last-mile delivery event. OnTime holds one flag per
// configured delivery cutoff, in configuration order.
type Delivery struct {
	Date         string
	Store        string
	DeliveredAt  time.Time
	HasTimestamp bool
	RouteID      string
	CEEID        string
	Status       string
	Weight       decimal.Decimal
	OnTime       []bool
}

// Arrival is one truck arrival at a store. HasTime is false when the
// arrival clock could not be read, and OnTime is then false.
type Arrival struct {
	Date      string
	Store     string
	ArrivedAt time.Duration
	HasTime   bool
	OnTime    bool
}

// Pick is one picked order line. IsROD marks a return-on-delivery status.
type Pick struct {
	Date      string
	Store     string
	BinnedAt  time.Duration
	HasBinned bool
	Status    string
	PickedQty decimal.Decimal
	OnTime    bool
	IsROD     bool
}

// Society is one row of the undated migrated-societies reference.
type Society struct {
	Store      string
	Status     string
	IsMigrated bool
}

// Normalizer turns raw tables into typed records using the categorical
// labels and cutoffs from the configuration.
type Normalizer struct {
	cats       config.CategoriesConfig
	thresholds config.ThresholdsConfig
	oos        *regexp.Regexp
	customer   *regexp.Regexp
}

// New compiles the cancellation-reason patterns once for all sources.
func New(cfg *config.Config) *Normalizer {
	return &Normalizer{
		cats:       cfg.Categories,
		thresholds: cfg.Thresholds,
		oos:        patternMatcher(cfg.Categories.OOSPatterns),
		customer:   patternMatcher(cfg.Categories.CustomerCancelPatterns),
	}
}

// keyed resolves the store and date columns shared by every dated source.
func keyed(name string, t table.Table, src config.SourceConfig, dated bool) (string, error) {
	storeCol, ok := src.ResolveStoreColumn(t.Headers)
	if !ok {
		return "", &MissingColumnError{Source: name, Columns: src.StoreColumns}
	}
	if dated && !t.HasColumn(src.DateColumn) {
		return "", &MissingColumnError{Source: name, Columns: []string{src.DateColumn}}
	}
	return storeCol, nil
}

// Orders derives the delivery, order type, product class and cancellation
// flags of each order line.
func (n *Normalizer) Orders(t table.Table, src config.SourceConfig) ([]Order, error) {
	storeCol, err := keyed(config.SourceOrders, t, src, true)
	if err != nil {
		return nil, err
	}
	out := make([]Order, 0, len(t.Rows))
	for _, row := range t.Rows {
		o := Order{
			Date:               ParseDate(row[src.DateColumn], src.DayFirst),
			Store:              Text(row[storeCol]),
			OrderID:            Text(row[src.Column("order_id")]),
			MemberID:           Text(row[src.Column("member_id")]),
			Status:             Text(row[src.Column("order_status")]),
			Type:               Text(row[src.Column("order_type")]),
			Class:              Text(row[src.Column("product_class")]),
			CancellationReason: Text(row[src.Column("cancellation_reason")]),
			OrderedQty:         Quantity(row[src.Column("ordered_quantity")]),
			DeliveredQty:       Quantity(row[src.Column("delivered_quantity")]),
		}
		o.IsDelivered = matchesAny(o.Status, n.cats.DeliveredStatuses)
		o.IsSubscription = matchesAny(o.Type, n.cats.SubscriptionTypes)
		o.IsTopup = matchesAny(o.Type, n.cats.TopupTypes)
		o.IsMilk = matchesAny(o.Class, n.cats.MilkClasses)
		o.IsNonMilk = matchesAny(o.Class, n.cats.NonMilkClasses)
		if !o.IsDelivered && o.CancellationReason != "" {
			o.IsCancelledOOS = n.oos != nil && n.oos.MatchString(o.CancellationReason)
			o.IsCancelledByCustomer = n.customer != nil && n.customer.MatchString(o.CancellationReason)
		}
		out = append(out, o)
	}
	return out, nil
}

// Sales coerces quantity and amount and flags milk lines.
func (n *Normalizer) Sales(t table.Table, src config.SourceConfig) ([]Sale, error) {
	storeCol, err := keyed(config.SourceSales, t, src, true)
	if err != nil {
		return nil, err
	}
	out := make([]Sale, 0, len(t.Rows))
	for _, row := range t.Rows {
		s := Sale{
			Date:     ParseDate(row[src.DateColumn], src.DayFirst),
			Store:    Text(row[storeCol]),
			Class:    Text(row[src.Column("product_class")]),
			Quantity: Quantity(row[src.Column("quantity")]),
			Amount:   Quantity(row[src.Column("sales_amount")]),
		}
		s.IsMilk = matchesAny(s.Class, n.cats.MilkClasses)
		out = append(out, s)
	}
	return out, nil
}

// Deliveries keys each record by the calendar date of its delivery
// timestamp. An unparsable timestamp leaves Date empty and every OnTime flag
// false.
func (n *Normalizer) Deliveries(t table.Table, src config.SourceConfig) ([]Delivery, error) {
	storeCol, err := keyed(config.SourceDelivery, t, src, true)
	if err != nil {
		return nil, err
	}
	out := make([]Delivery, 0, len(t.Rows))
	for _, row := range t.Rows {
		d := Delivery{
			Store:   Text(row[storeCol]),
			RouteID: Text(row[src.Column("route_id")]),
			CEEID:   Text(row[src.Column("cee_id")]),
			Status:  Text(row[src.Column("order_status")]),
			Weight:  Quantity(row[src.Column("weight")]),
			OnTime:  make([]bool, len(n.thresholds.Delivery)),
		}
		if ts, ok := ParseTimestamp(row[src.DateColumn], src.DayFirst); ok {
			d.DeliveredAt = ts
			d.HasTimestamp = true
			d.Date = ts.Format(DateLayout)
			tod := TimeOfDay(ts)
			for i, cutoff := range n.thresholds.Delivery {
				d.OnTime[i] = before(tod, cutoff, false)
			}
		}
		out = append(out, d)
	}
	return out, nil
}

// Arrivals reads the arrival clock from the time column, or from the date
// column when it carries a full timestamp and no separate time is present.
func (n *Normalizer) Arrivals(t table.Table, src config.SourceConfig) ([]Arrival, error) {
	storeCol, err := keyed(config.SourceArrival, t, src, true)
	if err != nil {
		return nil, err
	}
	timeCol := src.Column("arrival_time")
	out := make([]Arrival, 0, len(t.Rows))
	for _, row := range t.Rows {
		a := Arrival{
			Date:  ParseDate(row[src.DateColumn], src.DayFirst),
			Store: Text(row[storeCol]),
		}
		raw := row[timeCol]
		if Text(raw) == "" && !t.HasColumn(timeCol) {
			raw = row[src.DateColumn]
		}
		if tod, ok := ParseClock(raw, src.DayFirst); ok {
			a.ArrivedAt = tod
			a.HasTime = true
			a.OnTime = before(tod, n.thresholds.Arrival, n.thresholds.ArrivalInclusive)
		}
		out = append(out, a)
	}
	return out, nil
}

// Picks compares each binned time against the picking cutoff.
func (n *Normalizer) Picks(t table.Table, src config.SourceConfig) ([]Pick, error) {
	storeCol, err := keyed(config.SourcePicking, t, src, true)
	if err != nil {
		return nil, err
	}
	out := make([]Pick, 0, len(t.Rows))
	for _, row := range t.Rows {
		p := Pick{
			Date:      ParseDate(row[src.DateColumn], src.DayFirst),
			Store:     Text(row[storeCol]),
			Status:    Text(row[src.Column("order_status")]),
			PickedQty: Quantity(row[src.Column("picked_quantity")]),
		}
		p.IsROD = matchesAny(p.Status, n.cats.RODStatuses)
		if tod, ok := ParseClock(row[src.Column("binned_at")], src.DayFirst); ok {
			p.BinnedAt = tod
			p.HasBinned = true
			p.OnTime = before(tod, n.thresholds.Picking, n.thresholds.PickingInclusive)
		}
		out = append(out, p)
	}
	return out, nil
}

// Societies needs only a store column; the reference carries no date.
func (n *Normalizer) Societies(t table.Table, src config.SourceConfig) ([]Society, error) {
	storeCol, err := keyed(config.SourceSocieties, t, src, false)
	if err != nil {
		return nil, err
	}
	out := make([]Society, 0, len(t.Rows))
	for _, row := range t.Rows {
		s := Society{
			Store:  Text(row[storeCol]),
			Status: Text(row[src.Column("migration_status")]),
		}
		s.IsMigrated = matchesAny(s.Status, n.cats.MigratedStatuses)
		out = append(out, s)
	}
	return out, nil
}

// before reports whether tod falls before the cutoff, or at it when inclusive.
func before(tod time.Duration, cutoff config.ClockTime, inclusive bool) bool {
	c := time.Duration(cutoff.Seconds()) * time.Second
	if inclusive {
		return tod <= c
	}
	return tod < c
}
