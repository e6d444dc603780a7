// Package aggregate reduces normalized records to one row per (date, store).
// Every reducer is commutative, so the result does not depend on input order.
package aggregate

import (
	"fmt"

	"dailysummary/internal/config"
	"dailysummary/internal/normalize"

	"github.com/shopspring/decimal"
)

// Internal column names. The finalizer maps these to published labels.
const (
	ColUniqueCustomers     = "unique_customers"
	ColTotalOrders         = "total_orders"
	ColOrdersDelivered     = "orders_delivered"
	ColSubOrders           = "sub_orders"
	ColTopupOrders         = "topup_orders"
	ColOrdersUndelivered   = "orders_undelivered"
	ColCancelledByCustomer = "cancelled_by_cx"
	ColUndeliveredOOS      = "undelivered_oos"
	ColTotalOrderedQty     = "total_ordered_qty"
	ColSubQty              = "sub_qty"
	ColMilkQtyOrdered      = "milk_qty_ordered"
	ColNonMilkQtyOrdered   = "nonmilk_qty_ordered"
	ColTopupQty            = "topup_qty"
	ColMilkQtyDelivered    = "milk_qty_delivered"
	ColNonMilkQtyDelivered = "nonmilk_qty_delivered"
	ColTotalDeliveredQty   = "total_delivered_qty"

	ColSoldQty = "sold_qty"
	ColRevenue = "revenue"

	ColTotalRoutes   = "total_routes"
	ColCEECount      = "cee_count"
	ColTotalWeight   = "total_weight"
	ColDeliveryCount = "delivery_count"

	ColOTA      = "ota_perc"
	ColArrivals = "arrival_count"

	ColPickingOnTime = "picking_on_time"
	ColRODQty        = "rod_qty"

	ColSocietiesMigrated = "societies_migrated"
)

// OTDColumn names the on-time-delivery ratio column for a cutoff.
func OTDColumn(c config.ClockTime) string { return "otd_" + c.Key() }

func dec(d decimal.Decimal) Cell { return Num(d.InexactFloat64()) }

func count(n int) Cell { return Num(float64(n)) }

type set map[string]struct{}

func (s set) add(v string) {
	if v != "" {
		s[v] = struct{}{}
	}
}

type orderAcc struct {
	members, all, delivered, sub, topup, cx, oos set

	orderedQty, subQty, topupQty    decimal.Decimal
	milkOrdered, nonMilkOrdered     decimal.Decimal
	milkDelivered, nonMilkDelivered decimal.Decimal
	deliveredQty                    decimal.Decimal
}

func newOrderAcc() *orderAcc {
	return &orderAcc{
		members: set{}, all: set{}, delivered: set{}, sub: set{}, topup: set{}, cx: set{}, oos: set{},
	}
}

// Orders builds the primary frame. Order counts are distinct order ids; a
// record without an id counts as its own order.
func Orders(recs []normalize.Order) (Frame, Stats) {
	st := Stats{Source: config.SourceOrders, Records: len(recs)}
	groups := map[Key]*orderAcc{}
	for i, o := range recs {
		if o.Date == "" || o.Store == "" {
			st.Dropped++
			continue
		}
		k := Key{Date: o.Date, Store: o.Store}
		acc, ok := groups[k]
		if !ok {
			acc = newOrderAcc()
			groups[k] = acc
		}
		id := o.OrderID
		if id == "" {
			id = fmt.Sprintf("#row-%d", i)
		}
		acc.members.add(o.MemberID)
		acc.all.add(id)
		if o.IsDelivered {
			acc.delivered.add(id)
		}
		if o.IsSubscription {
			acc.sub.add(id)
			acc.subQty = acc.subQty.Add(o.OrderedQty)
		}
		if o.IsTopup {
			acc.topup.add(id)
			acc.topupQty = acc.topupQty.Add(o.OrderedQty)
		}
		if o.IsCancelledByCustomer {
			acc.cx.add(id)
		}
		if o.IsCancelledOOS {
			acc.oos.add(id)
		}
		acc.orderedQty = acc.orderedQty.Add(o.OrderedQty)
		acc.deliveredQty = acc.deliveredQty.Add(o.DeliveredQty)
		switch {
		case o.IsMilk:
			acc.milkOrdered = acc.milkOrdered.Add(o.OrderedQty)
			acc.milkDelivered = acc.milkDelivered.Add(o.DeliveredQty)
		case o.IsNonMilk:
			acc.nonMilkOrdered = acc.nonMilkOrdered.Add(o.OrderedQty)
			acc.nonMilkDelivered = acc.nonMilkDelivered.Add(o.DeliveredQty)
		}
	}

	f := Frame{Source: config.SourceOrders, Columns: []string{
		ColUniqueCustomers, ColTotalOrders, ColOrdersDelivered, ColSubOrders, ColTopupOrders,
		ColOrdersUndelivered, ColCancelledByCustomer, ColUndeliveredOOS,
		ColTotalOrderedQty, ColSubQty, ColMilkQtyOrdered, ColNonMilkQtyOrdered, ColTopupQty,
		ColMilkQtyDelivered, ColNonMilkQtyDelivered, ColTotalDeliveredQty,
	}}
	for _, k := range sortedKeys(groups) {
		a := groups[k]
		f.Rows = append(f.Rows, Row{Key: k, Cells: []Cell{
			count(len(a.members)),
			count(len(a.all)),
			count(len(a.delivered)),
			count(len(a.sub)),
			count(len(a.topup)),
			count(len(a.all) - len(a.delivered)),
			count(len(a.cx)),
			count(len(a.oos)),
			dec(a.orderedQty),
			dec(a.subQty),
			dec(a.milkOrdered),
			dec(a.nonMilkOrdered),
			dec(a.topupQty),
			dec(a.milkDelivered),
			dec(a.nonMilkDelivered),
			dec(a.deliveredQty),
		}})
	}
	st.Groups = f.Len()
	return f, st
}

type salesAcc struct {
	qty, amount decimal.Decimal
}

func Sales(recs []normalize.Sale) (Frame, Stats) {
	st := Stats{Source: config.SourceSales, Records: len(recs)}
	groups := map[Key]*salesAcc{}
	for _, s := range recs {
		if s.Date == "" || s.Store == "" {
			st.Dropped++
			continue
		}
		k := Key{Date: s.Date, Store: s.Store}
		acc, ok := groups[k]
		if !ok {
			acc = &salesAcc{}
			groups[k] = acc
		}
		acc.qty = acc.qty.Add(s.Quantity)
		acc.amount = acc.amount.Add(s.Amount)
	}
	f := Frame{Source: config.SourceSales, Columns: []string{ColSoldQty, ColRevenue}}
	for _, k := range sortedKeys(groups) {
		a := groups[k]
		f.Rows = append(f.Rows, Row{Key: k, Cells: []Cell{dec(a.qty), dec(a.amount)}})
	}
	st.Groups = f.Len()
	return f, st
}

type deliveryAcc struct {
	otd    []Ratio
	routes set
	cees   set
	weight decimal.Decimal
	n      int
}

// Deliveries groups on the delivery timestamp's date, so records without a
// parsable timestamp fall out of every metric, the OTD denominators included.
func Deliveries(recs []normalize.Delivery, cutoffs []config.ClockTime) (Frame, Stats) {
	st := Stats{Source: config.SourceDelivery, Records: len(recs)}
	groups := map[Key]*deliveryAcc{}
	for _, d := range recs {
		if !d.HasTimestamp || d.Date == "" || d.Store == "" {
			st.Dropped++
			continue
		}
		k := Key{Date: d.Date, Store: d.Store}
		acc, ok := groups[k]
		if !ok {
			acc = &deliveryAcc{otd: make([]Ratio, len(cutoffs)), routes: set{}, cees: set{}}
			groups[k] = acc
		}
		for i := range cutoffs {
			acc.otd[i].Observe(i < len(d.OnTime) && d.OnTime[i])
		}
		acc.routes.add(d.RouteID)
		acc.cees.add(d.CEEID)
		acc.weight = acc.weight.Add(d.Weight)
		acc.n++
	}
	cols := make([]string, 0, len(cutoffs)+4)
	for _, c := range cutoffs {
		cols = append(cols, OTDColumn(c))
	}
	cols = append(cols, ColTotalRoutes, ColCEECount, ColTotalWeight, ColDeliveryCount)
	f := Frame{Source: config.SourceDelivery, Columns: cols}
	for _, k := range sortedKeys(groups) {
		a := groups[k]
		cells := make([]Cell, 0, len(cols))
		for _, r := range a.otd {
			cells = append(cells, r.Cell())
		}
		cells = append(cells, count(len(a.routes)), count(len(a.cees)), dec(a.weight), count(a.n))
		f.Rows = append(f.Rows, Row{Key: k, Cells: cells})
	}
	st.Groups = f.Len()
	return f, st
}

type arrivalAcc struct {
	ota Ratio
	n   int
}

// Arrivals reports the share of arrivals with a known time that made the
// cutoff. A group whose arrivals all lack a time reports Null.
func Arrivals(recs []normalize.Arrival) (Frame, Stats) {
	st := Stats{Source: config.SourceArrival, Records: len(recs)}
	groups := map[Key]*arrivalAcc{}
	for _, a := range recs {
		if a.Date == "" || a.Store == "" {
			st.Dropped++
			continue
		}
		k := Key{Date: a.Date, Store: a.Store}
		acc, ok := groups[k]
		if !ok {
			acc = &arrivalAcc{}
			groups[k] = acc
		}
		acc.n++
		if a.HasTime {
			acc.ota.Observe(a.OnTime)
		}
	}
	f := Frame{Source: config.SourceArrival, Columns: []string{ColOTA, ColArrivals}}
	for _, k := range sortedKeys(groups) {
		a := groups[k]
		f.Rows = append(f.Rows, Row{Key: k, Cells: []Cell{a.ota.Cell(), count(a.n)}})
	}
	st.Groups = f.Len()
	return f, st
}

type pickAcc struct {
	onTime int
	rod    decimal.Decimal
}

// Picks counts on-time binned records and sums the picked quantity of
// return-on-delivery records, both filtered within the group.
func Picks(recs []normalize.Pick) (Frame, Stats) {
	st := Stats{Source: config.SourcePicking, Records: len(recs)}
	groups := map[Key]*pickAcc{}
	for _, p := range recs {
		if p.Date == "" || p.Store == "" {
			st.Dropped++
			continue
		}
		k := Key{Date: p.Date, Store: p.Store}
		acc, ok := groups[k]
		if !ok {
			acc = &pickAcc{}
			groups[k] = acc
		}
		if p.OnTime {
			acc.onTime++
		}
		if p.IsROD {
			acc.rod = acc.rod.Add(p.PickedQty)
		}
	}
	f := Frame{Source: config.SourcePicking, Columns: []string{ColPickingOnTime, ColRODQty}}
	for _, k := range sortedKeys(groups) {
		a := groups[k]
		f.Rows = append(f.Rows, Row{Key: k, Cells: []Cell{count(a.onTime), dec(a.rod)}})
	}
	st.Groups = f.Len()
	return f, st
}

// Societies produces a store-keyed frame counting migrated societies.
func Societies(recs []normalize.Society) (Frame, Stats) {
	st := Stats{Source: config.SourceSocieties, Records: len(recs)}
	groups := map[Key]int{}
	for _, s := range recs {
		if s.Store == "" {
			st.Dropped++
			continue
		}
		k := Key{Store: s.Store}
		n := groups[k]
		if s.IsMigrated {
			n++
		}
		groups[k] = n
	}
	f := Frame{Source: config.SourceSocieties, ByStore: true, Columns: []string{ColSocietiesMigrated}}
	for _, k := range sortedKeys(groups) {
		f.Rows = append(f.Rows, Row{Key: k, Cells: []Cell{count(groups[k])}})
	}
	st.Groups = f.Len()
	return f, st
}
