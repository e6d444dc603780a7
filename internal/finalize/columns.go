package finalize

import (
	"fmt"

	"dailysummary/internal/aggregate"
	"dailysummary/internal/config"
)

// Derived column names produced by the finalizer steps.
const (
	ColABV             = "abv"
	ColABQ             = "abq"
	ColFillRateMilk    = "fill_rate_milk"
	ColFillRateNonMilk = "fill_rate_nonmilk"
	ColFillRateOverall = "fill_rate_overall"
	ColWeightPerRoute  = "weight_per_route"
	ColWeightPerOrder  = "weight_per_order"
)

// Kind selects how a metric is formatted.
type Kind int

const (
	KindCount Kind = iota
	KindQuantity
	KindRatio
	KindMoney
)

// Column maps an internal field to its published label.
type Column struct {
	Field string
	Label string
	Kind  Kind
}

const (
	LabelDate  = "Date"
	LabelStore = "Store Name"
)

// extraLabels names internal fields that can be appended via
// output.extra_columns.
var extraLabels = map[string]Column{
	aggregate.ColCEECount:          {Field: aggregate.ColCEECount, Label: "CEE Count (Unique)", Kind: KindCount},
	aggregate.ColSoldQty:           {Field: aggregate.ColSoldQty, Label: "Sold Quantity", Kind: KindQuantity},
	aggregate.ColTotalWeight:       {Field: aggregate.ColTotalWeight, Label: "Total Weight", Kind: KindQuantity},
	aggregate.ColDeliveryCount:     {Field: aggregate.ColDeliveryCount, Label: "Deliveries", Kind: KindCount},
	aggregate.ColArrivals:          {Field: aggregate.ColArrivals, Label: "Truck Arrivals", Kind: KindCount},
	aggregate.ColTotalDeliveredQty: {Field: aggregate.ColTotalDeliveredQty, Label: "Total Delivered Quantity", Kind: KindQuantity},
}

// Published returns the metric columns in their fixed output order. Date and
// Store Name always precede them.
func Published(cfg *config.Config) []Column {
	cols := []Column{
		{aggregate.ColUniqueCustomers, "Total Ordered Customers (Unique)", KindCount},
		{aggregate.ColTotalOrders, "Total Orders", KindCount},
		{aggregate.ColOrdersDelivered, "Orders Delivered", KindCount},
		{aggregate.ColSubOrders, "Subscription Orders", KindCount},
		{aggregate.ColTopupOrders, "Top-up Orders", KindCount},
		{aggregate.ColOrdersUndelivered, "Orders Undelivered", KindCount},
		{aggregate.ColCancelledByCustomer, "Cancelled Orders by Customer", KindCount},
		{aggregate.ColUndeliveredOOS, "Undelivered Orders Due to OOS", KindCount},
		{aggregate.ColTotalOrderedQty, "Total Ordered Quantity", KindQuantity},
		{aggregate.ColSubQty, "Subscription Quantity", KindQuantity},
		{aggregate.ColMilkQtyOrdered, "Milk Quantity (Ordered)", KindQuantity},
		{aggregate.ColNonMilkQtyOrdered, "Non-Milk Quantity (Ordered)", KindQuantity},
		{aggregate.ColTopupQty, "Topup Quantity", KindQuantity},
		{aggregate.ColMilkQtyDelivered, "Milk Quantity (Delivered)", KindQuantity},
		{aggregate.ColNonMilkQtyDelivered, "Non-Milk Quantity (Delivered)", KindQuantity},
	}
	for _, c := range cfg.Thresholds.Delivery {
		cols = append(cols, Column{aggregate.OTDColumn(c), fmt.Sprintf("On-Time Delivery (Before %s)", c.Label()), KindRatio})
	}
	cols = append(cols,
		Column{ColABV, "ABV", KindRatio},
		Column{ColABQ, "ABQ", KindRatio},
		Column{ColFillRateMilk, "Fill Rate – Milk", KindRatio},
		Column{ColFillRateNonMilk, "Fill Rate – Non-Milk", KindRatio},
		Column{ColFillRateOverall, "Overall Fill Rate", KindRatio},
		Column{aggregate.ColRevenue, "Sale(₹)", KindMoney},
		Column{aggregate.ColTotalRoutes, "Total Routes", KindCount},
		Column{ColWeightPerRoute, "Weight/Route", KindRatio},
		Column{ColWeightPerOrder, "Weight/Order", KindRatio},
		Column{aggregate.ColSocietiesMigrated, "Societies Migrated", KindCount},
		Column{aggregate.ColPickingOnTime, fmt.Sprintf("On Time Picking (Before %s)", hourLabel(cfg.Thresholds.Picking)), KindCount},
		Column{aggregate.ColRODQty, "ROD Quantity", KindQuantity},
		Column{aggregate.ColOTA, fmt.Sprintf("On Time Arrival (%s)", paddedLabel(cfg.Thresholds.Arrival)), KindRatio},
	)
	for _, field := range cfg.Output.ExtraColumns {
		if c, ok := extraLabels[field]; ok {
			cols = append(cols, c)
			continue
		}
		cols = append(cols, Column{Field: field, Label: field, Kind: KindQuantity})
	}
	return cols
}

// hourLabel renders "4 AM" for whole hours and "4:30 AM" otherwise.
func hourLabel(c config.ClockTime) string {
	if c.Minute == 0 && c.Second == 0 {
		l := c.Label()
		return l[:len(l)-6] + l[len(l)-3:]
	}
	return c.Label()
}

// paddedLabel renders "03:00 AM".
func paddedLabel(c config.ClockTime) string {
	l := c.Label()
	if len(l) == len("3:00 AM") {
		return "0" + l
	}
	return l
}
