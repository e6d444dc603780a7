package normalize

import (
	"strings"
	"testing"
	"time"

	"dailysummary/internal/config"
	"dailysummary/internal/table"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTable(t *testing.T, body string) table.Table {
	t.Helper()
	tbl, err := table.ReadCSV(strings.NewReader(body))
	require.NoError(t, err)
	return tbl
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in       string
		dayFirst bool
		want     string
	}{
		{"2024-01-05", false, "2024-01-05"},
		{"2024-01-05 06:59:59", false, "2024-01-05"},
		{"2024-01-05T23:10:00+05:30", false, "2024-01-05"},
		{"01/05/2024", false, "2024-01-05"},
		{"01/05/2024", true, "2024-05-01"},
		{"13/01/2024", false, "2024-01-13"},
		{"05-Jan-2024", false, "2024-01-05"},
		{"05-jan-2024", false, "2024-01-05"},
		{"5/1/2024 3:04 pm", true, "2024-01-05"},
		{"not a date", false, ""},
		{"", false, ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ParseDate(c.in, c.dayFirst), c.in)
	}
}

func TestParseClock(t *testing.T) {
	cases := map[string]time.Duration{
		"02:45":               2*time.Hour + 45*time.Minute,
		"2:45 am":             2*time.Hour + 45*time.Minute,
		"03:00:00":            3 * time.Hour,
		"2024-01-05 04:00:00": 4 * time.Hour,
		"1:15 PM":             13*time.Hour + 15*time.Minute,
	}
	for in, want := range cases {
		got, ok := ParseClock(in, false)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseClock("late", false)
	assert.False(t, ok)
}

func TestQuantity(t *testing.T) {
	cases := map[string]string{
		"12":       "12",
		" 1,234.5": "1234.5",
		"₹ 120.00": "120",
		"-3":       "0",
		"abc":      "0",
		"":         "0",
		"1.2.3":    "0",
		"1.5E+03":  "1500",
		"2e2":      "200",
		"-1e2":     "0",
	}
	for in, want := range cases {
		assert.True(t, decimal.RequireFromString(want).Equal(Quantity(in)), "%q -> %s", in, Quantity(in))
	}
}

func TestOrdersDerivesFlags(t *testing.T) {
	n := New(config.Defaults())
	tbl := mustTable(t, `delivery_date,sa_name,member_id,order_id,order_status,Type,cancellation_reason,OriginalQty,finalquantity,Milk / NM
2024-01-01,A,m1,o1,Complete,Subscription,,2,2,Milk
2024-01-01,A,m2,o2,cancelled,Topup,Customer changed mind,1,0,NM
2024-01-01,A,m3,o3,cancelled,topup,Item OOS at hub,3,0,Non-Milk
2024-01-01,A,m4,o4,cancelled,Other,Customer did not choose a slot,1,x,Milk
bad-date,B,m5,o5,delivered,Other,,1,1,Milk
`)
	orders, err := n.Orders(tbl, config.Defaults().Sources.Orders)
	require.NoError(t, err)
	require.Len(t, orders, 5)

	assert.True(t, orders[0].IsDelivered)
	assert.True(t, orders[0].IsSubscription)
	assert.True(t, orders[0].IsMilk)
	assert.False(t, orders[0].IsCancelledByCustomer)

	assert.False(t, orders[1].IsDelivered)
	assert.True(t, orders[1].IsTopup)
	assert.True(t, orders[1].IsNonMilk)
	assert.True(t, orders[1].IsCancelledByCustomer)
	assert.False(t, orders[1].IsCancelledOOS)

	assert.True(t, orders[2].IsCancelledOOS)
	assert.True(t, orders[2].IsTopup)
	assert.True(t, orders[2].IsNonMilk)

	// "choose" must not read as OOS.
	assert.False(t, orders[3].IsCancelledOOS)
	assert.True(t, orders[3].IsCancelledByCustomer)
	assert.True(t, orders[3].DeliveredQty.IsZero())

	assert.Equal(t, "", orders[4].Date)
	assert.Equal(t, "B", orders[4].Store)
	assert.True(t, orders[4].IsDelivered)
}

func TestOrdersMissingStoreColumn(t *testing.T) {
	n := New(config.Defaults())
	tbl := mustTable(t, "delivery_date,order_id\n2024-01-01,o1\n")

	_, err := n.Orders(tbl, config.Defaults().Sources.Orders)
	var mce *MissingColumnError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, config.SourceOrders, mce.Source)
}

func TestDeliveriesOnTimePerCutoff(t *testing.T) {
	n := New(config.Defaults())
	tbl := mustTable(t, `order_delivered_time,sa_name,route_id,cee_id,weight,order_status
2024-01-01 06:59:00,A,r1,c1,1.5,delivered
2024-01-01 07:00:00,A,r1,c1,2,delivered
2024-01-01 07:45:00,A,r2,c2,2,delivered
garbage,A,r3,c3,4,delivered
`)
	recs, err := n.Deliveries(tbl, config.Defaults().Sources.Delivery)
	require.NoError(t, err)
	require.Len(t, recs, 4)

	assert.Equal(t, []bool{true, true, true}, recs[0].OnTime)
	// cutoffs are exclusive: 07:00 is not before 07:00
	assert.Equal(t, []bool{false, true, true}, recs[1].OnTime)
	assert.Equal(t, []bool{false, false, true}, recs[2].OnTime)

	assert.False(t, recs[3].HasTimestamp)
	assert.Equal(t, "", recs[3].Date)
	assert.Equal(t, []bool{false, false, false}, recs[3].OnTime)
}

func TestArrivalsUseStoreSynonymAndInclusiveCutoff(t *testing.T) {
	n := New(config.Defaults())
	tbl := mustTable(t, `Date,Store Name,Arrival Time
2024-01-01,A,03:00
2024-01-01,A,03:01
2024-01-01,B,
`)
	recs, err := n.Arrivals(tbl, config.Defaults().Sources.Arrival)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "A", recs[0].Store)
	assert.True(t, recs[0].OnTime)
	assert.False(t, recs[1].OnTime)
	assert.False(t, recs[2].HasTime)
	assert.False(t, recs[2].OnTime)
}

func TestPicksDayFirstAndROD(t *testing.T) {
	n := New(config.Defaults())
	tbl := mustTable(t, `DeliveryDAte,Serviceability_Area,OPST_binned_time,order_status,picked_quantity
02/01/2024,A,2024-01-02 03:59:00,picked,4
02/01/2024,A,2024-01-02 04:30:00,Return-On-Delivery,2
`)
	recs, err := n.Picks(tbl, config.Defaults().Sources.Picking)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2024-01-02", recs[0].Date)
	assert.True(t, recs[0].OnTime)
	assert.False(t, recs[0].IsROD)
	assert.False(t, recs[1].OnTime)
	assert.True(t, recs[1].IsROD)
	assert.True(t, decimal.NewFromInt(2).Equal(recs[1].PickedQty))
}

func TestSocieties(t *testing.T) {
	n := New(config.Defaults())
	tbl := mustTable(t, "SA Name,Migration Status\nA,migrated\nA,Pending\nB,MIGRATED\n")
	recs, err := n.Societies(tbl, config.Defaults().Sources.Societies)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.True(t, recs[0].IsMigrated)
	assert.False(t, recs[1].IsMigrated)
	assert.True(t, recs[2].IsMigrated)
}
