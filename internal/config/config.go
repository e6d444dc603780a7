package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source names. Orders is the primary source; the rest are joined onto it in
// the order returned by SecondarySources.
const (
	SourceOrders    = "orders"
	SourceSales     = "sales"
	SourceDelivery  = "delivery"
	SourceArrival   = "arrival"
	SourcePicking   = "picking"
	SourceSocieties = "societies"
)

// SecondarySources lists the optional sources in join order.
func SecondarySources() []string {
	return []string{SourceSales, SourceDelivery, SourceArrival, SourcePicking, SourceSocieties}
}

type Config struct {
	DataDir    string           `yaml:"data_dir"`
	Sources    SourcesConfig    `yaml:"sources"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Categories CategoriesConfig `yaml:"categories"`
	Finalize   FinalizeConfig   `yaml:"finalize"`
	Output     OutputConfig     `yaml:"output"`
}

type SourcesConfig struct {
	Orders    SourceConfig `yaml:"orders"`
	Sales     SourceConfig `yaml:"sales"`
	Delivery  SourceConfig `yaml:"delivery"`
	Arrival   SourceConfig `yaml:"arrival"`
	Picking   SourceConfig `yaml:"picking"`
	Societies SourceConfig `yaml:"societies"`
}

// SourceConfig describes how one raw report maps onto the normalizer's fields.
// StoreColumns is an ordered synonym list: the first header present in the
// loaded table is used as that source's store key.
type SourceConfig struct {
	Enabled      bool              `yaml:"enabled"`
	Keyword      string            `yaml:"keyword"`
	DateColumn   string            `yaml:"date_column"`
	StoreColumns []string          `yaml:"store_columns"`
	DayFirst     bool              `yaml:"day_first"`
	Columns      map[string]string `yaml:"columns"`
}

// Column returns the header mapped to field, falling back to the field name.
func (s SourceConfig) Column(field string) string {
	if c, ok := s.Columns[field]; ok && strings.TrimSpace(c) != "" {
		return c
	}
	return field
}

// ResolveStoreColumn picks the first configured store synonym present in headers.
func (s SourceConfig) ResolveStoreColumn(headers []string) (string, bool) {
	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[strings.TrimSpace(h)] = struct{}{}
	}
	for _, c := range s.StoreColumns {
		if _, ok := present[c]; ok {
			return c, true
		}
	}
	return "", false
}

type ThresholdsConfig struct {
	Delivery         []ClockTime `yaml:"delivery"`
	Arrival          ClockTime   `yaml:"arrival"`
	ArrivalInclusive bool        `yaml:"arrival_inclusive"`
	Picking          ClockTime   `yaml:"picking"`
	PickingInclusive bool        `yaml:"picking_inclusive"`
}

// CategoriesConfig holds the categorical labels the normalizer compares
// against. All comparisons are case-insensitive.
type CategoriesConfig struct {
	DeliveredStatuses      []string `yaml:"delivered_statuses"`
	SubscriptionTypes      []string `yaml:"subscription_types"`
	TopupTypes             []string `yaml:"topup_types"`
	MilkClasses            []string `yaml:"milk_classes"`
	NonMilkClasses         []string `yaml:"non_milk_classes"`
	OOSPatterns            []string `yaml:"oos_patterns"`
	CustomerCancelPatterns []string `yaml:"customer_cancel_patterns"`
	RODStatuses            []string `yaml:"rod_statuses"`
	MigratedStatuses       []string `yaml:"migrated_statuses"`
}

// reservedFields are the internal field names every summary publishes, so
// output.extra_columns cannot repeat them. On-time delivery fields ("otd_*")
// are reserved by prefix.
var reservedFields = map[string]struct{}{
	"date": {}, "store_name": {},
	"unique_customers": {}, "total_orders": {}, "orders_delivered": {}, "sub_orders": {}, "topup_orders": {},
	"orders_undelivered": {}, "cancelled_by_cx": {}, "undelivered_oos": {}, "total_ordered_qty": {},
	"sub_qty": {}, "milk_qty_ordered": {}, "nonmilk_qty_ordered": {}, "topup_qty": {},
	"milk_qty_delivered": {}, "nonmilk_qty_delivered": {},
	"abv": {}, "abq": {}, "fill_rate_milk": {}, "fill_rate_nonmilk": {}, "fill_rate_overall": {},
	"revenue": {}, "total_routes": {}, "weight_per_route": {}, "weight_per_order": {},
	"societies_migrated": {}, "picking_on_time": {}, "rod_qty": {}, "ota_perc": {},
}

type FinalizeConfig struct {
	Steps []string `yaml:"steps"`
}

// StepEnabled reports whether the named finalizer step is switched on.
func (f FinalizeConfig) StepEnabled(name string) bool {
	for _, s := range f.Steps {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return true
		}
	}
	return false
}

type OutputConfig struct {
	CSV          string      `yaml:"csv"`
	ExtraColumns []string    `yaml:"extra_columns,omitempty"`
	SQL          SQLConfig   `yaml:"sql"`
	Kafka        KafkaConfig `yaml:"kafka"`
}

type SQLConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers,omitempty"`
	Topic   string   `yaml:"topic"`
}

func Defaults() *Config {
	return &Config{
		DataDir: ".",
		Sources: SourcesConfig{
			Orders: SourceConfig{
				Enabled:      true,
				Keyword:      "order_Report_SA_ID",
				DateColumn:   "delivery_date",
				StoreColumns: []string{"sa_name", "Store Name"},
				Columns: map[string]string{
					"member_id":           "member_id",
					"order_id":            "order_id",
					"order_status":        "order_status",
					"order_type":          "Type",
					"cancellation_reason": "cancellation_reason",
					"ordered_quantity":    "OriginalQty",
					"delivered_quantity":  "finalquantity",
					"product_class":       "Milk / NM",
				},
			},
			Sales: SourceConfig{
				Enabled:      true,
				Keyword:      "order_sku_sales",
				DateColumn:   "delivery_date",
				StoreColumns: []string{"sa_name", "Store Name"},
				Columns: map[string]string{
					"quantity":      "quantity",
					"sales_amount":  "total_sales",
					"product_class": "Milk / NM",
				},
			},
			Delivery: SourceConfig{
				Enabled:      true,
				Keyword:      "iot-rate-card",
				DateColumn:   "order_delivered_time",
				StoreColumns: []string{"sa_name", "Store Name"},
				Columns: map[string]string{
					"route_id":     "route_id",
					"cee_id":       "cee_id",
					"weight":       "weight",
					"order_status": "order_status",
				},
			},
			Arrival: SourceConfig{
				Enabled:      true,
				Keyword:      "OTA",
				DateColumn:   "Date",
				StoreColumns: []string{"Viapoint Name", "Store Name"},
				Columns: map[string]string{
					"arrival_time": "Arrival Time",
				},
			},
			Picking: SourceConfig{
				Enabled:      true,
				Keyword:      "B2B_ORDER_pICK",
				DateColumn:   "DeliveryDAte",
				StoreColumns: []string{"Serviceability_Area"},
				DayFirst:     true,
				Columns: map[string]string{
					"binned_at":       "OPST_binned_time",
					"order_status":    "order_status",
					"picked_quantity": "picked_quantity",
				},
			},
			Societies: SourceConfig{
				Enabled:      true,
				Keyword:      "Migrated Societies Data",
				StoreColumns: []string{"SA Name", "sa_name"},
				Columns: map[string]string{
					"migration_status": "Migration Status",
				},
			},
		},
		Thresholds: ThresholdsConfig{
			Delivery:         []ClockTime{{Hour: 7}, {Hour: 7, Minute: 30}, {Hour: 8}},
			Arrival:          ClockTime{Hour: 3},
			ArrivalInclusive: true,
			Picking:          ClockTime{Hour: 4},
			PickingInclusive: true,
		},
		Categories: CategoriesConfig{
			DeliveredStatuses:      []string{"complete", "delivered"},
			SubscriptionTypes:      []string{"Subscription"},
			TopupTypes:             []string{"Topup", "Top-up"},
			MilkClasses:            []string{"Milk"},
			NonMilkClasses:         []string{"Non-Milk", "NM", "Non Milk"},
			OOSPatterns:            []string{"OOS", "Out of stock"},
			CustomerCancelPatterns: []string{"customer"},
			RODStatuses:            []string{"return-on-delivery"},
			MigratedStatuses:       []string{"Migrated"},
		},
		Finalize: FinalizeConfig{
			Steps: []string{"fill_rate", "abv", "abq", "weight_per_route", "weight_per_order"},
		},
		Output: OutputConfig{
			CSV: "final_daily_dashboard_summary.csv",
			SQL: SQLConfig{Table: "daily_store_summary"},
		},
	}
}

// Load overlays the YAML file at path onto Defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Source returns the configuration for a named source.
func (c *Config) Source(name string) (SourceConfig, bool) {
	switch name {
	case SourceOrders:
		return c.Sources.Orders, true
	case SourceSales:
		return c.Sources.Sales, true
	case SourceDelivery:
		return c.Sources.Delivery, true
	case SourceArrival:
		return c.Sources.Arrival, true
	case SourcePicking:
		return c.Sources.Picking, true
	case SourceSocieties:
		return c.Sources.Societies, true
	}
	return SourceConfig{}, false
}

func (c *Config) Validate() error {
	if !c.Sources.Orders.Enabled {
		return fmt.Errorf("orders source cannot be disabled")
	}
	for _, name := range append([]string{SourceOrders}, SecondarySources()...) {
		src, _ := c.Source(name)
		if !src.Enabled {
			continue
		}
		if len(src.StoreColumns) == 0 {
			return fmt.Errorf("source %s: store_columns is empty", name)
		}
		if name != SourceSocieties && strings.TrimSpace(src.DateColumn) == "" {
			return fmt.Errorf("source %s: date_column is empty", name)
		}
	}
	if len(c.Thresholds.Delivery) == 0 {
		return fmt.Errorf("thresholds.delivery needs at least one cutoff")
	}
	cutoffs := make(map[string]struct{}, len(c.Thresholds.Delivery))
	for _, ct := range c.Thresholds.Delivery {
		if _, dup := cutoffs[ct.Key()]; dup {
			return fmt.Errorf("thresholds.delivery: duplicate cutoff %s", ct)
		}
		cutoffs[ct.Key()] = struct{}{}
	}
	extra := make(map[string]struct{}, len(c.Output.ExtraColumns))
	for _, col := range c.Output.ExtraColumns {
		col = strings.TrimSpace(col)
		if col == "" {
			return fmt.Errorf("output.extra_columns: empty column name")
		}
		if _, dup := extra[col]; dup {
			return fmt.Errorf("output.extra_columns: %s listed twice", col)
		}
		if _, reserved := reservedFields[col]; reserved {
			return fmt.Errorf("output.extra_columns: %s is already published", col)
		}
		if strings.HasPrefix(col, "otd_") {
			return fmt.Errorf("output.extra_columns: %s is already published", col)
		}
		extra[col] = struct{}{}
	}
	switch c.Output.SQL.Driver {
	case "", "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported sql driver: %s", c.Output.SQL.Driver)
	}
	if len(c.Output.Kafka.Brokers) > 0 && c.Output.Kafka.Topic == "" {
		return fmt.Errorf("output.kafka.topic is required when brokers are set")
	}
	return nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
