package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily-summary.yaml")
	body := `
data_dir: ./raw_data
sources:
  arrival:
    store_columns: ["Store Name"]
    columns:
      arrival_time: "Reached At"
thresholds:
  delivery: ["06:30", "7:15 AM"]
  picking: "03:45"
finalize:
  steps: [fill_rate]
output:
  sql:
    driver: sqlite
    dsn: summary.db
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./raw_data", cfg.DataDir)
	assert.Equal(t, []string{"Store Name"}, cfg.Sources.Arrival.StoreColumns)
	assert.Equal(t, "Reached At", cfg.Sources.Arrival.Column("arrival_time"))
	assert.Equal(t, "Date", cfg.Sources.Arrival.DateColumn)
	assert.Equal(t, []ClockTime{{Hour: 6, Minute: 30}, {Hour: 7, Minute: 15}}, cfg.Thresholds.Delivery)
	assert.Equal(t, ClockTime{Hour: 3, Minute: 45}, cfg.Thresholds.Picking)
	assert.Equal(t, ClockTime{Hour: 3}, cfg.Thresholds.Arrival)
	assert.True(t, cfg.Finalize.StepEnabled("fill_rate"))
	assert.False(t, cfg.Finalize.StepEnabled("abv"))
	assert.Equal(t, "daily_store_summary", cfg.Output.SQL.Table)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  sql:\n    driver: oracle\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported sql driver")
}

func TestResolveStoreColumnUsesFirstPresentSynonym(t *testing.T) {
	src := Defaults().Sources.Arrival

	col, ok := src.ResolveStoreColumn([]string{"Date", "Store Name", "Arrival Time"})
	require.True(t, ok)
	assert.Equal(t, "Store Name", col)

	col, ok = src.ResolveStoreColumn([]string{"Viapoint Name", "Store Name"})
	require.True(t, ok)
	assert.Equal(t, "Viapoint Name", col)

	_, ok = src.ResolveStoreColumn([]string{"Date"})
	assert.False(t, ok)
}

func TestColumnFallsBackToFieldName(t *testing.T) {
	src := SourceConfig{Columns: map[string]string{"weight": "Weight (kg)"}}
	assert.Equal(t, "Weight (kg)", src.Column("weight"))
	assert.Equal(t, "route_id", src.Column("route_id"))
}

func TestParseClock(t *testing.T) {
	cases := map[string]ClockTime{
		"07:00":    {Hour: 7},
		"7:30 AM":  {Hour: 7, Minute: 30},
		"03:00:15": {Hour: 3, Second: 15},
		"1:05 pm":  {Hour: 13, Minute: 5},
		"4":        {Hour: 4},
	}
	for in, want := range cases {
		got, err := ParseClock(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "25:00", "ab:cd", "7:61"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestClockLabel(t *testing.T) {
	assert.Equal(t, "7:00 AM", ClockTime{Hour: 7}.Label())
	assert.Equal(t, "7:30 AM", ClockTime{Hour: 7, Minute: 30}.Label())
	assert.Equal(t, "12:15 AM", ClockTime{Minute: 15}.Label())
	assert.Equal(t, "0730", ClockTime{Hour: 7, Minute: 30}.Key())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily-summary.yaml")
	require.NoError(t, Defaults().Save(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestClockKeyKeepsSeconds(t *testing.T) {
	a, b := ClockTime{Hour: 6, Minute: 30}, ClockTime{Hour: 6, Minute: 30, Second: 30}
	assert.Equal(t, "0630", a.Key())
	assert.Equal(t, "063030", b.Key())
	assert.Equal(t, "6:30:30 AM", b.Label())
}

func TestValidateRejectsDuplicateCutoffs(t *testing.T) {
	cfg := Defaults()
	cfg.Thresholds.Delivery = []ClockTime{{Hour: 6, Minute: 30}, {Hour: 6, Minute: 30, Second: 30}}
	require.NoError(t, cfg.Validate())

	cfg.Thresholds.Delivery = []ClockTime{{Hour: 7}, {Hour: 8}, {Hour: 7}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate cutoff 07:00")

	path := filepath.Join(t.TempDir(), "dup.yaml")
	require.NoError(t, os.WriteFile(path, []byte("thresholds:\n  delivery: [\"7:00\", \"07:00 AM\"]\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsPublishedExtraColumns(t *testing.T) {
	for _, col := range []string{"total_orders", "revenue", "date", "otd_0700", "otd_0900"} {
		cfg := Defaults()
		cfg.Output.ExtraColumns = []string{col}
		err := cfg.Validate()
		require.Error(t, err, col)
		assert.Contains(t, err.Error(), "already published", col)
	}

	cfg := Defaults()
	cfg.Output.ExtraColumns = []string{"cee_count", "cee_count"}
	assert.Error(t, cfg.Validate())

	cfg.Output.ExtraColumns = []string{"cee_count", "sold_qty"}
	assert.NoError(t, cfg.Validate())
}
