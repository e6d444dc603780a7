package table

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadCSVStripsBOMAndPadsShortRows(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "orders.csv", "\xEF\xBB\xBF delivery_date ,sa_name,order_id\n2024-01-01,A,1\n2024-01-01,B\n,,\n")

	tbl, err := LoadCSV(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"delivery_date", "sa_name", "order_id"}, tbl.Headers)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "1", tbl.Rows[0]["order_id"])
	assert.Equal(t, "", tbl.Rows[1]["order_id"])
	assert.True(t, tbl.HasColumn("sa_name"))
	assert.False(t, tbl.HasColumn("Store Name"))
	assert.Equal(t, p, tbl.Path)
}

func TestReadCSVEmptyInput(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Empty(t, tbl.Headers)
}

func TestFindFileMatchesKeywordCaseInsensitively(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b2b_order_PICK_2024.csv", "a\n")
	writeFile(t, dir, "zz_order_report_sa_id.csv", "a\n")
	writeFile(t, dir, "aa_Order_Report_SA_ID.csv", "a\n")
	writeFile(t, dir, "order_report_sa_id.xlsx", "a\n")

	got, ok, err := FindFile(dir, "order_Report_SA_ID")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "aa_Order_Report_SA_ID.csv", filepath.Base(got))

	got, ok, err = FindFile(dir, "B2B_ORDER_pICK")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b2b_order_PICK_2024.csv", filepath.Base(got))

	_, ok, err = FindFile(dir, "iot-rate-card")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompareAlignsOnCompositeKey(t *testing.T) {
	ref, err := ReadCSV(strings.NewReader("Date,Store Name,Total Orders,ABV\n2024-01-01,A,2,1.50\n2024-01-01,B,3,0\n2024-01-02,A,1,0\n"))
	require.NoError(t, err)
	cand, err := ReadCSV(strings.NewReader("Date,Store Name,Total Orders,ABV,Extra\n2024-01-01,A,2,1.5,x\n2024-01-01,B,4,0,y\n2024-01-03,C,1,0,z\n"))
	require.NoError(t, err)

	d := Compare(ref, cand, []string{"Date", "Store Name"})
	assert.False(t, d.Identical())
	assert.Equal(t, 2, d.MatchedRows)
	assert.Equal(t, []string{"2024-01-02|A"}, d.MissingRows)
	assert.Equal(t, []string{"2024-01-03|C"}, d.ExtraRows)
	assert.Equal(t, []string{"Extra"}, d.ExtraColumns)
	assert.Equal(t, []CellChange{{Key: "2024-01-01|B", Column: "Total Orders", Before: "3", After: "4"}}, d.Changes)
}

func TestCompareIdenticalTables(t *testing.T) {
	body := "Date,Store Name,Total Orders\n2024-01-01,A,2\n"
	a, err := ReadCSV(strings.NewReader(body))
	require.NoError(t, err)
	b, err := ReadCSV(strings.NewReader(body))
	require.NoError(t, err)
	assert.True(t, Compare(a, b, []string{"Date", "Store Name"}).Identical())
}
