package aggregate

import (
	"sort"
	"strconv"
)

// Key identifies one output row. Store-only frames leave Date empty.
type Key struct {
	Date  string
	Store string
}

func (k Key) String() string { return k.Date + "|" + k.Store }

// Less orders keys by date, then store.
func (k Key) Less(o Key) bool {
	if k.Date != o.Date {
		return k.Date < o.Date
	}
	return k.Store < o.Store
}

// Cell is a nullable metric value. An invalid cell means "no data", which is
// distinct from a measured zero until the finalizer fills it.
type Cell struct {
	Value float64
	Valid bool
}

// Num wraps a measured value.
func Num(v float64) Cell { return Cell{Value: v, Valid: true} }

// Null is the undefined cell.
var Null = Cell{}

func (c Cell) String() string {
	if !c.Valid {
		return "null"
	}
	return strconv.FormatFloat(c.Value, 'f', -1, 64)
}

// Ratio is a count of true flags over the count of records that could be
// evaluated. A zero denominator yields Null, not 0.
type Ratio struct {
	Hits  int
	Total int
}

func (r *Ratio) Observe(flag bool) {
	r.Total++
	if flag {
		r.Hits++
	}
}

func (r Ratio) Cell() Cell {
	if r.Total == 0 {
		return Null
	}
	return Num(float64(r.Hits) / float64(r.Total))
}

// Row is one keyed row of a Frame; Cells is aligned with Frame.Columns.
type Row struct {
	Key   Key
	Cells []Cell
}

// Frame is one source's aggregate. ByStore frames are keyed on store alone
// and broadcast across dates when joined.
type Frame struct {
	Source  string
	ByStore bool
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (f Frame) Len() int { return len(f.Rows) }

// Value looks up a cell by key and column.
func (f Frame) Value(k Key, col string) (Cell, bool) {
	ci := f.ColumnIndex(col)
	if ci < 0 {
		return Null, false
	}
	for _, r := range f.Rows {
		if r.Key == k {
			return r.Cells[ci], true
		}
	}
	return Null, false
}

// ColumnIndex returns the position of col, or -1.
func (f Frame) ColumnIndex(col string) int {
	for i, c := range f.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Stats counts the records an aggregation consumed and skipped.
type Stats struct {
	Source  string
	Records int
	Groups  int
	Dropped int
}

// sortedKeys returns the map's keys in (date, store) order.
func sortedKeys[V any](m map[Key]V) []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
