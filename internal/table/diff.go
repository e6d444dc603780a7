package table

import (
	"math/big"
	"regexp"
	"sort"
	"strings"
)

var reNumeric = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)$`)

// CellChange is one differing value between two aligned rows.
type CellChange struct {
	Key    string
	Column string
	Before string
	After  string
}

// Diff is the result of aligning two tables on a composite key.
type Diff struct {
	MatchedRows    int
	MissingRows    []string // keys only in the reference table
	ExtraRows      []string // keys only in the candidate table
	DuplicateKeys  []string
	MissingColumns []string
	ExtraColumns   []string
	Changes        []CellChange
}

// Identical reports whether the two tables carry the same rows and values.
func (d Diff) Identical() bool {
	return len(d.MissingRows) == 0 && len(d.ExtraRows) == 0 && len(d.DuplicateKeys) == 0 &&
		len(d.MissingColumns) == 0 && len(d.ExtraColumns) == 0 && len(d.Changes) == 0
}

// Compare aligns ref and cand on the given key columns and reports changed
// cells. Numeric values are compared canonically, so "1.50" equals "1.5".
func Compare(ref, cand Table, keyCols []string) Diff {
	var d Diff
	refIndex, refDup := indexRows(ref, keyCols)
	candIndex, candDup := indexRows(cand, keyCols)
	d.DuplicateKeys = append(refDup, candDup...)
	sort.Strings(d.DuplicateKeys)

	candCols := make(map[string]struct{}, len(cand.Headers))
	for _, h := range cand.Headers {
		candCols[h] = struct{}{}
	}
	refCols := make(map[string]struct{}, len(ref.Headers))
	var shared []string
	for _, h := range ref.Headers {
		refCols[h] = struct{}{}
		if _, ok := candCols[h]; ok {
			shared = append(shared, h)
		} else {
			d.MissingColumns = append(d.MissingColumns, h)
		}
	}
	for _, h := range cand.Headers {
		if _, ok := refCols[h]; !ok {
			d.ExtraColumns = append(d.ExtraColumns, h)
		}
	}

	keys := make([]string, 0, len(refIndex))
	for k := range refIndex {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ci, ok := candIndex[k]
		if !ok {
			d.MissingRows = append(d.MissingRows, k)
			continue
		}
		d.MatchedRows++
		rr, cr := ref.Rows[refIndex[k]], cand.Rows[ci]
		for _, col := range shared {
			if canonicalScalar(rr[col]) != canonicalScalar(cr[col]) {
				d.Changes = append(d.Changes, CellChange{Key: k, Column: col, Before: rr[col], After: cr[col]})
			}
		}
	}
	for k := range candIndex {
		if _, ok := refIndex[k]; !ok {
			d.ExtraRows = append(d.ExtraRows, k)
		}
	}
	sort.Strings(d.ExtraRows)
	return d
}

func indexRows(t Table, keyCols []string) (map[string]int, []string) {
	idx := make(map[string]int, len(t.Rows))
	var dup []string
	for i, row := range t.Rows {
		parts := make([]string, len(keyCols))
		for j, c := range keyCols {
			parts[j] = strings.TrimSpace(row[c])
		}
		k := strings.Join(parts, "|")
		if _, exists := idx[k]; exists {
			dup = append(dup, k)
			continue
		}
		idx[k] = i
	}
	return idx, dup
}

func canonicalScalar(v string) string {
	s := strings.TrimSpace(v)
	if s == "" || !reNumeric.MatchString(s) {
		return s
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return s
	}
	return r.RatString()
}
