// Package join merges per-source frames into one wide table keyed on the
// primary frame's (date, store) rows.
package join

import (
	"fmt"

	"dailysummary/internal/aggregate"
)

// DuplicateKeyError reports a frame with more than one row for a key. Joining
// it would multiply primary rows.
type DuplicateKeyError struct {
	Source string
	Key    aggregate.Key
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("source %s: duplicate join key %s", e.Source, e.Key)
}

// ColumnConflictError reports a frame that would overwrite a column already
// contributed by an earlier source.
type ColumnConflictError struct {
	Source string
	Column string
}

func (e *ColumnConflictError) Error() string {
	return fmt.Sprintf("source %s: column %s already present", e.Source, e.Column)
}

// Row is one wide row. Cells missing from the map were never contributed,
// which the finalizer treats the same as a Null cell.
type Row struct {
	Key   aggregate.Key
	Cells map[string]aggregate.Cell
}

// Get returns the cell for col, or Null when absent.
func (r Row) Get(col string) aggregate.Cell {
	if c, ok := r.Cells[col]; ok {
		return c
	}
	return aggregate.Null
}

// Table is the accumulated wide table. Tables are never mutated in place:
// each join step returns a fresh Table.
type Table struct {
	Columns []string
	Sources []string
	Rows    []Row
}

// Has reports whether col has been contributed.
func (t Table) Has(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Primary seeds the wide table from the primary frame. Its rows define the
// row set of every later step.
func Primary(f aggregate.Frame) (Table, error) {
	if f.ByStore {
		return Table{}, fmt.Errorf("source %s: primary frame must be keyed on date and store", f.Source)
	}
	seen := make(map[aggregate.Key]struct{}, len(f.Rows))
	t := Table{
		Columns: append([]string(nil), f.Columns...),
		Sources: []string{f.Source},
		Rows:    make([]Row, 0, len(f.Rows)),
	}
	for _, r := range f.Rows {
		if _, dup := seen[r.Key]; dup {
			return Table{}, &DuplicateKeyError{Source: f.Source, Key: r.Key}
		}
		seen[r.Key] = struct{}{}
		cells := make(map[string]aggregate.Cell, len(f.Columns))
		for i, c := range f.Columns {
			cells[c] = r.Cells[i]
		}
		t.Rows = append(t.Rows, Row{Key: r.Key, Cells: cells})
	}
	return t, nil
}

// Left joins f onto acc. Rows of acc without a match keep no value for f's
// columns; rows of f without a match in acc are discarded. Store-keyed frames
// are broadcast to every date of the store.
func Left(acc Table, f aggregate.Frame) (Table, error) {
	for _, c := range f.Columns {
		if acc.Has(c) {
			return Table{}, &ColumnConflictError{Source: f.Source, Column: c}
		}
	}
	index := make(map[aggregate.Key]int, len(f.Rows))
	for i, r := range f.Rows {
		k := r.Key
		if f.ByStore {
			k = aggregate.Key{Store: k.Store}
		}
		if _, dup := index[k]; dup {
			return Table{}, &DuplicateKeyError{Source: f.Source, Key: k}
		}
		index[k] = i
	}

	out := Table{
		Columns: append(append([]string(nil), acc.Columns...), f.Columns...),
		Sources: append(append([]string(nil), acc.Sources...), f.Source),
		Rows:    make([]Row, 0, len(acc.Rows)),
	}
	for _, r := range acc.Rows {
		cells := make(map[string]aggregate.Cell, len(r.Cells)+len(f.Columns))
		for c, v := range r.Cells {
			cells[c] = v
		}
		lookup := r.Key
		if f.ByStore {
			lookup = aggregate.Key{Store: r.Key.Store}
		}
		if i, ok := index[lookup]; ok {
			for ci, c := range f.Columns {
				cells[c] = f.Rows[i].Cells[ci]
			}
		}
		out.Rows = append(out.Rows, Row{Key: r.Key, Cells: cells})
	}
	return out, nil
}

// Fold seeds from primary and left-joins each secondary in turn.
func Fold(primary aggregate.Frame, secondaries ...aggregate.Frame) (Table, error) {
	acc, err := Primary(primary)
	if err != nil {
		return Table{}, err
	}
	for _, f := range secondaries {
		acc, err = Left(acc, f)
		if err != nil {
			return Table{}, err
		}
	}
	return acc, nil
}
