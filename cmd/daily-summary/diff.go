package main

import (
	"errors"
	"fmt"
	"io"

	"dailysummary/internal/finalize"
	"dailysummary/internal/table"
)

var errFilesDiffer = errors.New("summaries differ")

// maxChangesShown caps the per-cell listing; the totals are always printed.
const maxChangesShown = 50

func diffFiles(refPath, candPath string) (table.Diff, error) {
	ref, err := table.LoadCSV(refPath)
	if err != nil {
		return table.Diff{}, fmt.Errorf("load reference: %w", err)
	}
	cand, err := table.LoadCSV(candPath)
	if err != nil {
		return table.Diff{}, fmt.Errorf("load candidate: %w", err)
	}
	keys := []string{finalize.LabelDate, finalize.LabelStore}
	for _, t := range []table.Table{ref, cand} {
		for _, k := range keys {
			if !t.HasColumn(k) {
				return table.Diff{}, fmt.Errorf("%s: missing key column %q", t.Path, k)
			}
		}
	}
	return table.Compare(ref, cand, keys), nil
}

func printDiff(w io.Writer, d table.Diff) {
	fmt.Fprintf(w, "Matched rows: %d\n", d.MatchedRows)
	fmt.Fprintf(w, "Missing rows: %d\n", len(d.MissingRows))
	for _, k := range d.MissingRows {
		fmt.Fprintf(w, "  - %s\n", k)
	}
	fmt.Fprintf(w, "Extra rows: %d\n", len(d.ExtraRows))
	for _, k := range d.ExtraRows {
		fmt.Fprintf(w, "  + %s\n", k)
	}
	if len(d.DuplicateKeys) > 0 {
		fmt.Fprintf(w, "Duplicate keys: %d\n", len(d.DuplicateKeys))
		for _, k := range d.DuplicateKeys {
			fmt.Fprintf(w, "  ! %s\n", k)
		}
	}
	for _, c := range d.MissingColumns {
		fmt.Fprintf(w, "Missing column: %s\n", c)
	}
	for _, c := range d.ExtraColumns {
		fmt.Fprintf(w, "Extra column: %s\n", c)
	}
	fmt.Fprintf(w, "Changed cells: %d\n", len(d.Changes))
	for i, c := range d.Changes {
		if i == maxChangesShown {
			fmt.Fprintf(w, "  ... %d more\n", len(d.Changes)-maxChangesShown)
			break
		}
		fmt.Fprintf(w, "  %s [%s]: %q -> %q\n", c.Key, c.Column, c.Before, c.After)
	}
	if d.Identical() {
		fmt.Fprintln(w, "Identical: yes")
	} else {
		fmt.Fprintln(w, "Identical: no")
	}
}
