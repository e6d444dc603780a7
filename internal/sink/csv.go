// Package sink persists a finalized summary: a CSV file, a SQL table and an
// optional Kafka feed.
package sink

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"dailysummary/internal/finalize"
	"dailysummary/internal/table"
)

// EncodeCSV writes the header row and every summary row. Every record ends
// with "\n", so equal summaries encode to equal bytes.
func EncodeCSV(w io.Writer, s finalize.Summary) error {
	bw := bufio.NewWriter(w)
	if err := table.WriteRecord(bw, s.Headers()); err != nil {
		return err
	}
	for _, rec := range s.Records() {
		if err := table.WriteRecord(bw, rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteCSV encodes s to path. The file is written beside its destination and
// renamed into place so a failed run never leaves a partial summary.
func WriteCSV(path string, s finalize.Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".summary-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := EncodeCSV(tmp, s); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
