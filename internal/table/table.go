package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Table is a decoded report: a header row plus one string map per record.
type Table struct {
	Name    string
	Path    string
	Headers []string
	Rows    []map[string]string
}

// Len returns the number of records.
func (t Table) Len() int { return len(t.Rows) }

// HasColumn reports whether the header row contains col.
func (t Table) HasColumn(col string) bool {
	for _, h := range t.Headers {
		if h == col {
			return true
		}
	}
	return false
}

// LoadCSV reads a delimited report. A UTF-8 BOM is dropped, header names are
// trimmed and short records are padded with empty strings.
func LoadCSV(path string) (Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Table{}, err
	}
	t, err := ReadCSV(bytes.NewReader(b))
	if err != nil {
		return Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	t.Path = path
	return t, nil
}

// ReadCSV decodes a delimited report from r.
func ReadCSV(r io.Reader) (Table, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Table{}, err
	}
	b = bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
	cr := csv.NewReader(bytes.NewReader(b))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	headers, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, err
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	var rows []map[string]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, err
		}
		if blankRecord(rec) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return Table{Headers: headers, Rows: rows}, nil
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// FindFile returns the first *.csv file in dir whose name contains keyword,
// compared case-insensitively. Matches are taken in lexical order so the
// choice does not depend on directory listing order.
func FindFile(dir, keyword string) (string, bool, error) {
	if strings.TrimSpace(keyword) == "" {
		return "", false, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return "", false, err
	}
	sort.Strings(matches)
	kw := strings.ToLower(keyword)
	for _, m := range matches {
		if strings.Contains(strings.ToLower(filepath.Base(m)), kw) {
			return m, true, nil
		}
	}
	return "", false, nil
}
