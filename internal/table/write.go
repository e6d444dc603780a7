package table

import (
	"bufio"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

// WriteRecord writes one CSV record terminated by "\n". A field is quoted only
// when it holds a comma, a quote or a line break.
func WriteRecord(w io.Writer, rec []string) error {
	for i, field := range rec {
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		if needsCSVQuote(field) {
			field = `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
		}
		if _, err := io.WriteString(w, field); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func needsCSVQuote(s string) bool {
	return strings.ContainsAny(s, ",\"\n\r")
}

// Encode writes t as CSV in header order.
func (t Table) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := WriteRecord(bw, t.Headers); err != nil {
		return err
	}
	rec := make([]string, len(t.Headers))
	for _, row := range t.Rows {
		for i, h := range t.Headers {
			rec[i] = row[h]
		}
		if err := WriteRecord(bw, rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile encodes t to path, creating the parent directory.
func (t Table) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Shuffle returns a copy of t with its rows and its column order permuted
// deterministically by seed. Values stay under their header.
func Shuffle(t Table, seed int64) Table {
	rng := rand.New(rand.NewSource(seed))
	out := Table{
		Name:    t.Name,
		Path:    t.Path,
		Headers: append([]string(nil), t.Headers...),
		Rows:    append([]map[string]string(nil), t.Rows...),
	}
	rng.Shuffle(len(out.Headers), func(i, j int) { out.Headers[i], out.Headers[j] = out.Headers[j], out.Headers[i] })
	rng.Shuffle(len(out.Rows), func(i, j int) { out.Rows[i], out.Rows[j] = out.Rows[j], out.Rows[i] })
	return out
}
