package pipeline

import (
	"context"
	"fmt"

	"dailysummary/internal/config"
	"dailysummary/internal/table"
)

// Loader hands the pipeline an already-decoded table for a named source.
// found is false when the source is not available for this run.
type Loader interface {
	Load(ctx context.Context, source string) (t table.Table, found bool, err error)
}

// DirLoader discovers each source's report in a directory by filename keyword.
type DirLoader struct {
	Dir    string
	Config *config.Config
}

func (l DirLoader) Load(ctx context.Context, source string) (table.Table, bool, error) {
	if err := ctx.Err(); err != nil {
		return table.Table{}, false, err
	}
	src, ok := l.Config.Source(source)
	if !ok {
		return table.Table{}, false, fmt.Errorf("unknown source %q", source)
	}
	path, found, err := table.FindFile(l.Dir, src.Keyword)
	if err != nil || !found {
		return table.Table{}, false, err
	}
	t, err := table.LoadCSV(path)
	if err != nil {
		return table.Table{}, false, err
	}
	t.Name = source
	return t, true, nil
}

// StaticLoader serves tables already held in memory, keyed by source name.
type StaticLoader map[string]table.Table

func (l StaticLoader) Load(_ context.Context, source string) (table.Table, bool, error) {
	t, ok := l[source]
	if ok {
		t.Name = source
	}
	return t, ok, nil
}
