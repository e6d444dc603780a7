// Package pipeline runs one consolidation: load every source, normalize and
// aggregate each independently, fold the aggregates onto the orders frame and
// finalize the published summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"dailysummary/internal/aggregate"
	"dailysummary/internal/config"
	"dailysummary/internal/finalize"
	"dailysummary/internal/join"
	"dailysummary/internal/normalize"
	"dailysummary/internal/table"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MissingPrimarySourceError aborts a run: without orders there is no row set
// to join onto.
type MissingPrimarySourceError struct {
	Source string
	Reason string
}

func (e *MissingPrimarySourceError) Error() string {
	return fmt.Sprintf("primary source %s unavailable: %s", e.Source, e.Reason)
}

// SourceReport describes what one source contributed to a run.
type SourceReport struct {
	Source  string
	Path    string
	Joined  bool
	Skipped string
	Records int
	Groups  int
	Dropped int
}

// Report summarises a completed run.
type Report struct {
	RunID   string
	Sources []SourceReport
	Steps   []string
	Rows    int
}

// Pipeline consolidates the sources a Loader provides. It holds no state
// between runs.
type Pipeline struct {
	cfg    *config.Config
	loader Loader
	norm   *normalize.Normalizer
	fin    *finalize.Finalizer
	logger *zap.Logger
}

// New builds a pipeline over cfg. A nil logger discards all output.
func New(cfg *config.Config, loader Loader, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:    cfg,
		loader: loader,
		norm:   normalize.New(cfg),
		fin:    finalize.New(cfg),
		logger: logger,
	}
}

type sourceResult struct {
	frame  aggregate.Frame
	report SourceReport
	ok     bool
}

// Run executes the pipeline once. It is a pure function of the loaded tables
// and the configuration.
func (p *Pipeline) Run(ctx context.Context) (finalize.Summary, Report, error) {
	rep := Report{RunID: uuid.NewString()}
	log := p.logger.With(zap.String("run_id", rep.RunID))

	primary, err := p.primary(ctx, log)
	if err != nil {
		return finalize.Summary{}, rep, err
	}
	rep.Sources = append(rep.Sources, primary.report)

	names := config.SecondarySources()
	results := make([]sourceResult, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			res, err := p.secondary(gctx, log, name)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return finalize.Summary{}, rep, err
	}

	acc, err := join.Primary(primary.frame)
	if err != nil {
		return finalize.Summary{}, rep, fmt.Errorf("seed join: %w", err)
	}
	for _, res := range results {
		if res.ok {
			acc, err = join.Left(acc, res.frame)
			if err != nil {
				return finalize.Summary{}, rep, fmt.Errorf("join %s: %w", res.report.Source, err)
			}
			res.report.Joined = true
			log.Debug("joined source",
				zap.String("source", res.report.Source),
				zap.Int("groups", res.report.Groups),
				zap.Int("columns", len(res.frame.Columns)))
		}
		rep.Sources = append(rep.Sources, res.report)
	}

	summary := p.fin.Apply(acc)
	rep.Steps = p.fin.StepNames()
	rep.Rows = len(summary.Rows)
	log.Info("summary built",
		zap.Int("rows", rep.Rows),
		zap.Int("columns", len(summary.Columns)+2),
		zap.Strings("sources", acc.Sources),
		zap.Strings("steps", rep.Steps))
	return summary, rep, nil
}

func (p *Pipeline) primary(ctx context.Context, log *zap.Logger) (sourceResult, error) {
	name := config.SourceOrders
	t, found, err := p.loader.Load(ctx, name)
	if err != nil {
		return sourceResult{}, fmt.Errorf("load %s: %w", name, err)
	}
	if !found {
		return sourceResult{}, &MissingPrimarySourceError{Source: name, Reason: "no report found"}
	}
	if t.Len() == 0 {
		return sourceResult{}, &MissingPrimarySourceError{Source: name, Reason: "report is empty"}
	}
	recs, err := p.norm.Orders(t, p.cfg.Sources.Orders)
	if err != nil {
		return sourceResult{}, &MissingPrimarySourceError{Source: name, Reason: err.Error()}
	}
	frame, st := aggregate.Orders(recs)
	if frame.Len() == 0 {
		return sourceResult{}, &MissingPrimarySourceError{Source: name, Reason: "no records with a parsable date and store"}
	}
	log.Debug("aggregated source", statFields(st, t.Path)...)
	return sourceResult{frame: frame, ok: true, report: SourceReport{
		Source: name, Path: t.Path, Joined: true, Records: st.Records, Groups: st.Groups, Dropped: st.Dropped,
	}}, nil
}

// secondary loads, normalizes and aggregates one optional source. Every
// failure short of cancellation is logged and the source is skipped.
func (p *Pipeline) secondary(ctx context.Context, log *zap.Logger, name string) (sourceResult, error) {
	res := sourceResult{report: SourceReport{Source: name}}
	src, _ := p.cfg.Source(name)
	if !src.Enabled {
		res.report.Skipped = "disabled"
		log.Info("secondary source disabled, skipping", zap.String("source", name))
		return res, nil
	}
	t, found, err := p.loader.Load(ctx, name)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		res.report.Skipped = "load failed: " + err.Error()
		log.Warn("secondary source unreadable, skipping", zap.String("source", name), zap.Error(err))
		return res, nil
	}
	if !found {
		res.report.Skipped = "absent"
		log.Info("secondary source absent, skipping", zap.String("source", name))
		return res, nil
	}
	res.report.Path = t.Path

	frame, st, err := p.aggregateSecondary(name, t, src)
	if err != nil {
		var mce *normalize.MissingColumnError
		if errors.As(err, &mce) {
			res.report.Skipped = err.Error()
			log.Warn("secondary source missing key column, skipping", zap.String("source", name), zap.Error(err))
			return res, nil
		}
		return res, fmt.Errorf("aggregate %s: %w", name, err)
	}
	log.Debug("aggregated source", statFields(st, t.Path)...)
	res.frame = frame
	res.ok = true
	res.report.Records = st.Records
	res.report.Groups = st.Groups
	res.report.Dropped = st.Dropped
	return res, nil
}

func (p *Pipeline) aggregateSecondary(name string, t table.Table, src config.SourceConfig) (aggregate.Frame, aggregate.Stats, error) {
	switch name {
	case config.SourceSales:
		recs, err := p.norm.Sales(t, src)
		if err != nil {
			return aggregate.Frame{}, aggregate.Stats{}, err
		}
		f, st := aggregate.Sales(recs)
		return f, st, nil
	case config.SourceDelivery:
		recs, err := p.norm.Deliveries(t, src)
		if err != nil {
			return aggregate.Frame{}, aggregate.Stats{}, err
		}
		f, st := aggregate.Deliveries(recs, p.cfg.Thresholds.Delivery)
		return f, st, nil
	case config.SourceArrival:
		recs, err := p.norm.Arrivals(t, src)
		if err != nil {
			return aggregate.Frame{}, aggregate.Stats{}, err
		}
		f, st := aggregate.Arrivals(recs)
		return f, st, nil
	case config.SourcePicking:
		recs, err := p.norm.Picks(t, src)
		if err != nil {
			return aggregate.Frame{}, aggregate.Stats{}, err
		}
		f, st := aggregate.Picks(recs)
		return f, st, nil
	case config.SourceSocieties:
		recs, err := p.norm.Societies(t, src)
		if err != nil {
			return aggregate.Frame{}, aggregate.Stats{}, err
		}
		f, st := aggregate.Societies(recs)
		return f, st, nil
	}
	return aggregate.Frame{}, aggregate.Stats{}, fmt.Errorf("unknown source %q", name)
}

func statFields(st aggregate.Stats, path string) []zap.Field {
	return []zap.Field{
		zap.String("source", st.Source),
		zap.String("path", path),
		zap.Int("records", st.Records),
		zap.Int("groups", st.Groups),
		zap.Int("dropped", st.Dropped),
	}
}
