// Package pipeline wires the profiling and ingest stages together:
// structural boundary detection over a raw source, type intuition, a
// compiled typed pass, column statistics, and the partition writer. The
// source is traversed twice; the factory must produce a fresh pipe for
// each traversal.
package pipeline

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/stratum-data/stratum/pkg/config"
	"github.com/stratum-data/stratum/pkg/errors"
	"github.com/stratum-data/stratum/pkg/intuit"
	"github.com/stratum-data/stratum/pkg/logger"
	"github.com/stratum-data/stratum/pkg/partition"
	"github.com/stratum-data/stratum/pkg/rows"
	"github.com/stratum-data/stratum/pkg/schema"
	"github.com/stratum-data/stratum/pkg/stats"
	"github.com/stratum-data/stratum/pkg/transform"
)

// Stage names a pipeline phase for reporting and metrics.
type Stage string

const (
	StageSource  Stage = "source"
	StageProfile Stage = "profile"
	StageCast    Stage = "cast"
	StageWrite   Stage = "write"
)

// SourceFactory produces a fresh pipe over the raw source. It is
// invoked once per traversal; returned pipes that implement rows.Closer
// are closed when the traversal ends.
type SourceFactory func(ctx context.Context) (rows.Pipe, error)

// Profile is the outcome of the profiling pass.
type Profile struct {
	Schema      *schema.Schema  `json:"schema"`
	Header      []string        `json:"header,omitempty"`
	Comments    []string        `json:"comments,omitempty"`
	Footer      []string        `json:"footer,omitempty"`
	HeaderLine  int             `json:"header_line"`
	DataStart   int             `json:"data_start"`
	DataEnd     int             `json:"data_end"`
	RowsSampled int64           `json:"rows_sampled"`
	Stats       []*stats.Report `json:"stats,omitempty"`
}

// Report is the outcome of a full two-pass run.
type Report struct {
	Pipeline    string                `json:"pipeline"`
	Schema      *schema.Schema        `json:"schema"`
	Comments    []string              `json:"comments,omitempty"`
	Footer      []string              `json:"footer,omitempty"`
	RowsWritten int64                 `json:"rows_written"`
	CastErrors  []transform.RowErrors `json:"cast_errors,omitempty"`
	Stats       []*stats.Report       `json:"stats,omitempty"`
	Duration    time.Duration         `json:"duration"`
	FailedStage Stage                 `json:"failed_stage,omitempty"`
}

// Pipeline runs the profiling and typed passes for one source.
type Pipeline struct {
	cfg      *config.PipelineConfig
	open     SourceFactory
	registry *transform.Registry
	declared *schema.Schema
	log      *zap.Logger
}

// New creates a pipeline. A nil registry leaves only the built-in
// converters available to the caster.
func New(cfg *config.PipelineConfig, open SourceFactory, registry *transform.Registry) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		registry = transform.NewRegistry()
	}
	return &Pipeline{
		cfg:      cfg,
		open:     open,
		registry: registry,
		log:      logger.Get().With(zap.String("pipeline", cfg.Name)),
	}, nil
}

// UseSchema declares the output schema up front, from a catalog or a
// caller-maintained descriptor list. The typed pass casts into it
// instead of the intuited schema; structural boundary detection still
// runs.
func (p *Pipeline) UseSchema(s *schema.Schema) {
	p.declared = s
}

// Profile runs the profiling pass only: boundary detection plus type
// intuition over the emitted data rows, with untyped value statistics.
func (p *Pipeline) Profile(ctx context.Context) (*Profile, error) {
	profile, _, err := p.profile(ctx, true)
	return profile, err
}

// profile runs the first traversal. When withStats is set, untyped
// StatSets are accumulated per column and finalized into the profile.
func (p *Pipeline) profile(ctx context.Context, withStats bool) (*Profile, *intuit.TypeIntuiter, error) {
	start := time.Now()
	defer observeStage(p.cfg.Name, string(StageProfile), start)

	src, err := p.open(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open source")
	}
	defer closePipe(src)

	ri := intuit.NewRowIntuiter(src, p.cfg.Intuition)
	ti := intuit.NewTypeIntuiter(p.cfg.Types)

	var sampled int64
	for {
		row, err := ri.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if sampled == 0 {
			ti.SetHeader(ri.Header())
		}
		ti.ProcessRow(row)
		sampled++
		rowsEmitted.WithLabelValues(p.cfg.Name).Inc()
	}
	rowsRead.WithLabelValues(p.cfg.Name).Add(float64(ri.RowsSeen()))

	s, err := ti.Schema(p.cfg.Name)
	if err != nil {
		return nil, nil, err
	}

	headerIdx, first, last := ri.Bounds()
	profile := &Profile{
		Schema:      s,
		Comments:    ri.Comments(),
		Footer:      ri.Footer(),
		HeaderLine:  headerIdx,
		DataStart:   first,
		DataEnd:     last,
		RowsSampled: sampled,
	}
	if h := ri.Header(); h != nil {
		profile.Header = h.Names()
	}

	if withStats {
		profile.Stats = p.typedStats(ctx, s)
	}

	p.log.Info("profiling pass complete",
		zap.Int64("rows_sampled", sampled),
		zap.Int("columns", s.Len()))
	return profile, ti, nil
}

// typedStats runs a second traversal casting values and accumulating
// statistics, without writing a partition. Errors here degrade the
// profile rather than failing it.
func (p *Pipeline) typedStats(ctx context.Context, s *schema.Schema) []*stats.Report {
	src, err := p.open(ctx)
	if err != nil {
		p.log.Warn("stats pass skipped", zap.Error(err))
		return nil
	}
	defer closePipe(src)

	ri := intuit.NewRowIntuiter(src, p.cfg.Intuition)
	caster, err := transform.NewCaster(s, nil, p.registry)
	if err != nil {
		p.log.Warn("stats pass skipped", zap.Error(err))
		return nil
	}

	sets := newStatSets(s, p.cfg.Stats)
	for {
		raw, err := ri.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			p.log.Warn("stats pass truncated", zap.Error(err))
			break
		}
		row, err := caster.Cast(raw)
		if err != nil {
			continue
		}
		updateStatSets(sets, row)
	}
	return finalizeStatSets(sets)
}

// Run performs the full two-pass ingest, writing the partition to dst.
func (p *Pipeline) Run(ctx context.Context, dst io.Writer) (*Report, error) {
	start := time.Now()
	report := &Report{Pipeline: p.cfg.Name}

	profile, _, err := p.profile(ctx, false)
	if err != nil {
		report.FailedStage = StageProfile
		report.Duration = time.Since(start)
		return report, err
	}
	if p.declared != nil {
		profile.Schema = p.declared
	}
	report.Schema = profile.Schema
	report.Comments = profile.Comments
	report.Footer = profile.Footer

	if err := p.typedPass(ctx, profile, dst, report); err != nil {
		report.Duration = time.Since(start)
		return report, err
	}

	report.Duration = time.Since(start)
	p.log.Info("run complete",
		zap.Int64("rows_written", report.RowsWritten),
		zap.Int("cast_errors", len(report.CastErrors)),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// typedPass is the second traversal: boundary detection again, then
// casting, statistics, and partition writing.
func (p *Pipeline) typedPass(ctx context.Context, profile *Profile, dst io.Writer, report *Report) error {
	castStart := time.Now()
	defer observeStage(p.cfg.Name, string(StageCast), castStart)

	src, err := p.open(ctx)
	if err != nil {
		report.FailedStage = StageSource
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to open source")
	}
	defer closePipe(src)

	ri := intuit.NewRowIntuiter(src, p.cfg.Intuition)
	caster, err := transform.NewCaster(profile.Schema, nil, p.registry)
	if err != nil {
		report.FailedStage = StageCast
		return err
	}

	counted := &countingWriter{w: dst}
	writer := partition.NewWriter(counted)
	// A failed run still reports how many rows made it through before
	// the failing stage.
	defer func() { report.RowsWritten = writer.RowCount() }()
	if err := writer.SetSchema(profile.Schema); err != nil {
		report.FailedStage = StageWrite
		return err
	}
	writer.Header.Comments = partition.CommentSection{
		Header: profile.Comments,
		Footer: profile.Footer,
	}
	writer.Header.RowSpec = partition.RowSpecSection{
		HeaderRows:    headerRowCount(profile),
		DataStartLine: profile.DataStart,
		DataEndLine:   profile.DataEnd,
	}

	sets := newStatSets(profile.Schema, p.cfg.Stats)
	for {
		raw, err := ri.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			report.FailedStage = StageCast
			return err
		}

		row, err := caster.Cast(raw)
		if err != nil {
			report.FailedStage = StageCast
			report.CastErrors = caster.Errors()
			return err
		}
		updateStatSets(sets, row)

		if err := writer.WriteRow(row); err != nil {
			report.FailedStage = StageWrite
			return err
		}
		rowsCast.WithLabelValues(p.cfg.Name).Inc()
	}

	report.Stats = finalizeStatSets(sets)
	writer.Header.Stats = report.Stats

	if err := writer.Close(); err != nil {
		report.FailedStage = StageWrite
		return err
	}

	report.CastErrors = caster.Errors()
	castErrors.WithLabelValues(p.cfg.Name).Add(float64(caster.ErrorCount()))
	partitionBytes.WithLabelValues(p.cfg.Name).Add(float64(counted.n))
	return nil
}

func newStatSets(s *schema.Schema, cfg config.StatsConfig) []*stats.StatSet {
	sets := make([]*stats.StatSet, s.Len())
	for i, col := range s.Columns() {
		sets[i] = stats.NewStatSet(col, cfg)
	}
	return sets
}

func updateStatSets(sets []*stats.StatSet, row rows.Row) {
	for i, set := range sets {
		if i < len(row) {
			set.Update(row[i])
		}
	}
}

func finalizeStatSets(sets []*stats.StatSet) []*stats.Report {
	reports := make([]*stats.Report, len(sets))
	for i, set := range sets {
		reports[i] = set.Finalize()
	}
	return reports
}

func headerRowCount(profile *Profile) int {
	if len(profile.Header) > 0 {
		return 1
	}
	return 0
}

func closePipe(p rows.Pipe) {
	if c, ok := p.(rows.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Get().Warn("failed to close source", zap.Error(err))
		}
	}
}

// countingWriter tracks compressed bytes written downstream.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
