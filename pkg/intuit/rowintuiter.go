package intuit

import (
	"context"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/stratum-data/stratum/pkg/config"
	"github.com/stratum-data/stratum/pkg/errors"
	"github.com/stratum-data/stratum/pkg/logger"
	"github.com/stratum-data/stratum/pkg/rows"
	stringpool "github.com/stratum-data/stratum/pkg/strings"
)

// RowIntuiter locates where comments, header, and data begin and end
// inside a raw row stream and emits only the data rows. It buffers a
// bounded sample window up front and a bounded chunk thereafter; the
// whole source is never held in memory.
//
// RowIntuiter implements rows.Pipe over its upstream.
type RowIntuiter struct {
	cfg      config.IntuitionConfig
	upstream rows.Pipe
	log      *zap.Logger

	dataPattern Pattern

	header     *rows.Header
	headerRow  rows.Row
	comments   []string
	footer     []string
	headerIdx  int
	firstIdx   int
	lastIdx    int
	rowsSeen   int64
	emitted    int64

	queue    []rows.Row
	started  bool
	finished bool
}

// NewRowIntuiter wraps upstream with structural intuition using the
// given window and chunk sizes.
func NewRowIntuiter(upstream rows.Pipe, cfg config.IntuitionConfig) *RowIntuiter {
	return &RowIntuiter{
		cfg:       cfg,
		upstream:  upstream,
		log:       logger.With(zap.String("stage", "row_intuiter")),
		headerIdx: -1,
		firstIdx:  -1,
		lastIdx:   -1,
	}
}

// Header returns the intuited header, or nil when none was found.
// Valid after the first call to Next.
func (ri *RowIntuiter) Header() *rows.Header {
	return ri.header
}

// Comments returns the captured leading comment lines.
func (ri *RowIntuiter) Comments() []string {
	return ri.comments
}

// Footer returns the captured trailing footer lines.
func (ri *RowIntuiter) Footer() []string {
	return ri.footer
}

// Bounds returns the window-local indices of the first and last data
// rows and the header row (-1 when absent).
func (ri *RowIntuiter) Bounds() (header, first, last int) {
	return ri.headerIdx, ri.firstIdx, ri.lastIdx
}

// Emitted returns the number of data rows yielded so far.
func (ri *RowIntuiter) Emitted() int64 {
	return ri.emitted
}

// RowsSeen returns the number of raw rows pulled from upstream so far,
// structure rows included.
func (ri *RowIntuiter) RowsSeen() int64 {
	return ri.rowsSeen
}

// Next implements rows.Pipe; it yields only data rows.
func (ri *RowIntuiter) Next(ctx context.Context) (rows.Row, error) {
	if !ri.started {
		if err := ri.prime(ctx); err != nil {
			return nil, err
		}
		ri.started = true
	}

	for len(ri.queue) == 0 {
		if ri.finished {
			return nil, io.EOF
		}
		if err := ri.readChunk(ctx); err != nil {
			return nil, err
		}
	}

	row := ri.queue[0]
	ri.queue = ri.queue[1:]
	ri.emitted++
	return row, nil
}

// fill reads up to n rows from upstream, stopping early at EOF.
func (ri *RowIntuiter) fill(ctx context.Context, n int) ([]rows.Row, error) {
	buf := make([]rows.Row, 0, n)
	for len(buf) < n {
		row, err := ri.upstream.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		ri.rowsSeen++
		buf = append(buf, row)
	}
	return buf, nil
}

// prime buffers the sample window, derives the patterns, and finds the
// header, comments, and first/last data-row boundaries.
func (ri *RowIntuiter) prime(ctx context.Context) error {
	windowSize := ri.cfg.FirstRows + ri.cfg.DataSampleSize + ri.cfg.LastRows
	window, err := ri.fill(ctx, windowSize)
	if err != nil {
		return err
	}
	if len(window) < windowSize {
		ri.finished = true
	}
	if len(window) == 0 {
		return errors.New(errors.ErrorTypeNoMatch, "no data rows found: source is empty")
	}

	// Data pattern comes from the middle slice; for sources too small to
	// have one, fall back to the whole window.
	midStart := ri.cfg.FirstRows
	midEnd := len(window) - ri.cfg.LastRows
	if midStart >= midEnd {
		midStart, midEnd = 0, len(window)
		ri.log.Debug("window too small for a middle slice, sampling whole window",
			zap.Int("window", len(window)))
	}
	ri.dataPattern = DerivePattern(window[midStart:midEnd])

	width := len(ri.dataPattern)
	headerP := headerPattern(width)
	commentsP := commentsPattern(width)

	firstRows := ri.cfg.FirstRows
	if firstRows > len(window) {
		firstRows = len(window)
	}

	// Header: lowest-indexed row in the leading slice that matches the
	// header pattern with enough string cells. Soft failure.
	for i := 0; i < firstRows; i++ {
		if headerP.Match(window[i]) && stringRatio(window[i]) >= ri.cfg.HeaderStringRatio {
			ri.headerIdx = i
			ri.headerRow = window[i]
			ri.header = rows.NewHeader(CleanHeaderNames(window[i]))
			break
		}
	}
	if ri.headerIdx == -1 {
		ri.log.Warn("no header row found in leading rows",
			zap.Int("searched", firstRows))
	}

	// Comments: every leading row (other than the header) matching the
	// comments pattern.
	for i := 0; i < firstRows; i++ {
		if i == ri.headerIdx {
			continue
		}
		if commentsP.Match(window[i]) {
			if text := joinCells(window[i]); text != "" {
				ri.comments = append(ri.comments, text)
			}
		}
	}

	// First data row: lowest-indexed match in the full window. Fatal when
	// nothing matches.
	for i := range window {
		if ri.dataPattern.Match(window[i]) {
			ri.firstIdx = i
			break
		}
	}
	if ri.firstIdx == -1 {
		return errors.New(errors.ErrorTypeNoMatch, "no row matching the data pattern found in sample window").
			WithDetail("window_rows", len(window))
	}

	// Last data row: scan the trailing slice backward. Fatal when nothing
	// matches.
	tailStart := len(window) - ri.cfg.LastRows
	if tailStart < 0 {
		tailStart = 0
	}
	for i := len(window) - 1; i >= tailStart; i-- {
		if ri.dataPattern.Match(window[i]) {
			ri.lastIdx = i
			break
		}
	}
	if ri.lastIdx == -1 || ri.lastIdx < ri.firstIdx {
		return errors.New(errors.ErrorTypeNoMatch, "no trailing data row found in sample window").
			WithDetail("window_rows", len(window)).
			WithDetail("first_data_row", ri.firstIdx)
	}

	ri.log.Debug("sample window resolved",
		zap.Int("header_row", ri.headerIdx),
		zap.Int("first_data_row", ri.firstIdx),
		zap.Int("last_data_row", ri.lastIdx),
		zap.Int("comments", len(ri.comments)))

	for i := ri.firstIdx; i <= ri.lastIdx; i++ {
		if i == ri.headerIdx {
			continue
		}
		ri.queue = append(ri.queue, window[i])
	}
	// Rows trimmed after the last data row are footer, same as the rows
	// a chunk trims later.
	if ri.lastIdx < len(window)-1 {
		ri.captureFooter(window[ri.lastIdx+1:])
	}
	return nil
}

// readChunk processes one fixed-size chunk of the stream beyond the
// sample window, trimming any trailing footer it contains.
func (ri *RowIntuiter) readChunk(ctx context.Context) error {
	chunkSize := ri.cfg.ChunkDataSize + ri.cfg.ChunkFooterSize
	chunk, err := ri.fill(ctx, chunkSize)
	if err != nil {
		return err
	}
	if len(chunk) == 0 {
		ri.finished = true
		return nil
	}
	full := len(chunk) == chunkSize

	last := -1
	for i := len(chunk) - 1; i >= 0; i-- {
		if ri.dataPattern.Match(chunk[i]) {
			last = i
			break
		}
	}

	if last == -1 {
		// A full chunk with no data row is itself a trailing footer and
		// terminates the stream; a short chunk just ends it.
		ri.captureFooter(chunk)
		ri.finished = true
		return nil
	}

	ri.queue = append(ri.queue, chunk[:last+1]...)
	if last < len(chunk)-1 {
		ri.captureFooter(chunk[last+1:])
	}
	if !full {
		ri.finished = true
	}
	return nil
}

// captureFooter records discarded trailing rows as footer text.
func (ri *RowIntuiter) captureFooter(discarded []rows.Row) {
	for _, row := range discarded {
		if text := joinCells(row); text != "" {
			ri.footer = append(ri.footer, text)
		}
	}
}

// joinCells joins the non-empty cells of a row with single spaces.
func joinCells(row rows.Row) string {
	parts := make([]string, 0, len(row))
	for _, v := range row {
		if rows.Nothing(v) {
			continue
		}
		parts = append(parts, strings.TrimSpace(stringpool.ValueToString(v)))
	}
	return stringpool.Join(parts, " ")
}

// CleanHeaderNames turns a raw header row into usable column names:
// whitespace collapsed, empties synthesized as col_N, duplicates
// suffixed with their occurrence count.
func CleanHeaderNames(row rows.Row) []string {
	names := make([]string, len(row))
	seen := make(map[string]int, len(row))
	for i, v := range row {
		name := strings.Join(strings.Fields(stringpool.ValueToString(v)), " ")
		if name == "" {
			name = stringpool.Sprintf("col_%d", i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = stringpool.Sprintf("%s_%d", name, n+1)
		}
		if _, ok := seen[name]; !ok {
			seen[name] = 1
		}
		names[i] = name
	}
	return names
}
