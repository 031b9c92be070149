package intuit

import (
	"context"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/stratum-data/stratum/pkg/config"
	"github.com/stratum-data/stratum/pkg/logger"
	"github.com/stratum-data/stratum/pkg/rows"
	"github.com/stratum-data/stratum/pkg/schema"
	stringpool "github.com/stratum-data/stratum/pkg/strings"
)

// TypeIntuiter classifies each column's dominant logical type from the
// values flowing through it. Columns are kept in a position-indexed
// arena with a name lookup built from the header.
type TypeIntuiter struct {
	cfg config.TypeConfig
	log *zap.Logger

	header  *rows.Header
	columns []*Column
	byName  map[string]int

	dateAttempts int
	dateStreak   bool
	rowsSampled  int64
}

// NewTypeIntuiter creates a type intuiter.
func NewTypeIntuiter(cfg config.TypeConfig) *TypeIntuiter {
	return &TypeIntuiter{
		cfg:    cfg,
		log:    logger.With(zap.String("stage", "type_intuiter")),
		byName: make(map[string]int),
	}
}

// SetHeader supplies column names for lazily created columns.
func (ti *TypeIntuiter) SetHeader(h *rows.Header) {
	ti.header = h
}

// ProcessRow feeds one row of evidence.
func (ti *TypeIntuiter) ProcessRow(row rows.Row) {
	for i, v := range row {
		ti.columnAt(i).observe(ti, v)
	}
	ti.rowsSampled++
}

// columnAt returns the column at position i, creating it on first use.
func (ti *TypeIntuiter) columnAt(i int) *Column {
	for len(ti.columns) <= i {
		pos := len(ti.columns)
		name := ""
		if ti.header != nil && pos < ti.header.Len() {
			name = ti.header.Names()[pos]
		}
		if name == "" {
			name = stringpool.Sprintf("col_%d", pos)
		}
		col := newColumn(pos, name, ti.cfg.RecencyCapacity)
		ti.columns = append(ti.columns, col)
		ti.byName[name] = pos
	}
	return ti.columns[i]
}

// Column returns the column accumulated at position i, or nil.
func (ti *TypeIntuiter) Column(i int) *Column {
	if i < 0 || i >= len(ti.columns) {
		return nil
	}
	return ti.columns[i]
}

// ColumnByName returns the column with the given name.
func (ti *TypeIntuiter) ColumnByName(name string) *Column {
	i, ok := ti.byName[name]
	if !ok {
		return nil
	}
	return ti.columns[i]
}

// Columns returns the column arena in position order.
func (ti *TypeIntuiter) Columns() []*Column {
	return ti.columns
}

// RowsSampled returns how many rows have been fed.
func (ti *TypeIntuiter) RowsSampled() int64 {
	return ti.rowsSampled
}

// Merge folds another intuiter's evidence into this one; used when the
// source was profiled in separate chunks. Resolved types obey the
// promotion ordering via the summed counts.
func (ti *TypeIntuiter) Merge(o *TypeIntuiter) {
	for i, col := range o.columns {
		ti.columnAt(i).merge(col)
	}
	ti.rowsSampled += o.rowsSampled
}

// Schema builds an output schema from the resolved column types.
// Unknown columns are kept, typed unknown, so positional order is
// preserved for the caster.
func (ti *TypeIntuiter) Schema(name string) (*schema.Schema, error) {
	s := schema.NewSchema(name)
	for _, col := range ti.columns {
		resolved := col.Resolve(ti.cfg.StringRatio)
		sc := &schema.Column{
			Name:     col.Name,
			Type:     resolved,
			HasCodes: col.HasCodes(ti.cfg.StringRatio),
		}
		if err := s.AddColumn(sc); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// observe classifies one value into the column's counters.
func (c *Column) observe(ti *TypeIntuiter, v interface{}) {
	switch Classify(v) {
	case KindEmpty:
		c.countEmpty++
		return
	case KindInteger:
		c.countInteger++
		return
	case KindFloat:
		c.countFloat++
		return
	}

	s := strings.TrimSpace(stringpool.ValueToString(v))

	// The temporal heuristic runs while under the global attempt cap, or
	// past it for as long as it keeps succeeding.
	if looksTemporal(s) && (ti.dateAttempts < ti.cfg.DateAttempts || ti.dateStreak) {
		ti.dateAttempts++
		switch parseTemporal(s) {
		case schema.TypeDate:
			ti.dateStreak = true
			c.countDate++
			c.dateHits++
			return
		case schema.TypeTime:
			ti.dateStreak = true
			c.countTime++
			c.dateHits++
			return
		case schema.TypeDatetime:
			ti.dateStreak = true
			c.countDatetime++
			c.dateHits++
			return
		default:
			ti.dateStreak = false
		}
	}

	c.countString++
	c.recency.Add(s)
}

// looksTemporal gates the parse attempt: the value must contain a
// date-like separator and at least one digit.
func looksTemporal(s string) bool {
	if !strings.ContainsAny(s, "-/:") {
		return false
	}
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

var (
	datetimeLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"01/02/2006 15:04:05",
		"01/02/2006 15:04",
	}
	dateLayouts = []string{
		"2006-01-02",
		"2006/01/02",
		"01/02/2006",
		"02-01-2006",
	}
	timeLayouts = []string{
		"15:04:05",
		"15:04",
	}
)

// parseTemporal attempts a best-effort date/time parse and reports
// which components were present: date-only, time-only, or both.
// Returns TypeUnknown when nothing parses.
func parseTemporal(s string) schema.Type {
	for _, layout := range datetimeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return schema.TypeDatetime
		}
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return schema.TypeDate
		}
	}
	for _, layout := range timeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return schema.TypeTime
		}
	}
	return schema.TypeUnknown
}

// tap is a pass-through pipe that feeds every row to the intuiter.
type tap struct {
	ti       *TypeIntuiter
	upstream rows.Pipe
}

// Pipe returns a pass-through stage over upstream that samples every
// row flowing by.
func (ti *TypeIntuiter) Pipe(upstream rows.Pipe) rows.Pipe {
	return &tap{ti: ti, upstream: upstream}
}

// Next implements rows.Pipe.
func (t *tap) Next(ctx context.Context) (rows.Row, error) {
	row, err := t.upstream.Next(ctx)
	if err != nil {
		return nil, err
	}
	t.ti.ProcessRow(row)
	return row, nil
}
