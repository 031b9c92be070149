// Package rows defines the row model shared by every pipeline stage:
// an ordered slice of cell values, a header giving name-based access,
// and the pull-based Pipe contract stages consume and produce.
package rows

import (
	"context"
	"io"

	"github.com/stratum-data/stratum/pkg/errors"
)

// Row is an ordered sequence of cell values. Cells are untyped strings
// upstream of the caster and typed values downstream of it.
type Row []interface{}

// Clone returns a copy of the row backed by fresh memory.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Header is an ordered list of column names with a name index built
// once. Positional order of a header defines the positional order of
// every data row in the same run.
type Header struct {
	names []string
	index map[string]int
}

// NewHeader builds a header from ordered column names.
func NewHeader(names []string) *Header {
	h := &Header{
		names: names,
		index: make(map[string]int, len(names)),
	}
	for i, name := range names {
		if _, ok := h.index[name]; !ok {
			h.index[name] = i
		}
	}
	return h
}

// Names returns the ordered column names.
func (h *Header) Names() []string {
	return h.names
}

// Len returns the number of columns.
func (h *Header) Len() int {
	return len(h.names)
}

// Index returns the position of the named column and whether it exists.
// Duplicate names resolve to the first occurrence.
func (h *Header) Index(name string) (int, bool) {
	i, ok := h.index[name]
	return i, ok
}

// Proxy is a row view supporting positional and name-based access
// against a shared header.
type Proxy struct {
	Row    Row
	Header *Header
}

// Get returns the cell at position i, or nil when out of range.
func (p Proxy) Get(i int) interface{} {
	if i < 0 || i >= len(p.Row) {
		return nil
	}
	return p.Row[i]
}

// GetName returns the cell under the named column, or nil when the
// column is absent from the header or the row is short.
func (p Proxy) GetName(name string) interface{} {
	if p.Header == nil {
		return nil
	}
	i, ok := p.Header.Index(name)
	if !ok {
		return nil
	}
	return p.Get(i)
}

// Len returns the row's cardinality.
func (p Proxy) Len() int {
	return len(p.Row)
}

// Pipe is the contract between pipeline stages: a lazy, forward-only
// sequence of rows. Next returns io.EOF when the sequence ends. A
// downstream stage suspends its upstream by simply not calling Next.
// The first row of a raw source is conventionally the header when one
// is known.
type Pipe interface {
	// Next returns the next row. It returns io.EOF at end of stream and
	// respects cancellation of ctx.
	Next(ctx context.Context) (Row, error)
}

// Closer is implemented by pipes holding resources that must be
// released when a run ends early.
type Closer interface {
	Close() error
}

// SliceSource is an in-memory Pipe over a fixed set of rows, used by
// tests and generators.
type SliceSource struct {
	rows []Row
	pos  int
}

// NewSliceSource returns a Pipe yielding the given rows in order.
func NewSliceSource(rows []Row) *SliceSource {
	return &SliceSource{rows: rows}
}

// Next implements Pipe.
func (s *SliceSource) Next(ctx context.Context) (Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "source cancelled")
	}
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

// FromStrings converts a slice of string cells to a Row.
func FromStrings(cells []string) Row {
	row := make(Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
