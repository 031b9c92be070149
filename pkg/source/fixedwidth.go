package source

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/stratum-data/stratum/pkg/errors"
	"github.com/stratum-data/stratum/pkg/rows"
)

// ColumnSpan describes one column of a fixed-width text file as a
// half-open byte range [Start, End) within each line.
type ColumnSpan struct {
	Name  string `yaml:"name" json:"name"`
	Start int    `yaml:"start" json:"start"`
	End   int    `yaml:"end" json:"end"`
}

// FixedWidthSource reads fixed-width text as a lazy row stream, slicing
// each line by the configured spans. Cell values are trimmed.
type FixedWidthSource struct {
	file    *os.File
	scanner *bufio.Scanner
	spans   []ColumnSpan

	rowCount int64
	closed   bool
}

// NewFixedWidthSource opens path with the given column spans.
func NewFixedWidthSource(path string, spans []ColumnSpan) (*FixedWidthSource, error) {
	if len(spans) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "fixed-width source requires at least one column span")
	}
	for _, sp := range spans {
		if sp.Start < 0 || sp.End <= sp.Start {
			return nil, errors.New(errors.ErrorTypeValidation, "invalid column span").
				WithDetail("column", sp.Name).
				WithDetail("start", sp.Start).
				WithDetail("end", sp.End)
		}
	}

	file, err := os.Open(path) //nolint:gosec // G304: path is the caller's input file
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open source file")
	}

	return &FixedWidthSource{
		file:    file,
		scanner: bufio.NewScanner(file),
		spans:   spans,
	}, nil
}

// Next implements rows.Pipe.
func (s *FixedWidthSource) Next(ctx context.Context) (rows.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "read cancelled")
	}
	if s.closed {
		return nil, io.EOF
	}

	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read line").
				WithDetail("row", s.rowCount)
		}
		return nil, io.EOF
	}

	line := s.scanner.Text()
	row := make(rows.Row, len(s.spans))
	for i, sp := range s.spans {
		start, end := sp.Start, sp.End
		if start > len(line) {
			start = len(line)
		}
		if end > len(line) {
			end = len(line)
		}
		row[i] = strings.TrimSpace(line[start:end])
	}

	s.rowCount++
	return row, nil
}

// Close releases the underlying file.
func (s *FixedWidthSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}
