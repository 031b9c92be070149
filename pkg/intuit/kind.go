// Package intuit infers the structure and the column types of a raw
// tabular stream from bounded samples: RowIntuiter finds where
// comments, header, and data begin and end; TypeIntuiter resolves a
// logical type per column.
package intuit

import (
	"strconv"
	"strings"

	"github.com/stratum-data/stratum/pkg/rows"
	stringpool "github.com/stratum-data/stratum/pkg/strings"
)

// Kind is the content-based classification of a single cell value.
// Membership is decided by what the value looks like, not by its Go
// type: "42" classifies as integer.
type Kind uint8

const (
	// KindEmpty is a cell with no value (nil, "", "-")
	KindEmpty Kind = 1 << iota
	// KindInteger is a cell whose content parses as an integer
	KindInteger
	// KindFloat is a cell whose content parses as a float but not an integer
	KindFloat
	// KindString is any other non-empty cell
	KindString
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Classify returns the content kind of a cell value.
func Classify(v interface{}) Kind {
	if rows.Nothing(v) {
		return KindEmpty
	}

	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInteger
	case float32, float64:
		return KindFloat
	}

	s := strings.TrimSpace(stringpool.ValueToString(v))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return KindString
	}
	// Integer only when the round trip through float loses nothing.
	if i, err := strconv.ParseInt(s, 10, 64); err == nil && float64(i) == f {
		return KindInteger
	}
	return KindFloat
}

// KindSet is the set of kinds a pattern column admits.
type KindSet uint8

// NewKindSet builds a set from kinds.
func NewKindSet(kinds ...Kind) KindSet {
	var set KindSet
	for _, k := range kinds {
		set |= KindSet(k)
	}
	return set
}

// Add adds a kind to the set.
func (s *KindSet) Add(k Kind) { *s |= KindSet(k) }

// Has reports set membership.
func (s KindSet) Has(k Kind) bool { return s&KindSet(k) != 0 }

// Pattern is the per-column admissible kind sets derived from a sample
// of rows. A pattern has exactly as many column sets as the widest
// sampled row has columns.
type Pattern []KindSet

// DerivePattern unions the classification of every cell of the sampled
// rows, column-wise.
func DerivePattern(sample []rows.Row) Pattern {
	width := 0
	for _, row := range sample {
		if len(row) > width {
			width = len(row)
		}
	}

	pattern := make(Pattern, width)
	for _, row := range sample {
		for i := 0; i < width; i++ {
			var v interface{}
			if i < len(row) {
				v = row[i]
			}
			pattern[i].Add(Classify(v))
		}
	}
	return pattern
}

// commentsPattern admits text in the first two columns and nothing
// anywhere else.
func commentsPattern(width int) Pattern {
	pattern := make(Pattern, width)
	for i := range pattern {
		if i < 2 {
			pattern[i] = NewKindSet(KindString, KindEmpty)
		} else {
			pattern[i] = NewKindSet(KindEmpty)
		}
	}
	return pattern
}

// headerPattern admits text or nothing in every column.
func headerPattern(width int) Pattern {
	pattern := make(Pattern, width)
	for i := range pattern {
		pattern[i] = NewKindSet(KindString, KindEmpty)
	}
	return pattern
}

// Match reports whether every cell of the row classifies into its
// column's admissible set. Cells beyond the pattern width must be
// empty.
func (p Pattern) Match(row rows.Row) bool {
	for i, set := range p {
		var v interface{}
		if i < len(row) {
			v = row[i]
		}
		if !set.Has(Classify(v)) {
			return false
		}
	}
	for i := len(p); i < len(row); i++ {
		if Classify(row[i]) != KindEmpty {
			return false
		}
	}
	return true
}

// stringRatio returns the fraction of cells classified as string.
func stringRatio(row rows.Row) float64 {
	if len(row) == 0 {
		return 0
	}
	n := 0
	for _, v := range row {
		if Classify(v) == KindString {
			n++
		}
	}
	return float64(n) / float64(len(row))
}
