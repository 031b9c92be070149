package intuit

import (
	"github.com/stratum-data/stratum/pkg/schema"
)

// Column accumulates type evidence for one source column: counts of
// classified values per tag, a bounded recency buffer of distinct
// string values for preview, and the number of successful date/time
// heuristic matches. A column is created lazily on the first row that
// reaches its position and is never mutated after intuition finishes.
type Column struct {
	Position int
	Name     string

	countEmpty    int
	countInteger  int
	countFloat    int
	countString   int
	countDate     int
	countTime     int
	countDatetime int

	dateHits int
	recency  *recencyBuffer
}

func newColumn(position int, name string, recencyCap int) *Column {
	return &Column{
		Position: position,
		Name:     name,
		recency:  newRecencyBuffer(recencyCap),
	}
}

// Count returns the number of classified (non-empty) values seen.
func (c *Column) Count() int {
	return c.countInteger + c.countFloat + c.countString +
		c.countDate + c.countTime + c.countDatetime
}

// EmptyCount returns the number of empty-like values seen.
func (c *Column) EmptyCount() int {
	return c.countEmpty
}

// StringValues returns the buffered distinct string values, oldest
// first, for preview.
func (c *Column) StringValues() []string {
	return c.recency.Values()
}

// Resolve returns the column's dominant logical type. Columns where
// string-classified values exceed the given ratio resolve to string
// regardless of other tags; otherwise precedence is datetime > date >
// time > float > integer > string.
func (c *Column) Resolve(stringRatio float64) schema.Type {
	total := c.Count()
	if total == 0 {
		return schema.TypeUnknown
	}

	if float64(c.countString)/float64(total) > stringRatio {
		return schema.TypeString
	}

	switch {
	case c.countDatetime > 0:
		return schema.TypeDatetime
	case c.countDate > 0:
		return schema.TypeDate
	case c.countTime > 0:
		return schema.TypeTime
	case c.countFloat > 0:
		return schema.TypeFloat
	case c.countInteger > 0:
		return schema.TypeInteger
	default:
		return schema.TypeString
	}
}

// HasCodes reports whether the column resolved to a numeric or
// temporal type while also carrying string-classified values,
// signalling sentinel codes mixed into the data.
func (c *Column) HasCodes(stringRatio float64) bool {
	t := c.Resolve(stringRatio)
	return (t.IsNumber() || t.IsDate() || t.IsTime()) && c.countString > 0
}

// merge folds another column's evidence into this one. Used when two
// intuiters ran over separate chunks of the same source.
func (c *Column) merge(o *Column) {
	c.countEmpty += o.countEmpty
	c.countInteger += o.countInteger
	c.countFloat += o.countFloat
	c.countString += o.countString
	c.countDate += o.countDate
	c.countTime += o.countTime
	c.countDatetime += o.countDatetime
	c.dateHits += o.dateHits
	for _, s := range o.recency.Values() {
		c.recency.Add(s)
	}
}

// recencyBuffer keeps up to cap distinct strings, evicting the oldest
// once full.
type recencyBuffer struct {
	capacity int
	seen     map[string]struct{}
	order    []string
}

func newRecencyBuffer(capacity int) *recencyBuffer {
	return &recencyBuffer{
		capacity: capacity,
		seen:     make(map[string]struct{}, capacity),
	}
}

// Add inserts a value unless already buffered, evicting the oldest
// entry when at capacity.
func (b *recencyBuffer) Add(s string) {
	if _, ok := b.seen[s]; ok {
		return
	}
	if len(b.order) >= b.capacity {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.seen, oldest)
	}
	b.seen[s] = struct{}{}
	b.order = append(b.order, s)
}

// Values returns the buffered values, oldest first.
func (b *recencyBuffer) Values() []string {
	return b.order
}
