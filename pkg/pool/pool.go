// Package pool provides typed object pooling for Stratum's hot paths.
// Rows flow through every stage of the pipeline, so the row slices and
// cast-error accumulators they carry are recycled rather than
// reallocated per row.
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool represents a generic object pool with type safety. It wraps
// sync.Pool with statistics tracking and an optional reset function
// applied before objects re-enter the pool. Safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	new   func() T
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		hits      int64
	}
}

// New creates a new typed pool with custom allocation and reset functions.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{
		new:   newFn,
		reset: reset,
	}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return newFn()
	}
	return p
}

// Get retrieves an object from the pool, creating one if the pool is empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	obj := p.pool.Get().(T)
	atomic.AddInt64(&p.stats.hits, 1)
	return obj
}

// Put returns an object to the pool for reuse, resetting it first if a
// reset function was configured.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns allocation count, objects currently checked out, and
// total successful Gets.
func (p *Pool[T]) Stats() (allocated, inUse, hits int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.hits)
}

// Global row-slice pool. Capacity 32 covers the column counts of
// typical tabular sources without regrowth.
var rowPool = New(
	func() []interface{} { return make([]interface{}, 0, 32) },
	nil,
)

// GetRow fetches a pooled row slice with length n.
func GetRow(n int) []interface{} {
	row := rowPool.Get()
	if cap(row) < n {
		row = make([]interface{}, n)
	} else {
		row = row[:n]
	}
	for i := range row {
		row[i] = nil
	}
	return row
}

// PutRow returns a row slice to the pool.
func PutRow(row []interface{}) {
	if row == nil {
		return
	}
	rowPool.Put(row[:0])
}

// Global string-slice pool for raw (pre-cast) rows.
var stringRowPool = New(
	func() []string { return make([]string, 0, 32) },
	nil,
)

// GetStringRow fetches a pooled string slice with length n.
func GetStringRow(n int) []string {
	row := stringRowPool.Get()
	if cap(row) < n {
		row = make([]string, n)
	} else {
		row = row[:n]
	}
	for i := range row {
		row[i] = ""
	}
	return row
}

// PutStringRow returns a string slice to the pool.
func PutStringRow(row []string) {
	if row == nil {
		return
	}
	stringRowPool.Put(row[:0])
}
