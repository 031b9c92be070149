// Package strings provides zero-copy string utilities and pooled builders for Stratum
package strings

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unsafe"
)

// BytesToString converts byte slice to string without allocation
// WARNING: The returned string shares memory with the byte slice.
// Do not modify the byte slice after calling this function.
func BytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// StringToBytes converts string to byte slice without allocation
// WARNING: The returned byte slice shares memory with the string.
// Do not modify the returned slice.
func StringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// Clone returns a copy of s backed by fresh memory, detaching it from
// any pooled buffer it may have been built in.
func Clone(s string) string {
	return strings.Clone(s)
}

// BuilderSize selects a pooled builder bucket.
type BuilderSize int

const (
	// Small is for strings up to ~1KB
	Small BuilderSize = iota
	// Medium is for strings up to ~16KB
	Medium
	// Large is for anything bigger
	Large
)

var builderPools = [3]sync.Pool{
	{New: func() interface{} { return newBuilder(256) }},
	{New: func() interface{} { return newBuilder(4 * 1024) }},
	{New: func() interface{} { return newBuilder(64 * 1024) }},
}

// Builder is a byte-backed string builder suitable for pooling.
type Builder struct {
	buf []byte
}

func newBuilder(capacity int) *Builder {
	return &Builder{buf: make([]byte, 0, capacity)}
}

// Write implements io.Writer.
func (b *Builder) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// WriteString appends a string to the builder.
func (b *Builder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteByte appends a single byte.
func (b *Builder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// String returns the built string. The result shares memory with the
// builder; Clone it before returning the builder to a pool.
func (b *Builder) String() string {
	return BytesToString(b.buf)
}

// Bytes returns the builder's backing slice without copying.
func (b *Builder) Bytes() []byte { return b.buf }

// Len returns the current length in bytes.
func (b *Builder) Len() int { return len(b.buf) }

// Reset truncates the builder for reuse.
func (b *Builder) Reset() { b.buf = b.buf[:0] }

// GetBuilder fetches a pooled builder of the given size class.
func GetBuilder(size BuilderSize) *Builder {
	b := builderPools[size].Get().(*Builder)
	b.Reset()
	return b
}

// PutBuilder returns a builder to its pool.
func PutBuilder(b *Builder, size BuilderSize) {
	builderPools[size].Put(b)
}

// Sprintf formats using a pooled builder instead of fmt.Sprintf's
// internal allocations. The result is cloned out of the pool.
func Sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}

	size := Small
	if estimated := len(format) + len(args)*16; estimated > 16*1024 {
		size = Large
	} else if estimated > 1024 {
		size = Medium
	}

	builder := GetBuilder(size)
	defer PutBuilder(builder, size)

	fmt.Fprintf(builder, format, args...)
	return Clone(builder.String())
}

// Join joins parts with delimiter using a pooled builder.
func Join(parts []string, delimiter string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}

	total := (len(parts) - 1) * len(delimiter)
	for _, s := range parts {
		total += len(s)
	}

	size := Small
	if total > 16*1024 {
		size = Large
	} else if total > 1024 {
		size = Medium
	}

	builder := GetBuilder(size)
	defer PutBuilder(builder, size)

	for i, s := range parts {
		if i > 0 {
			builder.WriteString(delimiter)
		}
		builder.WriteString(s)
	}
	return Clone(builder.String())
}

// ValueToString renders a cell value as a string with fast paths for
// the types the pipeline actually produces.
func ValueToString(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []byte:
		return BytesToString(v)
	default:
		return Sprintf("%v", value)
	}
}
