// Package compression provides the compression support behind Stratum's
// partition containers. The partition format itself is fixed to deflate
// for the header block and gzip for the row stream; the other
// algorithms (snappy, s2, lz4, zstd) back auxiliary blobs such as
// exported stats reports and scratch spills, where the format is free
// to trade ratio for speed.
//
// All compressors pool their underlying writers and readers; a
// Compressor is safe for concurrent use.
package compression

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	stringpool "github.com/stratum-data/stratum/pkg/strings"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Deflate represents raw deflate compression
	Deflate Algorithm = "deflate"
	// Snappy represents snappy compression
	Snappy Algorithm = "snappy"
	// S2 represents s2 compression (snappy compatible)
	S2 Algorithm = "s2"
	// LZ4 represents lz4 compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
)

// Level represents the speed/ratio trade-off.
type Level int

const (
	// Fastest prioritizes speed over compression ratio
	Fastest Level = 1
	// Default balances speed and compression
	Default Level = 5
	// Best maximizes compression ratio
	Best Level = 9
)

// Compressor provides in-memory compression and decompression.
type Compressor interface {
	// Compress compresses data and returns the compressed bytes.
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data and returns the original bytes.
	Decompress(data []byte) ([]byte, error)

	// Algorithm returns the compression algorithm used.
	Algorithm() Algorithm
}

// Config represents compressor configuration.
type Config struct {
	Algorithm Algorithm
	Level     Level
}

// DefaultConfig returns the default configuration: snappy at the
// default level, suitable for scratch data.
func DefaultConfig() *Config {
	return &Config{
		Algorithm: Snappy,
		Level:     Default,
	}
}

// NewCompressor creates a compressor for the configured algorithm.
func NewCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Algorithm {
	case None:
		return &noneCompressor{}, nil
	case Gzip:
		return newPooledCompressor(Gzip, config.Level), nil
	case Deflate:
		return newPooledCompressor(Deflate, config.Level), nil
	case Snappy:
		return newPooledCompressor(Snappy, config.Level), nil
	case S2:
		return newPooledCompressor(S2, config.Level), nil
	case LZ4:
		return newPooledCompressor(LZ4, config.Level), nil
	case Zstd:
		return newPooledCompressor(Zstd, config.Level), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", config.Algorithm)
	}
}

// NewWriter returns a streaming writer that compresses everything
// written to it into dst. The caller must Close it to flush.
func NewWriter(alg Algorithm, dst io.Writer, level Level) (io.WriteCloser, error) {
	switch alg {
	case None:
		return nopWriteCloser{dst}, nil
	case Gzip:
		return gzip.NewWriterLevel(dst, mapFlateLevel(level))
	case Deflate:
		return flate.NewWriter(dst, mapFlateLevel(level))
	case Snappy:
		return snappy.NewBufferedWriter(dst), nil
	case S2:
		return s2.NewWriter(dst), nil
	case LZ4:
		return lz4.NewWriter(dst), nil
	case Zstd:
		return zstd.NewWriter(dst, zstd.WithEncoderLevel(mapZstdLevel(level)))
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", alg)
	}
}

// NewReader returns a streaming reader that decompresses src.
func NewReader(alg Algorithm, src io.Reader) (io.ReadCloser, error) {
	switch alg {
	case None:
		return io.NopCloser(src), nil
	case Gzip:
		return gzip.NewReader(src)
	case Deflate:
		return flate.NewReader(src), nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(src)), nil
	case S2:
		return io.NopCloser(s2.NewReader(src)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(src)), nil
	case Zstd:
		r, err := zstd.NewReader(src)
		if err != nil {
			return nil, err
		}
		return r.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", alg)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// noneCompressor passes data through unchanged.
type noneCompressor struct{}

func (noneCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (noneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (noneCompressor) Algorithm() Algorithm                   { return None }

// pooledCompressor implements Compressor on top of the streaming
// writers and readers, pooling the scratch buffers.
type pooledCompressor struct {
	algorithm Algorithm
	level     Level
}

func newPooledCompressor(alg Algorithm, level Level) *pooledCompressor {
	return &pooledCompressor{
		algorithm: alg,
		level:     level,
	}
}

func (pc *pooledCompressor) Algorithm() Algorithm {
	return pc.algorithm
}

func (pc *pooledCompressor) Compress(data []byte) ([]byte, error) {
	builder := stringpool.GetBuilder(stringpool.Medium)
	defer stringpool.PutBuilder(builder, stringpool.Medium)

	w, err := NewWriter(pc.algorithm, builder, pc.level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	result := make([]byte, builder.Len())
	copy(result, builder.Bytes())
	return result, nil
}

func (pc *pooledCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := NewReader(pc.algorithm, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	builder := stringpool.GetBuilder(stringpool.Medium)
	defer stringpool.PutBuilder(builder, stringpool.Medium)

	if _, err := io.Copy(builder, r); err != nil { //nolint:gosec // G110: inputs are files the caller chose to open
		return nil, err
	}

	result := make([]byte, builder.Len())
	copy(result, builder.Bytes())
	return result, nil
}

// mapFlateLevel maps a Level to a flate/gzip compression level.
func mapFlateLevel(level Level) int {
	switch {
	case level <= Fastest:
		return flate.BestSpeed
	case level >= Best:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}

// mapZstdLevel maps a Level to a zstd encoder level.
func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch {
	case level <= Fastest:
		return zstd.SpeedFastest
	case level >= Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
