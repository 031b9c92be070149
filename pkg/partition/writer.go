package partition

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/stratum-data/stratum/pkg/compression"
	"github.com/stratum-data/stratum/pkg/errors"
	"github.com/stratum-data/stratum/pkg/logger"
	"github.com/stratum-data/stratum/pkg/pool"
	"github.com/stratum-data/stratum/pkg/rows"
	"github.com/stratum-data/stratum/pkg/schema"
)

// Writer writes one partition file. Exactly one writer may own the
// underlying stream; it must not be shared across concurrent callers.
// Rows are gzip-compressed into an internal buffer as they arrive, so
// the header stays mutable until Close; the offset in the preamble is
// computed once the header block's compressed size is known. A file
// closed with zero rows carries no row stream at all.
type Writer struct {
	dst io.Writer
	log *zap.Logger

	// Header is mutable until Close.
	Header *FileHeader

	rowBuf     bytes.Buffer
	rowStream  io.WriteCloser
	rowEncoder *msgpack.Encoder
	rowCount   int64
	closed     bool
}

// NewWriter creates a writer over dst with an empty header.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{
		dst:    dst,
		log:    logger.With(zap.String("stage", "partition_writer")),
		Header: &FileHeader{},
	}
}

// SetSchema sets the header's schema section.
func (w *Writer) SetSchema(s *schema.Schema) error {
	if w.closed {
		return errors.New(errors.ErrorTypeFormat, "schema cannot change after the file is written")
	}
	w.Header.SetSchema(s)
	return nil
}

// WriteRow appends one encoded row to the compressed row stream. When
// the row's first field is empty, it is filled with a 1-based running
// row number.
func (w *Writer) WriteRow(row rows.Row) error {
	if w.closed {
		return errors.New(errors.ErrorTypeFormat, "writer is closed")
	}
	if len(w.Header.Schema) == 0 {
		return errors.New(errors.ErrorTypeFormat, "cannot write rows without a schema")
	}

	if w.rowStream == nil {
		stream, err := compression.NewWriter(compression.Gzip, &w.rowBuf, compression.Default)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to open row stream")
		}
		w.rowStream = stream
		w.rowEncoder = msgpack.NewEncoder(stream)
	}

	encoded, err := encodeRow(row)
	if err != nil {
		return err
	}
	// Auto-numbering goes into the encode copy; the caller's row is
	// never mutated.
	if len(encoded) > 0 && rows.Nothing(encoded[0]) {
		encoded[0] = w.rowCount + 1
	}
	err = w.rowEncoder.Encode(encoded)
	pool.PutRow(encoded)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFormat, "failed to encode row").
			WithDetail("row", w.rowCount+1)
	}
	w.rowCount++
	return nil
}

// encodeRow applies the cell encoding hooks: values exposing a custom
// serialization method are replaced by their wire form, and temporal
// values are rewritten to pointers because the msgpack extensions are
// registered on the pointer types and the encoder cannot address a
// value sitting in an interface cell. The returned slice is pooled;
// the caller returns it with pool.PutRow once encoded.
func encodeRow(row rows.Row) ([]interface{}, error) {
	out := pool.GetRow(len(row))
	for i, v := range row {
		if vm, ok := v.(schema.ValueMarshaler); ok {
			cell, err := vm.MarshalCell()
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeFormat, "cell serialization failed")
			}
			out[i] = cell
			continue
		}
		switch t := v.(type) {
		case schema.Date:
			out[i] = &t
		case schema.TimeOfDay:
			out[i] = &t
		case schema.Timestamp:
			out[i] = &t
		default:
			out[i] = v
		}
	}
	return out, nil
}

// RowCount returns the number of rows written.
func (w *Writer) RowCount() int64 {
	return w.rowCount
}

// Close finalizes the row stream, serializes and compresses the header
// block, and writes preamble, header, and rows to the destination. The
// file is immutable afterwards.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if len(w.Header.Schema) == 0 {
		return errors.New(errors.ErrorTypeFormat, "cannot write partition without a schema")
	}
	if w.rowStream != nil {
		if err := w.rowStream.Close(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to close row stream")
		}
	}

	encoded, err := msgpack.Marshal(w.Header)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFormat, "failed to encode header block")
	}

	comp, err := compression.NewCompressor(&compression.Config{
		Algorithm: compression.Deflate,
		Level:     compression.Best,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create header compressor")
	}
	deflated, err := comp.Compress(encoded)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFormat, "failed to compress header block")
	}

	preamble := make([]byte, preambleSize)
	copy(preamble, Magic[:])
	binary.BigEndian.PutUint16(preamble[7:9], Version)
	offset := int32(preambleSize + len(deflated))
	binary.BigEndian.PutUint32(preamble[9:13], uint32(offset))

	if _, err := w.dst.Write(preamble); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write preamble")
	}
	if _, err := w.dst.Write(deflated); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write header block")
	}
	if w.rowBuf.Len() > 0 {
		if _, err := w.dst.Write(w.rowBuf.Bytes()); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write row stream")
		}
	}

	w.log.Debug("partition written",
		zap.Int("header_bytes", len(deflated)),
		zap.Int32("data_offset", offset),
		zap.Int64("rows", w.rowCount))
	return nil
}
