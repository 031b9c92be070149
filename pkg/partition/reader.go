package partition

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/stratum-data/stratum/pkg/compression"
	"github.com/stratum-data/stratum/pkg/errors"
	"github.com/stratum-data/stratum/pkg/rows"
	"github.com/stratum-data/stratum/pkg/schema"
)

// Reader reads a partition file sequentially: preamble, header block,
// then a lazy, forward-only, non-restartable row sequence. Exactly one
// reader owns the underlying stream.
type Reader struct {
	src io.Reader

	header    *FileHeader
	rowHeader *rows.Header

	rowStream  io.ReadCloser
	rowDecoder *msgpack.Decoder
	streamOpen bool
	exhausted  bool
	rowCount   int64
}

// NewReader validates the preamble against the expected magic and
// version and decodes the header block. The underlying reader is left
// positioned exactly at the row stream offset.
func NewReader(src io.Reader) (*Reader, error) {
	preamble := make([]byte, preambleSize)
	if _, err := io.ReadFull(src, preamble); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFormat, "failed to read preamble")
	}

	if !bytes.Equal(preamble[:7], Magic[:]) {
		return nil, errors.New(errors.ErrorTypeFormat, "bad magic token: not a partition file").
			WithDetail("magic", string(preamble[:7]))
	}
	version := binary.BigEndian.Uint16(preamble[7:9])
	if version != Version {
		return nil, errors.New(errors.ErrorTypeFormat, "unsupported format version").
			WithDetail("version", version).
			WithDetail("supported", Version)
	}
	offset := int32(binary.BigEndian.Uint32(preamble[9:13]))
	if offset < preambleSize {
		return nil, errors.New(errors.ErrorTypeFormat, "data offset overlaps preamble").
			WithDetail("offset", offset)
	}

	// The header block spans exactly [preambleSize, offset).
	blockLen := int64(offset) - preambleSize
	deflated := make([]byte, blockLen)
	if _, err := io.ReadFull(src, deflated); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFormat, "failed to read header block")
	}

	comp, err := compression.NewCompressor(&compression.Config{Algorithm: compression.Deflate})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create header decompressor")
	}
	encoded, err := comp.Decompress(deflated)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFormat, "failed to inflate header block")
	}

	header := &FileHeader{}
	if err := msgpack.Unmarshal(encoded, header); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFormat, "failed to decode header block")
	}

	return &Reader{
		src:       src,
		header:    header,
		rowHeader: rows.NewHeader(header.ColumnNames()),
	}, nil
}

// Header returns the decoded file header.
func (r *Reader) Header() *FileHeader {
	return r.header
}

// RowHeader returns the schema-derived header for name-based access.
func (r *Reader) RowHeader() *rows.Header {
	return r.rowHeader
}

// RowCount returns the number of rows decoded so far.
func (r *Reader) RowCount() int64 {
	return r.rowCount
}

// Next implements rows.Pipe over the row stream. A file written with
// zero rows has no row stream; Next returns io.EOF immediately.
func (r *Reader) Next(ctx context.Context) (rows.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "read cancelled")
	}
	if r.exhausted {
		return nil, io.EOF
	}

	if !r.streamOpen {
		stream, err := compression.NewReader(compression.Gzip, r.src)
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				r.exhausted = true
				return nil, io.EOF
			}
			return nil, errors.Wrap(err, errors.ErrorTypeFormat, "failed to open row stream")
		}
		r.rowStream = stream
		r.rowDecoder = msgpack.NewDecoder(stream)
		r.streamOpen = true
	}

	var cells []interface{}
	if err := r.rowDecoder.Decode(&cells); err != nil {
		if err == io.EOF {
			r.exhausted = true
			return nil, io.EOF
		}
		// Unrecognized value tags and truncation are fatal at the point of
		// failure; rows already yielded remain valid.
		return nil, errors.Wrap(err, errors.ErrorTypeFormat, "failed to decode row").
			WithDetail("row", r.rowCount)
	}

	r.rowCount++
	return decodeRow(cells), nil
}

// decodeRow normalizes decoded cell values, reversing the temporal
// encoding hooks where the msgpack layer surfaced pointer values.
func decodeRow(cells []interface{}) rows.Row {
	row := make(rows.Row, len(cells))
	for i, v := range cells {
		switch t := v.(type) {
		case *schema.Date:
			row[i] = *t
		case *schema.TimeOfDay:
			row[i] = *t
		case *schema.Timestamp:
			row[i] = *t
		default:
			row[i] = v
		}
	}
	return row
}

// Close releases the row stream.
func (r *Reader) Close() error {
	r.exhausted = true
	if r.rowStream != nil {
		return r.rowStream.Close()
	}
	return nil
}
