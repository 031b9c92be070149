// Package partition implements the durable row container: a fixed
// binary preamble, a deflate-compressed self-describing header block,
// and a gzip-compressed stream of individually encoded rows. Files are
// written once, closed, and read sequentially from the first row.
//
// On-disk layout, all integers big-endian:
//
//	magic   7 bytes  "STRATUM"
//	version uint16   format version
//	offset  int32    byte offset of the row stream
//	header  deflate-compressed msgpack FileHeader record
//	rows    gzip stream of msgpack-encoded rows, starting at offset
package partition

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/stratum-data/stratum/pkg/schema"
	"github.com/stratum-data/stratum/pkg/stats"
)

// Magic is the 7-byte container magic token.
var Magic = [7]byte{'S', 'T', 'R', 'A', 'T', 'U', 'M'}

// Version is the current format version.
const Version uint16 = 1

// preambleSize is magic + version + offset.
const preambleSize = 7 + 2 + 4

// Msgpack extension tags for temporal cell values. Each payload is an
// ISO-8601 string.
const (
	extDate      = 1
	extTimeOfDay = 2
	extTimestamp = 3
)

func init() {
	msgpack.RegisterExt(extDate, (*schema.Date)(nil))
	msgpack.RegisterExt(extTimeOfDay, (*schema.TimeOfDay)(nil))
	msgpack.RegisterExt(extTimestamp, (*schema.Timestamp)(nil))
}

// ColumnDesc is one schema entry of the header block. Schema order
// defines row field order for every row in the body.
type ColumnDesc struct {
	Position    int    `msgpack:"pos" json:"pos"`
	Name        string `msgpack:"name" json:"name"`
	Type        string `msgpack:"type" json:"type"`
	Description string `msgpack:"description" json:"description,omitempty"`
}

// GeoSection carries spatial metadata for geographic sources.
type GeoSection struct {
	SRID        int        `msgpack:"srid" json:"srid,omitempty"`
	BoundingBox [4]float64 `msgpack:"bbox" json:"bbox,omitempty"`
}

// ExcelSection carries spreadsheet-origin metadata.
type ExcelSection struct {
	// DateMode is the workbook's date epoch mode (0 = 1900, 1 = 1904)
	DateMode  int    `msgpack:"datemode" json:"datemode,omitempty"`
	Worksheet string `msgpack:"worksheet" json:"worksheet,omitempty"`
}

// SourceSection records where the raw data came from.
type SourceSection struct {
	URL       string    `msgpack:"url" json:"url,omitempty"`
	FetchTime time.Time `msgpack:"fetch_time" json:"fetch_time,omitempty"`
	FileType  string    `msgpack:"file_type" json:"file_type,omitempty"`
	InnerFile string    `msgpack:"inner_file" json:"inner_file,omitempty"`
}

// RowSpecSection is the row-span bookkeeping of the source.
type RowSpecSection struct {
	HeaderRows    int `msgpack:"header_rows" json:"header_rows"`
	DataStartLine int `msgpack:"data_start_line" json:"data_start_line"`
	DataEndLine   int `msgpack:"data_end_line" json:"data_end_line"`
}

// CommentSection holds the comment text captured around the data.
type CommentSection struct {
	Header []string `msgpack:"header" json:"header,omitempty"`
	Footer []string `msgpack:"footer" json:"footer,omitempty"`
}

// FileHeader is the self-describing header block of a partition file.
type FileHeader struct {
	Schema   []ColumnDesc    `msgpack:"schema" json:"schema"`
	Geo      GeoSection      `msgpack:"geo" json:"geo"`
	Excel    ExcelSection    `msgpack:"excel" json:"excel"`
	Source   SourceSection   `msgpack:"source" json:"source"`
	RowSpec  RowSpecSection  `msgpack:"row_spec" json:"row_spec"`
	Comments CommentSection  `msgpack:"comments" json:"comments"`
	Stats    []*stats.Report `msgpack:"stats" json:"stats,omitempty"`
}

// SetSchema fills the header's schema section from a schema.
func (h *FileHeader) SetSchema(s *schema.Schema) {
	descs := make([]ColumnDesc, 0, s.Len())
	for _, col := range s.Columns() {
		descs = append(descs, ColumnDesc{
			Position:    col.Position,
			Name:        col.Name,
			Type:        col.Type.String(),
			Description: col.Description,
		})
	}
	h.Schema = descs
}

// ColumnNames returns the header's schema names in position order.
func (h *FileHeader) ColumnNames() []string {
	names := make([]string, len(h.Schema))
	for i, desc := range h.Schema {
		names[i] = desc.Name
	}
	return names
}
