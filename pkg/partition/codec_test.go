package partition

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stratum-data/stratum/pkg/errors"
	"github.com/stratum-data/stratum/pkg/rows"
	"github.com/stratum-data/stratum/pkg/schema"
	"github.com/stratum-data/stratum/pkg/stats"
)

func codecSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s := schema.NewSchema("codec")
	for _, col := range []*schema.Column{
		{Name: "id", Type: schema.TypeInteger},
		{Name: "name", Type: schema.TypeString},
		{Name: "score", Type: schema.TypeFloat},
		{Name: "day", Type: schema.TypeDate},
		{Name: "at", Type: schema.TypeTime},
		{Name: "ts", Type: schema.TypeDatetime},
	} {
		require.NoError(t, s.AddColumn(col))
	}
	return s
}

func TestRoundTrip(t *testing.T) {
	s := codecSchema(t)
	day := schema.NewDate(2024, time.March, 15)
	at := schema.NewTimeOfDay(10, 30, 0)
	ts := schema.NewTimestamp(time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC))

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.SetSchema(s))
	w.Header.Comments = CommentSection{
		Header: []string{"march extract"},
		Footer: []string{"totals omitted"},
	}
	w.Header.Source = SourceSection{URL: "http://example.org/data.csv", FileType: "csv"}
	w.Header.Stats = []*stats.Report{{Column: "id", LOM: "ordinal", Count: 2}}

	require.NoError(t, w.WriteRow(rows.Row{int64(1), "alpha", 2.5, day, at, ts}))
	require.NoError(t, w.WriteRow(rows.Row{int64(2), "beta", -0.5, day, at, ts}))
	require.NoError(t, w.Close())
	require.Equal(t, int64(2), w.RowCount())

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer r.Close()

	h := r.Header()
	require.Equal(t, []string{"id", "name", "score", "day", "at", "ts"}, h.ColumnNames())
	require.Equal(t, []string{"march extract"}, h.Comments.Header)
	require.Equal(t, []string{"totals omitted"}, h.Comments.Footer)
	require.Equal(t, "http://example.org/data.csv", h.Source.URL)
	require.Len(t, h.Stats, 1)
	require.Equal(t, "id", h.Stats[0].Column)

	ctx := context.Background()
	row, err := r.Next(ctx)
	require.NoError(t, err)
	require.Len(t, row, 6)
	require.EqualValues(t, 1, row[0])
	require.Equal(t, "alpha", row[1])
	require.InDelta(t, 2.5, row[2].(float64), 1e-9)
	require.Equal(t, "2024-03-15", row[3].(schema.Date).ISO())
	require.Equal(t, "10:30:00", row[4].(schema.TimeOfDay).ISO())
	require.Equal(t, ts.ISO(), row[5].(schema.Timestamp).ISO())

	row, err = r.Next(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, row[0])

	_, err = r.Next(ctx)
	require.Equal(t, io.EOF, err)
	require.Equal(t, int64(2), r.RowCount())
}

func TestAutoRowNumbering(t *testing.T) {
	s := schema.NewSchema("numbered")
	require.NoError(t, s.AddColumn(&schema.Column{Name: "id", Type: schema.TypeInteger}))
	require.NoError(t, s.AddColumn(&schema.Column{Name: "name", Type: schema.TypeString}))

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.SetSchema(s))
	first := rows.Row{nil, "alpha"}
	require.NoError(t, w.WriteRow(first))
	require.NoError(t, w.WriteRow(rows.Row{"", "beta"}))
	require.NoError(t, w.WriteRow(rows.Row{int64(99), "gamma"}))
	require.NoError(t, w.Close())

	// Numbering happens in the encode copy; the caller's row stays as
	// submitted.
	require.Nil(t, first[0])

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	ctx := context.Background()
	for _, want := range []int64{1, 2, 99} {
		row, err := r.Next(ctx)
		require.NoError(t, err)
		require.EqualValues(t, want, row[0])
	}
}

func TestZeroRowFile(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.SetSchema(codecSchema(t)))
	require.NoError(t, w.Close())

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, r.Header().Schema, 6)

	_, err = r.Next(context.Background())
	require.Equal(t, io.EOF, err)
	require.Equal(t, int64(0), r.RowCount())
}

func TestWriterRequiresSchema(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	err := w.WriteRow(rows.Row{int64(1)})
	require.Error(t, err)
	require.True(t, errors.IsType(err, errors.ErrorTypeFormat))
	require.Error(t, w.Close())
}

func TestReaderRejectsBadMagic(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("NOTAPARTITION")))
	require.Error(t, err)
	require.True(t, errors.IsType(err, errors.ErrorTypeFormat))
	require.True(t, errors.IsFatal(err))
}

func TestReaderRejectsBadVersion(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.SetSchema(codecSchema(t)))
	require.NoError(t, w.Close())

	data := buf.Bytes()
	data[8] = 0xFF // corrupt the version word

	_, err := NewReader(bytes.NewReader(data))
	require.Error(t, err)
	require.True(t, errors.IsType(err, errors.ErrorTypeFormat))
}

func TestReaderRejectsTruncatedHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.SetSchema(codecSchema(t)))
	require.NoError(t, w.Close())

	_, err := NewReader(bytes.NewReader(buf.Bytes()[:preambleSize+4]))
	require.Error(t, err)
	require.True(t, errors.IsType(err, errors.ErrorTypeFormat))
}

func TestPreambleLayout(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.SetSchema(codecSchema(t)))
	require.NoError(t, w.WriteRow(rows.Row{int64(1), "a", 1.0, nil, nil, nil}))
	require.NoError(t, w.Close())

	data := buf.Bytes()
	require.Equal(t, []byte("STRATUM"), data[:7])
	require.Equal(t, []byte{0x00, 0x01}, data[7:9]) // version, big-endian
}
