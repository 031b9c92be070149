package intuit

import (
	"context"
	"io"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratum-data/stratum/pkg/config"
	"github.com/stratum-data/stratum/pkg/errors"
	"github.com/stratum-data/stratum/pkg/rows"
)

func intuitionConfig() config.IntuitionConfig {
	return config.IntuitionConfig{
		FirstRows:         20,
		DataSampleSize:    1000,
		LastRows:          20,
		ChunkDataSize:     100,
		ChunkFooterSize:   20,
		HeaderStringRatio: 0.4,
	}
}

func dataRow(i int) rows.Row {
	return rows.Row{strconv.Itoa(i), "item_" + strconv.Itoa(i), strconv.FormatFloat(float64(i)+0.5, 'f', 1, 64)}
}

// buildStream assembles comments, a header, n data rows, and footer
// lines into a raw source.
func buildStream(comments []string, header bool, n int, footer []string) []rows.Row {
	var stream []rows.Row
	for _, c := range comments {
		stream = append(stream, rows.Row{c, "", ""})
	}
	if header {
		stream = append(stream, rows.Row{"id", "name", "amount"})
	}
	for i := 0; i < n; i++ {
		stream = append(stream, dataRow(i))
	}
	for _, f := range footer {
		stream = append(stream, rows.Row{f, "", ""})
	}
	return stream
}

func drain(t *testing.T, ri *RowIntuiter) []rows.Row {
	t.Helper()
	var out []rows.Row
	ctx := context.Background()
	for {
		row, err := ri.Next(ctx)
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, row)
	}
}

func TestRowIntuiterFindsStructure(t *testing.T) {
	comments := []string{"Quarterly report", "Compiled by the registry"}
	footer := []string{"Totals may not add up", "See notes", "End of file"}
	src := rows.NewSliceSource(buildStream(comments, true, 1200, footer))

	ri := NewRowIntuiter(src, intuitionConfig())
	emitted := drain(t, ri)

	require.Len(t, emitted, 1200)
	require.Equal(t, int64(1200), ri.Emitted())

	require.NotNil(t, ri.Header())
	require.Equal(t, []string{"id", "name", "amount"}, ri.Header().Names())

	require.Equal(t, comments, ri.Comments())
	require.Equal(t, footer, ri.Footer())

	headerIdx, first, last := ri.Bounds()
	require.Equal(t, 2, headerIdx)
	require.Equal(t, 3, first)
	require.Greater(t, last, first)

	// Data rows come through in source order.
	require.Equal(t, dataRow(0), emitted[0])
	require.Equal(t, dataRow(1199), emitted[1199])
}

// The emitted count must equal the data row count regardless of how
// the stream length lines up with the sample window and chunk sizes.
func TestRowIntuiterChunkBoundaries(t *testing.T) {
	for _, n := range []int{1037, 1038, 1100, 1156, 1157, 1277, 1278, 1500} {
		src := rows.NewSliceSource(buildStream([]string{"note"}, true, n, nil))
		ri := NewRowIntuiter(src, intuitionConfig())
		emitted := drain(t, ri)
		require.Len(t, emitted, n, "data rows lost or duplicated at n=%d", n)
	}
}

func TestRowIntuiterFooterOnlyChunk(t *testing.T) {
	// Exactly fill the sample window with structure + data, then follow
	// with a full chunk of footer rows.
	stream := buildStream([]string{"note", "more"}, true, 1037, nil)
	for i := 0; i < 120; i++ {
		stream = append(stream, rows.Row{"end of data", "", ""})
	}
	src := rows.NewSliceSource(stream)

	ri := NewRowIntuiter(src, intuitionConfig())
	emitted := drain(t, ri)

	require.Len(t, emitted, 1037)
	require.Len(t, ri.Footer(), 120)
}

func TestRowIntuiterSmallSource(t *testing.T) {
	// A source smaller than the window falls back to sampling the whole
	// window for the data pattern.
	src := rows.NewSliceSource(buildStream(nil, false, 5, nil))

	ri := NewRowIntuiter(src, intuitionConfig())
	emitted := drain(t, ri)

	require.Len(t, emitted, 5)
	require.Nil(t, ri.Header())
}

func TestRowIntuiterSmallSourceFooter(t *testing.T) {
	// Footer rows inside the sample window are captured just like the
	// ones a later chunk trims.
	footer := []string{"Totals omitted", "End of file"}
	src := rows.NewSliceSource(buildStream(nil, true, 50, footer))

	ri := NewRowIntuiter(src, intuitionConfig())
	emitted := drain(t, ri)

	require.Len(t, emitted, 50)
	require.Equal(t, footer, ri.Footer())
}

func TestRowIntuiterHeaderExcludedFromData(t *testing.T) {
	// With a tiny source, the derived pattern admits the header row too;
	// it must still be emitted as a header, not as data.
	src := rows.NewSliceSource(buildStream(nil, true, 10, nil))

	ri := NewRowIntuiter(src, intuitionConfig())
	emitted := drain(t, ri)

	require.Len(t, emitted, 10)
	require.NotNil(t, ri.Header())
	for _, row := range emitted {
		require.NotEqual(t, rows.Row{"id", "name", "amount"}, row)
	}
}

func TestRowIntuiterEmptySource(t *testing.T) {
	src := rows.NewSliceSource(nil)
	ri := NewRowIntuiter(src, intuitionConfig())

	_, err := ri.Next(context.Background())
	require.Error(t, err)
	require.True(t, errors.IsType(err, errors.ErrorTypeNoMatch))
}

func TestRowIntuiterCancellation(t *testing.T) {
	src := rows.NewSliceSource(buildStream(nil, true, 100, nil))
	ri := NewRowIntuiter(src, intuitionConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ri.Next(ctx)
	require.Error(t, err)
	require.NotEqual(t, io.EOF, err)
}
