package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratum-data/stratum/pkg/config"
	"github.com/stratum-data/stratum/pkg/rows"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func drainSource(t *testing.T, p rows.Pipe) []rows.Row {
	t.Helper()
	var out []rows.Row
	for {
		row, err := p.Next(context.Background())
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, row)
	}
}

func TestCSVSource(t *testing.T) {
	path := writeFile(t, "data.csv", "id,name\n1,alpha\n2,beta\n")

	src, err := NewCSVSource(path, config.SourceConfig{Delimiter: ","})
	require.NoError(t, err)
	defer src.Close()

	got := drainSource(t, src)
	require.Len(t, got, 3)
	require.Equal(t, rows.Row{"id", "name"}, got[0])
	require.Equal(t, rows.Row{"2", "beta"}, got[2])
	require.Equal(t, int64(3), src.RowCount())
}

func TestCSVSourceRaggedRows(t *testing.T) {
	// Comment and footer lines have fewer fields than the data; the
	// reader must pass them through untouched.
	path := writeFile(t, "ragged.csv", "a note\nid,name,amount\n1,alpha,2.5\ntotal\n")

	src, err := NewCSVSource(path, config.SourceConfig{Delimiter: ","})
	require.NoError(t, err)
	defer src.Close()

	got := drainSource(t, src)
	require.Len(t, got, 4)
	require.Equal(t, rows.Row{"a note"}, got[0])
	require.Equal(t, rows.Row{"total"}, got[3])
}

func TestCSVSourceTab(t *testing.T) {
	path := writeFile(t, "data.tsv", "1\talpha\n2\tbeta\n")

	src, err := NewCSVSource(path, config.SourceConfig{Delimiter: "\\t"})
	require.NoError(t, err)
	defer src.Close()

	got := drainSource(t, src)
	require.Equal(t, rows.Row{"1", "alpha"}, got[0])
}

func TestCSVSourceMissingFile(t *testing.T) {
	_, err := NewCSVSource(filepath.Join(t.TempDir(), "missing.csv"), config.SourceConfig{Delimiter: ","})
	require.Error(t, err)
}

func TestCSVSourceClosed(t *testing.T) {
	path := writeFile(t, "data.csv", "1,2\n")
	src, err := NewCSVSource(path, config.SourceConfig{Delimiter: ","})
	require.NoError(t, err)
	require.NoError(t, src.Close())
	require.NoError(t, src.Close()) // idempotent

	_, err = src.Next(context.Background())
	require.Equal(t, io.EOF, err)
}

func TestFixedWidthSource(t *testing.T) {
	path := writeFile(t, "data.txt", "001  alpha  2.5\n002  beta \n")

	src, err := NewFixedWidthSource(path, []ColumnSpan{
		{Name: "id", Start: 0, End: 3},
		{Name: "name", Start: 5, End: 10},
		{Name: "score", Start: 12, End: 15},
	})
	require.NoError(t, err)
	defer src.Close()

	got := drainSource(t, src)
	require.Len(t, got, 2)
	require.Equal(t, rows.Row{"001", "alpha", "2.5"}, got[0])
	// Spans past the line end clamp to empty cells.
	require.Equal(t, rows.Row{"002", "beta", ""}, got[1])
}

func TestFixedWidthSourceValidation(t *testing.T) {
	path := writeFile(t, "data.txt", "x\n")

	_, err := NewFixedWidthSource(path, nil)
	require.Error(t, err)

	_, err = NewFixedWidthSource(path, []ColumnSpan{{Name: "bad", Start: 5, End: 2}})
	require.Error(t, err)
}
