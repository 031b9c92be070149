package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPipelineConfigDefaults(t *testing.T) {
	cfg := NewPipelineConfig("test")

	require.Equal(t, 20, cfg.Intuition.FirstRows)
	require.Equal(t, 1000, cfg.Intuition.DataSampleSize)
	require.Equal(t, 20, cfg.Intuition.LastRows)
	require.Equal(t, 100, cfg.Intuition.ChunkDataSize)
	require.Equal(t, 20, cfg.Intuition.ChunkFooterSize)
	require.Equal(t, 0.2, cfg.Types.StringRatio)
	require.Equal(t, 1000, cfg.Types.DateAttempts)
	require.Equal(t, 5000, cfg.Stats.PrimingThreshold)
	require.Equal(t, 16, cfg.Stats.HistogramBins)
	require.Equal(t, 50, cfg.Stats.OrdinalCutoff)
	require.NoError(t, cfg.Validate())
}

func TestValidateFillsDefaults(t *testing.T) {
	cfg := &PipelineConfig{Name: "partial"}
	cfg.Intuition.FirstRows = 5

	require.NoError(t, cfg.Validate())
	require.Equal(t, 5, cfg.Intuition.FirstRows)
	require.Equal(t, 1000, cfg.Intuition.DataSampleSize)
	require.Equal(t, ",", cfg.Source.Delimiter)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := NewPipelineConfig("bad")
	cfg.Types.StringRatio = 1.5
	require.Error(t, cfg.Validate())

	cfg = NewPipelineConfig("bad")
	cfg.Stats.HistogramBins = 1
	require.Error(t, cfg.Validate())

	cfg = NewPipelineConfig("bad")
	cfg.Source.Delimiter = ",,"
	require.Error(t, cfg.Validate())
}

func TestDelimiterRune(t *testing.T) {
	require.Equal(t, ',', (&SourceConfig{Delimiter: ","}).DelimiterRune())
	require.Equal(t, '|', (&SourceConfig{Delimiter: "|"}).DelimiterRune())
	require.Equal(t, '\t', (&SourceConfig{Delimiter: "\\t"}).DelimiterRune())
	require.Equal(t, '\t', (&SourceConfig{Delimiter: "\t"}).DelimiterRune())
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")

	cfg := NewPipelineConfig("roundtrip")
	cfg.Source.Delimiter = "|"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "roundtrip", loaded.Name)
	require.Equal(t, "|", loaded.Source.Delimiter)
	require.Equal(t, cfg.Stats, loaded.Stats)
}

func TestLoadSubstitutesEnvVars(t *testing.T) {
	t.Setenv("STRATUM_TEST_NAME", "from-env")

	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	doc := "name: ${STRATUM_TEST_NAME}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
