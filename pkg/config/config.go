// Package config provides the unified configuration system for Stratum.
// A single PipelineConfig structure carries every tunable of the
// ingestion pipeline, organized into sections mirroring the stages:
// structural intuition, type intuition, statistics, and the partition
// codec. All constants default to the values the on-disk format and the
// intuition heuristics were calibrated against; changing them changes
// what the pipeline accepts, not just how fast it runs.
package config

import (
	"fmt"
	"time"
)

// PipelineConfig is the configuration for one pipeline run.
type PipelineConfig struct {
	// Name identifies the run (usually the source identifier)
	Name string `yaml:"name" json:"name"`

	// Intuition settings for structural boundary detection
	Intuition IntuitionConfig `yaml:"intuition" json:"intuition"`

	// Types settings for per-column type inference
	Types TypeConfig `yaml:"types" json:"types"`

	// Stats settings for online column statistics
	Stats StatsConfig `yaml:"stats" json:"stats"`

	// Source settings for reading the raw stream
	Source SourceConfig `yaml:"source" json:"source"`

	// Logging configures the structured logger
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// IntuitionConfig controls the RowIntuiter sample window and chunking.
type IntuitionConfig struct {
	// FirstRows is the leading slice searched for comments and the header
	FirstRows int `yaml:"first_rows" json:"first_rows"`
	// DataSampleSize is the middle slice the data pattern is derived from
	DataSampleSize int `yaml:"data_sample_size" json:"data_sample_size"`
	// LastRows is the trailing slice scanned backward for the last data row
	LastRows int `yaml:"last_rows" json:"last_rows"`
	// ChunkDataSize is the data portion of each streamed chunk
	ChunkDataSize int `yaml:"chunk_data_size" json:"chunk_data_size"`
	// ChunkFooterSize is the footer allowance of each streamed chunk
	ChunkFooterSize int `yaml:"chunk_footer_size" json:"chunk_footer_size"`
	// HeaderStringRatio is the minimum fraction of string cells a header
	// row must have (inclusive)
	HeaderStringRatio float64 `yaml:"header_string_ratio" json:"header_string_ratio"`
}

// TypeConfig controls the TypeIntuiter.
type TypeConfig struct {
	// StringRatio is the string-tag fraction above which a column
	// resolves to string regardless of other tags
	StringRatio float64 `yaml:"string_ratio" json:"string_ratio"`
	// DateAttempts caps global date/time heuristic attempts
	DateAttempts int `yaml:"date_attempts" json:"date_attempts"`
	// RecencyCapacity bounds the per-column distinct value buffer
	RecencyCapacity int `yaml:"recency_capacity" json:"recency_capacity"`
}

// StatsConfig controls the StatSet engine.
type StatsConfig struct {
	// PrimingThreshold is the number of values collected before the
	// histogram range is fixed
	PrimingThreshold int `yaml:"priming_threshold" json:"priming_threshold"`
	// HistogramBins is the fixed histogram bin count
	HistogramBins int `yaml:"histogram_bins" json:"histogram_bins"`
	// OrdinalCutoff is the distinct-value count below which a primed
	// interval column is demoted to ordinal treatment
	OrdinalCutoff int `yaml:"ordinal_cutoff" json:"ordinal_cutoff"`
	// TopValues is how many most-frequent values are reported
	TopValues int `yaml:"top_values" json:"top_values"`
}

// SourceConfig controls the raw row source.
type SourceConfig struct {
	// Delimiter for CSV/TSV sources; "\t" selects TSV
	Delimiter string `yaml:"delimiter" json:"delimiter"`
	// Comment is an optional comment rune stripped by the reader itself;
	// usually unset, the RowIntuiter handles comment rows structurally
	Comment string `yaml:"comment" json:"comment"`
	// ReadTimeout bounds a single Next call; zero means no timeout
	ReadTimeout time.Duration `yaml:"read_timeout" json:"read_timeout"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level"`
	Development bool   `yaml:"development" json:"development"`
	Encoding    string `yaml:"encoding" json:"encoding"`
}

// NewPipelineConfig returns a PipelineConfig with calibrated defaults.
func NewPipelineConfig(name string) *PipelineConfig {
	return &PipelineConfig{
		Name: name,
		Intuition: IntuitionConfig{
			FirstRows:         20,
			DataSampleSize:    1000,
			LastRows:          20,
			ChunkDataSize:     100,
			ChunkFooterSize:   20,
			HeaderStringRatio: 0.4,
		},
		Types: TypeConfig{
			StringRatio:     0.2,
			DateAttempts:    1000,
			RecencyCapacity: 1000,
		},
		Stats: StatsConfig{
			PrimingThreshold: 5000,
			HistogramBins:    16,
			OrdinalCutoff:    50,
			TopValues:        100,
		},
		Source: SourceConfig{
			Delimiter: ",",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Validate checks the configuration and fills zero-valued fields with
// defaults so a partially specified YAML document still runs.
func (c *PipelineConfig) Validate() error {
	defaults := NewPipelineConfig(c.Name)

	if c.Intuition.FirstRows == 0 {
		c.Intuition.FirstRows = defaults.Intuition.FirstRows
	}
	if c.Intuition.DataSampleSize == 0 {
		c.Intuition.DataSampleSize = defaults.Intuition.DataSampleSize
	}
	if c.Intuition.LastRows == 0 {
		c.Intuition.LastRows = defaults.Intuition.LastRows
	}
	if c.Intuition.ChunkDataSize == 0 {
		c.Intuition.ChunkDataSize = defaults.Intuition.ChunkDataSize
	}
	if c.Intuition.ChunkFooterSize == 0 {
		c.Intuition.ChunkFooterSize = defaults.Intuition.ChunkFooterSize
	}
	if c.Intuition.HeaderStringRatio == 0 {
		c.Intuition.HeaderStringRatio = defaults.Intuition.HeaderStringRatio
	}
	if c.Types.StringRatio == 0 {
		c.Types.StringRatio = defaults.Types.StringRatio
	}
	if c.Types.DateAttempts == 0 {
		c.Types.DateAttempts = defaults.Types.DateAttempts
	}
	if c.Types.RecencyCapacity == 0 {
		c.Types.RecencyCapacity = defaults.Types.RecencyCapacity
	}
	if c.Stats.PrimingThreshold == 0 {
		c.Stats.PrimingThreshold = defaults.Stats.PrimingThreshold
	}
	if c.Stats.HistogramBins == 0 {
		c.Stats.HistogramBins = defaults.Stats.HistogramBins
	}
	if c.Stats.OrdinalCutoff == 0 {
		c.Stats.OrdinalCutoff = defaults.Stats.OrdinalCutoff
	}
	if c.Stats.TopValues == 0 {
		c.Stats.TopValues = defaults.Stats.TopValues
	}
	if c.Source.Delimiter == "" {
		c.Source.Delimiter = defaults.Source.Delimiter
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if c.Logging.Encoding == "" {
		c.Logging.Encoding = defaults.Logging.Encoding
	}

	if c.Intuition.FirstRows < 1 {
		return fmt.Errorf("intuition.first_rows must be positive, got %d", c.Intuition.FirstRows)
	}
	if c.Intuition.ChunkDataSize < 1 || c.Intuition.ChunkFooterSize < 1 {
		return fmt.Errorf("intuition chunk sizes must be positive, got %d+%d",
			c.Intuition.ChunkDataSize, c.Intuition.ChunkFooterSize)
	}
	if c.Types.StringRatio <= 0 || c.Types.StringRatio >= 1 {
		return fmt.Errorf("types.string_ratio must be in (0,1), got %g", c.Types.StringRatio)
	}
	if c.Stats.HistogramBins < 2 {
		return fmt.Errorf("stats.histogram_bins must be at least 2, got %d", c.Stats.HistogramBins)
	}
	if len(c.Source.Delimiter) != 1 && c.Source.Delimiter != "\\t" {
		return fmt.Errorf("source.delimiter must be a single character, got %q", c.Source.Delimiter)
	}
	return nil
}

// DelimiterRune returns the configured delimiter as a rune.
func (c *SourceConfig) DelimiterRune() rune {
	if c.Delimiter == "\\t" || c.Delimiter == "\t" {
		return '\t'
	}
	for _, r := range c.Delimiter {
		return r
	}
	return ','
}
