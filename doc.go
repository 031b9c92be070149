// Package stratum profiles messy tabular sources and serializes them
// into typed, compressed partition files.
//
// Raw files arrive with leading comments, header rows, and trailing
// footers mixed in with the data. Stratum intuits the structure from a
// bounded sample, infers a typed schema from the data rows, casts every
// cell through compiled per-column converters, accumulates column
// statistics, and writes the result as a self-describing binary
// partition: a fixed preamble, a deflate-compressed msgpack header
// block, and a gzip row stream.
//
// # Quick Start
//
// Profile and ingest a CSV file:
//
//	import (
//	    "context"
//	    "os"
//
//	    "github.com/stratum-data/stratum/internal/pipeline"
//	    "github.com/stratum-data/stratum/pkg/config"
//	    "github.com/stratum-data/stratum/pkg/rows"
//	    "github.com/stratum-data/stratum/pkg/source"
//	)
//
//	cfg := config.NewPipelineConfig("my-dataset")
//	open := func(ctx context.Context) (rows.Pipe, error) {
//	    return source.NewCSVSource("data.csv", cfg.Source)
//	}
//
//	p, _ := pipeline.New(cfg, open, nil)
//	dst, _ := os.Create("data.part")
//	report, err := p.Run(context.Background(), dst)
//
// # Key Packages
//
//	pkg/source     - CSV and fixed-width row sources
//	pkg/intuit     - structural boundary detection and type inference
//	pkg/transform  - compiled per-schema cell casting
//	pkg/stats      - streaming column statistics
//	pkg/partition  - partition file codec
//	pkg/schema     - typed schema model and temporal value types
package stratum
