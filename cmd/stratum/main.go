package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stratum-data/stratum/internal/pipeline"
	"github.com/stratum-data/stratum/pkg/config"
	"github.com/stratum-data/stratum/pkg/json"
	"github.com/stratum-data/stratum/pkg/logger"
	"github.com/stratum-data/stratum/pkg/partition"
	"github.com/stratum-data/stratum/pkg/rows"
	"github.com/stratum-data/stratum/pkg/source"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	var configFile string
	var logLevel string
	var delimiter string
	var spans []string

	root := &cobra.Command{
		Use:   "stratum",
		Short: "Stratum - tabular data profiling and partition builder",
		Long: `Stratum profiles delimited and fixed-width tabular files, intuits their
structure and column types, and serializes them into typed, compressed
partition files.`,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "pipeline configuration file (YAML)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVarP(&delimiter, "delimiter", "d", "", "field delimiter override")
	root.PersistentFlags().StringSliceVar(&spans, "span", nil, "fixed-width column span name=start-end (repeatable; switches to fixed-width parsing)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Stratum v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "profile <source>",
		Short: "Profile a source file and print the intuited structure, types, and statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile, args[0], logLevel, delimiter)
			if err != nil {
				return err
			}
			p, err := pipeline.New(cfg, sourceFactory(cfg, args[0], spans), nil)
			if err != nil {
				return err
			}
			profile, err := p.Profile(signalContext())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), profile)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "ingest <source> <partition>",
		Short: "Profile a source file and write it as a typed partition file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile, args[0], logLevel, delimiter)
			if err != nil {
				return err
			}
			p, err := pipeline.New(cfg, sourceFactory(cfg, args[0], spans), nil)
			if err != nil {
				return err
			}

			dst, err := os.Create(args[1])
			if err != nil {
				return err
			}
			report, runErr := p.Run(signalContext(), dst)
			if closeErr := dst.Close(); closeErr != nil && runErr == nil {
				runErr = closeErr
			}
			if runErr != nil {
				os.Remove(args[1])
				if report != nil && report.FailedStage != "" {
					logger.Error("ingest failed",
						zap.String("stage", string(report.FailedStage)),
						zap.Error(runErr))
				}
				return runErr
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	})

	var inspectRows int
	inspectCmd := &cobra.Command{
		Use:   "inspect <partition>",
		Short: "Print a partition file's header and leading rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initLogger(logLevel); err != nil {
				return err
			}
			return inspect(cmd.OutOrStdout(), args[0], inspectRows)
		},
	}
	inspectCmd.Flags().IntVar(&inspectRows, "rows", 10, "number of rows to print (-1 for all)")
	root.AddCommand(inspectCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig builds the pipeline configuration from the optional YAML
// file plus command-line overrides, and initializes the global logger.
func loadConfig(path, name, logLevel, delimiter string) (*config.PipelineConfig, error) {
	var cfg *config.PipelineConfig
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.NewPipelineConfig(name)
	}
	if delimiter != "" {
		cfg.Source.Delimiter = delimiter
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Encoding:    cfg.Logging.Encoding,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initLogger(level string) error {
	if level == "" {
		level = "info"
	}
	return logger.Init(logger.Config{Level: level, Encoding: "console"})
}

// sourceFactory returns a factory producing fresh pipes over the file:
// fixed-width when spans are given, delimited otherwise.
func sourceFactory(cfg *config.PipelineConfig, path string, spans []string) pipeline.SourceFactory {
	return func(ctx context.Context) (rows.Pipe, error) {
		if len(spans) > 0 {
			parsed, err := parseSpans(spans)
			if err != nil {
				return nil, err
			}
			return source.NewFixedWidthSource(path, parsed)
		}
		return source.NewCSVSource(path, cfg.Source)
	}
}

// parseSpans parses name=start-end span flags into column spans.
func parseSpans(raw []string) ([]source.ColumnSpan, error) {
	spans := make([]source.ColumnSpan, 0, len(raw))
	for _, item := range raw {
		name, rng, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("invalid span %q: expected name=start-end", item)
		}
		from, to, ok := strings.Cut(rng, "-")
		if !ok {
			return nil, fmt.Errorf("invalid span %q: expected name=start-end", item)
		}
		start, err := strconv.Atoi(from)
		if err != nil {
			return nil, fmt.Errorf("invalid span %q: %w", item, err)
		}
		end, err := strconv.Atoi(to)
		if err != nil {
			return nil, fmt.Errorf("invalid span %q: %w", item, err)
		}
		spans = append(spans, source.ColumnSpan{Name: name, Start: start, End: end})
	}
	return spans, nil
}

// inspect reads a partition file and prints its header block followed
// by up to n decoded rows as JSON lines.
func inspect(out io.Writer, path string, n int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := partition.NewReader(f)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := printJSON(out, r.Header()); err != nil {
		return err
	}

	ctx := signalContext()
	names := r.RowHeader().Names()
	for n < 0 || r.RowCount() < int64(n) {
		row, err := r.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		record := make(map[string]interface{}, len(names))
		for i, name := range names {
			if i < len(row) {
				record[name] = row[i]
			}
		}
		line, err := json.Marshal(record)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(line))
	}
	return nil
}

func printJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}
