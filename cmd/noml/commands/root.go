package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/noml-lang/noml-go/pkg/telemetry"
)

var (
	// Global flags
	verbose    bool
	jsonOutput bool
	traceSpans bool

	// Built once per invocation in the root PersistentPreRunE.
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "noml",
		Short: "NOML - Nested Object Markup Language toolkit",
		Long: `NOML is a configuration language for humans: tables, arrays, typed
literals, environment lookups, interpolation, and includes.

This tool parses, resolves, validates, and formats NOML documents.

Features:
  - Syntax validation with precise error positions
  - Full resolution (env lookups, interpolation, includes, typed literals)
  - Canonical formatting that preserves comments
  - Optional schema validation`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}

			cfg := telemetry.DefaultConfig()
			cfg.ServiceVersion = version
			if traceSpans {
				cfg.Tracing.Enabled = true
				cfg.Tracing.Exporter = "stdout"
			}
			if addr := os.Getenv("NOML_METRICS_ADDR"); addr != "" {
				cfg.Metrics.Enabled = true
				cfg.Metrics.ListenAddress = addr
			}

			var err error
			if metrics, err = telemetry.NewMetrics(cfg.Metrics); err != nil {
				return err
			}
			if tracer, err = telemetry.NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment); err != nil {
				return err
			}
			if cfg.Metrics.Enabled {
				go func() {
					if err := metrics.Serve(); err != nil {
						log.Error().Err(err).Msg("Metrics server failed")
					}
				}()
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return tracer.Shutdown(cmd.Context())
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&traceSpans, "trace", false, "emit trace spans to stdout")

	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newParseCommand())
	rootCmd.AddCommand(newFmtCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, buildDate))

	return rootCmd
}

func newVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("noml %s (commit: %s, built: %s)\n", version, commit, buildDate)
		},
	}
}
