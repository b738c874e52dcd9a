package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/kosmos/internal/config"
	"github.com/san-kum/kosmos/internal/integrators"
	"github.com/san-kum/kosmos/internal/units"
)

var (
	dataDir   string
	logFormat string
	logLevel  string

	logger *slog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "kosmos",
		Short:         "gravitational n-body simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(os.Stderr, logFormat, logLevel)
			if err != nil {
				return err
			}
			logger = l
			slog.SetDefault(l)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".kosmos", "data directory")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text|json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug|info|warn|error)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenarios",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		presetsCmd,
		newListCmd(),
		newPlotCmd(),
		newAnalyzeCmd(),
		newExportCmd(),
		newBenchCmd(),
		newCompareCmd(),
		newSweepCmd(),
		newMonteCarloCmd(),
		newTuneCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. Logs go to w so that stdout stays
// clean for exported data.
func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}

func listPresets(cmd *cobra.Command, args []string) error {
	fmt.Println("presets:")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Printf("  %-14s %4d bodies  %-6s %s\n", name, len(p.Bodies), p.Units, p.Description)
	}
	fmt.Printf("\nintegrators: %s\n", strings.Join(integrators.Names(), ", "))
	fmt.Printf("units:       %s\n", strings.Join(units.Names(), ", "))
	return nil
}
