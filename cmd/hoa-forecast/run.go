package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/iwvelando/hoa-forecast/internal/config"
	"github.com/iwvelando/hoa-forecast/internal/forecast"
	"github.com/iwvelando/hoa-forecast/internal/optimizer"
	"github.com/iwvelando/hoa-forecast/pkg/constants"
	"github.com/iwvelando/hoa-forecast/pkg/output"
	"github.com/iwvelando/hoa-forecast/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runOptions struct {
	configPath   string
	outputFormat string
	outputFile   string
	logLevel     string
	skipOptimize bool
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", constants.DefaultConfigFile, "path to configuration file")
	flags.StringVar(&opts.outputFormat, "output-format", "", "type of output override: pretty, csv, json, xlsx")
	flags.StringVar(&opts.outputFile, "output-file", "", "write output to this file instead of stdout")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.BoolVar(&opts.skipOptimize, "skip-optimizer", false, "ignore optimizer directives in the configuration")
}

func newRunCommand() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the forecast for every active scenario (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runForecast(cmd.OutOrStdout(), opts)
		},
	}
	addRunFlags(cmd, opts)
	return cmd
}

func runForecast(stdout io.Writer, opts *runOptions) error {
	conf, err := config.LoadConfiguration(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration at %s: %w", opts.configPath, err)
	}

	logger, err := initializeLogger(conf.Logging, opts.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI override takes precedence over config
	outputFormat := conf.Output.Format
	if opts.outputFormat != "" {
		outputFormat = opts.outputFormat
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}

	// Tables load first so warnings cover projects read from CSV.
	if err := conf.LoadTables(); err != nil {
		return fmt.Errorf("failed to load tables: %w", err)
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.runForecast"),
		)
	}

	var optimized *optimizer.Result
	if !opts.skipOptimize {
		runner, err := optimizer.NewRunner(logger, conf)
		if err != nil {
			return fmt.Errorf("failed to initialize optimizer: %w", err)
		}
		if optimized, err = runner.Run(); err != nil {
			return fmt.Errorf("optimizer execution failed: %w", err)
		}
	}

	results, err := forecast.GetForecast(logger, *conf)
	if err != nil {
		return fmt.Errorf("failed to compute forecast: %w", err)
	}
	if optimized != nil {
		optimized.Apply(results)
	}

	outputFile := conf.Output.File
	if opts.outputFile != "" {
		outputFile = opts.outputFile
	}

	if outputFile == "" {
		if outputFormat == constants.OutputFormatXLSX && isTerminal(stdout) {
			return fmt.Errorf("refusing to write xlsx output to a terminal; use --output-file")
		}
		if err := writeOutput(stdout, outputFormat, results); err != nil {
			return fmt.Errorf("failed to write %s output: %w", outputFormat, err)
		}
	} else if err := writeOutputFile(outputFile, outputFormat, results); err != nil {
		return err
	}

	logger.Info("forecast complete",
		zap.String("op", "main.runForecast"),
		zap.Int("scenarios", len(results)),
		zap.String("format", outputFormat),
		zap.String("outputFile", outputFile),
	)
	return nil
}

// writeOutputFile writes the results to path and reports a failed close,
// which is where buffered write errors surface.
func writeOutputFile(path, format string, results []forecast.Forecast) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := writeOutput(f, format, results); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s output: %w", format, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}

// isTerminal reports whether w is a character device such as a tty.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func writeOutput(w io.Writer, format string, results []forecast.Forecast) error {
	switch format {
	case constants.OutputFormatCSV:
		return output.CsvFormat(w, results)
	case constants.OutputFormatJSON:
		return output.JSONFormat(w, results)
	case constants.OutputFormatXLSX:
		return output.XLSXFormat(w, results)
	default:
		return output.PrettyFormat(w, results)
	}
}

func newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the built-in scenario presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, preset := range config.Presets() {
				if _, err := fmt.Fprintf(tw, "%s\t%s\n", preset.Name, preset.Description); err != nil {
					return err
				}
			}
			return tw.Flush()
		},
	}
}
