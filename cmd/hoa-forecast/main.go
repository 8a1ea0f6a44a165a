// Command hoa-forecast projects an HOA's operating budget and reserve fund
// over a multi-year horizon for each configured scenario.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/iwvelando/hoa-forecast/pkg/constants"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string
	opts := &runOptions{}

	root := &cobra.Command{
		Use:          "hoa-forecast",
		Short:        "Project HOA dues, operating budget and reserve fund scenarios",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadEnvFile(envFile, cmd.Flags().Changed("env-file"))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runForecast(cmd.OutOrStdout(), opts)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", constants.DefaultEnvFile, "dotenv file with HOA_* overrides")
	addRunFlags(root, opts)

	root.AddCommand(
		newRunCommand(),
		newServeCommand(),
		newPresetsCommand(),
		newVersionCommand(),
	)
	return root
}

// loadEnvFile loads path into the environment. A missing file is only an
// error when the user asked for it explicitly.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "hoa-forecast %s\n", version)
			return err
		},
	}
}
