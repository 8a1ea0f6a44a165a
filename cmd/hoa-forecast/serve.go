package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/iwvelando/hoa-forecast/internal/server"
	"github.com/iwvelando/hoa-forecast/pkg/constants"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type serveOptions struct {
	serverConfig  string
	address       string
	maxUploadSize string
	logLevel      string
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the forecast HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.serverConfig, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	flags.StringVar(&opts.address, "address", "", "listen address override")
	flags.StringVar(&opts.maxUploadSize, "max-upload-size", "", "maximum configuration upload size override (e.g. 256K, 1M)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	return cmd
}

// serve runs the HTTP server until ctx is cancelled, then shuts it down.
func serve(ctx context.Context, opts *serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := server.LoadConfig(opts.serverConfig)
	if err != nil {
		return err
	}
	if opts.address != "" {
		cfg.Address = opts.address
	}
	if opts.maxUploadSize != "" {
		size, err := server.ParseSize(opts.maxUploadSize)
		if err != nil {
			return fmt.Errorf("invalid --max-upload-size: %w", err)
		}
		cfg.SetUploadSizeBytes(size)
	}

	logger, err := initializeLogger(cfg.Logging, opts.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	srv := server.NewServer(logger, cfg, version)
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("server listening",
		zap.String("op", "main.serve"),
		zap.String("address", cfg.Address),
		zap.Int64("maxUploadSize", cfg.UploadSizeBytes()),
		zap.Bool("allowTableFiles", cfg.AllowTableFiles),
	)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server", zap.String("op", "main.serve"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
