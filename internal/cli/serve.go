package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/slotgrid/internal/api"
	"github.com/roach88/slotgrid/internal/booking"
	"github.com/roach88/slotgrid/internal/timeview"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON HTTP API",
		Long: `Serve the catalogue, reservations, time view and layout over HTTP,
with Prometheus metrics on /metrics. Stops gracefully on SIGINT or
SIGTERM.

Example:
  slotgrid serve --db ./slotgrid.db --addr :8080
  slotgrid serve --config ./slotgrid.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())
	slog.SetDefault(logger)

	cfg, err := opts.config()
	if err != nil {
		return formatter.Fail(err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, "invalid config", err))
	}
	zoom, err := timeview.ParseZoom(cfg.TimeView.DefaultZoom)
	if err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, "invalid config", err))
	}
	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	st, err := opts.openStore()
	if err != nil {
		return formatter.Fail(err)
	}
	defer closeStore(st)
	logger.Info("database ready", "path", cfg.DB)

	server := &api.API{
		Store:           st,
		Booking:         booking.New(st, booking.WithLogger(logger)),
		Logger:          logger,
		Location:        loc,
		Zoom:            zoom,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s. Press Ctrl-C to stop.\n", addr)

	if err := server.Run(ctx, addr); err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, "server error", err))
	}

	logger.Info("server stopped gracefully")
	return nil
}
