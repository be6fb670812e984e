package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/logbase/internal/api"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string // overrides http.host/http.port
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Start the HTTP API over the configured storage engine.

The server shuts down gracefully on SIGINT or SIGTERM.`,
		Example: `  logbase serve
  logbase serve --addr 127.0.0.1:9090 --config ./logbase.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := openEnvironment(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer env.Close()

	app := api.NewApplication(api.Options{
		Store:    env.store,
		Metrics:  env.metrics,
		Gatherer: env.registry,
		Logger:   env.logger,
		Version:  Version,
	})

	addr := opts.Addr
	if addr == "" {
		addr = env.cfg.HTTP.Addr()
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      app.Mount(),
		ReadTimeout:  env.cfg.HTTP.ReadTimeout,
		WriteTimeout: env.cfg.HTTP.WriteTimeout,
		ErrorLog:     zap.NewStdLog(env.logger),
	}

	if err := app.Run(ctx, srv, env.cfg.HTTP.ShutdownTimeout); err != nil {
		return WrapExitError(ExitFailure, "server failed", err)
	}
	return nil
}
