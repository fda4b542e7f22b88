package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/cellexec/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP bridge",
		Long: `Start the HTTP bridge used by notebook front ends.

The bridge listens on 127.0.0.1:5001 by default and stops gracefully on
SIGINT or SIGTERM. Set CELLEXEC_JWT_SECRET to require bearer tokens on
POST /api/execute.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}

			srv, err := server.New(server.Config{
				Addr:           cfg.Server.Addr,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				JWTSecret:      cfg.Server.JWTSecret,
				MaxCodeBytes:   cfg.Server.MaxCodeBytes,
				// Leave room for the slowest cell plus its cancellation grace.
				WriteTimeout:    cfg.Execution.Timeout + cfg.Execution.CancelGrace + 10*time.Second,
				ShutdownTimeout: cfg.Execution.Timeout + cfg.Execution.CancelGrace,
			}, a.dispatcher(), a.logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
