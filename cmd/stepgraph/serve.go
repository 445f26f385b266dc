package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/stepgraph/internal/cli"
	"github.com/aretw0/stepgraph/internal/presentation/tui"
	api "github.com/aretw0/stepgraph/pkg/adapters/http"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the engine behind a JSON API over HTTP.

Graphs are created with POST /graph/create and run with POST /graph/run.
Review sessions live under /sessions, lifecycle events stream from /events
and Prometheus metrics are served on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		quiet, _ := cmd.Flags().GetBool("quiet")

		ctx, stop := cli.SignalContext(cmd.Context())
		defer stop()

		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		handler := api.NewHandler(app.Engine,
			api.WithSessions(app.Sessions),
			api.WithStreams(app.Streams),
			api.WithMetrics(app.Metrics.Handler()),
			api.WithLogger(app.Logger),
		)
		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		if !quiet {
			tui.PrintBanner(os.Stderr, termenv.NewOutput(os.Stderr).Profile)
		}

		serverErrors := make(chan error, 1)
		go func() {
			app.Logger.Info("HTTP server listening", "address", addr)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			app.Logger.Info("shutting down", "timeout", shutdownTimeout)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				app.Logger.Error("graceful shutdown did not complete", "err", err)
				return srv.Close()
			}
			app.Logger.Info("server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
