package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/stepgraph"
	"github.com/aretw0/stepgraph/internal/presentation/tui"
	httpAdapter "github.com/aretw0/stepgraph/pkg/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the engine behind a JSON API over HTTP, using the configured stores.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("metrics") {
			cfg.Metrics, _ = cmd.Flags().GetBool("metrics")
		}
		if cmd.Flags().Changed("catalog") {
			cfg.CatalogDir, _ = cmd.Flags().GetString("catalog")
		}

		if _, err := httpAdapter.GetSwagger(); err != nil {
			return err
		}

		logger := newLogger(cfg, cfg.LogFormat)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		opts := []httpAdapter.Option{
			httpAdapter.WithTools(a.tools),
			httpAdapter.WithLogger(logger),
		}
		if a.metrics != nil {
			opts = append(opts, httpAdapter.WithMetrics(a.metrics))
		}

		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           httpAdapter.NewHandler(a.engine, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		tui.PrintBanner(cmd.ErrOrStderr(), stepgraph.Version)

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("HTTP server listening", "addr", srv.Addr, "store", cfg.Store.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			logger.Info("shutdown signal received")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				return srv.Close()
			}
			logger.Info("HTTP server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics on /metrics")
	serveCmd.Flags().String("catalog", "", "Directory of graph documents to load at startup")
}
