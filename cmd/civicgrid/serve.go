package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kuanb/civicgrid/api"
	"kuanb/civicgrid/catalog"
	"kuanb/civicgrid/config"
	"kuanb/civicgrid/correlate"
	"kuanb/civicgrid/logging"
	"kuanb/civicgrid/metrics"
)

func serveCmd() *cobra.Command {
	var (
		configPath    string
		statsInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load both datasets and serve cross-references over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if statsInterval > 0 {
				go logRuntimeStats(ctx, logger.Named("runtime"), statsInterval)
			}
			return serve(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	cmd.Flags().DurationVar(&statsInterval, "stats-interval", 0, "Log runtime memory stats at this interval (0 disables)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("civicgrid starting", zap.String("version", version))

	strategy, err := correlate.ParseStrategy(cfg.Correlation.Strategy)
	if err != nil {
		return err
	}
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}
	c := correlate.New(logger, correlate.WithStrategy(strategy))

	cat, err := catalog.Load(ctx, cfg.Data, c, m, logger)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.New(cat, c, m, logger, cfg).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return <-errCh
}
