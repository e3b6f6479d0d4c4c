package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sariahshoe/coldcase-ingest/internal/app"
)

// newServeCmd creates the 'serve' subcommand: run the pipeline on a fixed
// interval while exposing health and metrics endpoints.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the pipeline on an interval with health and metrics endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), appInstance)
		},
	}
}

// newServeRouter builds the health/metrics surface served alongside the
// scheduled pipeline runs.
func newServeRouter() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())
	return router
}

func serve(ctx context.Context, appInstance *app.App) error {
	logger := appInstance.Logger()
	cfg := appInstance.Config()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           newServeRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http server shutdown failed", zap.Error(err))
		}
	}()

	pipe := appInstance.BuildPipeline()
	ticker := time.NewTicker(cfg.RunInterval())
	defer ticker.Stop()

	// First run happens immediately; the ticker covers the rest.
	for {
		if err := pipe.Run(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			// A failed run is not fatal in serve mode; the next interval
			// resumes from the queue's last saved state.
			logger.Error("pipeline run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case err := <-serverErr:
			return fmt.Errorf("http server: %w", err)
		case <-ticker.C:
		}
	}
}
