// Command chronoverse serves the timeline API.
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

	"golang.org/x/sync/errgroup"

	"github.com/chronoverse/chronoverse/internal/adapters/dataset"
	"github.com/chronoverse/chronoverse/internal/adapters/http/api"
	"github.com/chronoverse/chronoverse/internal/adapters/http/swagger"
	app "github.com/chronoverse/chronoverse/internal/app"
	"github.com/chronoverse/chronoverse/internal/config"
	"github.com/chronoverse/chronoverse/internal/domain/model"
	"github.com/chronoverse/chronoverse/pkg/logger"
	"github.com/chronoverse/chronoverse/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		os.Stderr.WriteString("chronoverse: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// run starts the service and blocks until ctx is cancelled or a component
// fails.
func run(ctx context.Context, cfg *config.Config) error {
	if err := logger.InitWithOptions(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := setupMetrics(cfg); err != nil {
		return err
	}

	svc := app.New(app.WithConfig(cfg), app.WithLogger(log.Named("service")))
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	srv := newHTTPServer(ctx, cfg, svc, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		metrics.RunSystemCollector(gctx)
		return nil
	})
	if cfg.WatchDataset && cfg.DatasetPath != "" {
		g.Go(func() error {
			return dataset.Watch(gctx, cfg.DatasetPath, func(events []model.Event, _ dataset.Report) {
				if err := svc.ReplaceEvents(gctx, events); err != nil {
					log.Error(gctx, "applying reloaded dataset failed", logger.Error(err))
				}
			}, dataset.WithLogger(log.Named("dataset")))
		})
	}

	err := g.Wait()
	log.Info(context.Background(), "server stopped")
	return err
}

// setupMetrics rebuilds the global metrics registry from the metrics_* keys.
func setupMetrics(cfg *config.Config) error {
	_, err := metrics.Setup(
		metrics.WithEnabled(cfg.MetricsEnabled),
		metrics.WithMetricPrefix(cfg.MetricsPrefix),
		metrics.WithConstLabels(cfg.MetricsLabels),
		metrics.WithLatencyBuckets(cfg.MetricsLatencyBuckets),
		metrics.WithRefreshInterval(cfg.MetricsRefreshInterval),
	)
	if err != nil {
		return fmt.Errorf("set up metrics: %w", err)
	}
	return nil
}

func newHTTPServer(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, api.WithLogger(log.Named("api"))).Register(ctx, mux)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
