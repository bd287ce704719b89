package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/massimocristi1970/CallAnalysisApp/internal/adapters/http/api"
	"github.com/massimocristi1970/CallAnalysisApp/internal/adapters/http/swagger"
	app "github.com/massimocristi1970/CallAnalysisApp/internal/app"
	"github.com/massimocristi1970/CallAnalysisApp/internal/config"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/logger"
	"github.com/massimocristi1970/CallAnalysisApp/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
	percent                = 100
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env). Invalid thresholds are fatal.
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Get().Fatal(ctx, "failed to load config", logger.Error(err))
	}
	if err := configureLogging(cfg); err != nil {
		logger.Get().Fatal(ctx, "failed to configure logging", logger.Error(err))
	}

	configureMetrics(cfg)

	if err := run(ctx, cfg, logger.Get()); err != nil {
		logger.Get().Fatal(ctx, "server failed", logger.Error(err))
	}
}

// configureLogging applies the configured format and level (fallback to info on invalid level).
func configureLogging(cfg *config.Config) error {
	if err := logger.InitWithWriter(os.Stdout, cfg.LogFormat); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

// configureMetrics renames and labels the metric set before anything is recorded.
func configureMetrics(cfg *config.Config) {
	metrics.Configure(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithConstLabels(cfg.MetricsConstLabels),
		metrics.WithHistogramBuckets(cfg.MetricsLatencyBucketsMS),
	)
}

// run starts the service and serves HTTP until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	ctx, stopUpdater := context.WithCancel(ctx)
	defer stopUpdater()

	svc, err := app.New(cfg, app.WithLogger(log))
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(svc, cfg),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- api.WrapKind("main.serve", api.ErrServe, err)
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info(ctx, "shutting down server...")
	case err = <-serveErr:
		log.Error(ctx, "HTTP server failed", logger.Error(err))
	}

	// Graceful shutdown: stop accepting requests, then drain the queue.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(serr))
	}
	if serr := svc.Stop(shutdownCtx); serr != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(serr))
	}

	log.Info(ctx, "server stopped")
	return err
}

// newMux registers the business API and the API docs.
func newMux(svc *app.Service, cfg *config.Config) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(mux)
	api.NewServer(svc, svc, cfg.MaxReviewLimit).Register(mux)
	return mux
}

// startServiceMetricsUpdater periodically refreshes service-level gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(ctx context.Context, svc *app.Service) {
	stats := svc.GetStats(ctx)
	metrics.UpdateQueueSize(stats.QueueLength)
	metrics.UpdateQueueCapacity(stats.QueueCapacity)
	if stats.QueueCapacity > 0 {
		metrics.UpdateQueueUtilization(float64(stats.QueueLength) / float64(stats.QueueCapacity) * percent)
	}
	metrics.UpdateWorkerCount(stats.Workers)
}
