// Package server assembles the watcher from configuration and runs it until
// the process is signaled.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/JakeFAU/overall-progress/internal/api"
	"github.com/JakeFAU/overall-progress/internal/client"
	"github.com/JakeFAU/overall-progress/internal/config"
	"github.com/JakeFAU/overall-progress/internal/dom"
	"github.com/JakeFAU/overall-progress/internal/headless"
	"github.com/JakeFAU/overall-progress/internal/id/uuid"
	"github.com/JakeFAU/overall-progress/internal/metrics"
	"github.com/JakeFAU/overall-progress/internal/poller"
	"github.com/JakeFAU/overall-progress/internal/progress"
	progresssinks "github.com/JakeFAU/overall-progress/internal/progress/sinks"
	"github.com/JakeFAU/overall-progress/internal/terminal"
)

const shutdownTimeout = 10 * time.Second

// App contains the watcher's dependencies.
type App struct {
	cfg         config.Config
	logger      *zap.Logger
	watcherID   string
	registry    *prometheus.Registry
	doc         dom.Document
	closeDoc    func() error
	progressHub *progress.Hub
	poller      *poller.Poller
	apiServer   *api.Server
}

// Build creates the watcher's dependencies. The terminal view draws to out.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, out io.Writer) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcherID := uuid.New().NewID()
	app := &App{
		cfg:       cfg,
		logger:    logger.With(zap.String("watcher_id", watcherID)),
		watcherID: watcherID,
		registry:  prometheus.NewRegistry(),
		closeDoc:  func() error { return nil },
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics, err := metrics.NewHTTP(app.registry)
	if err != nil {
		return nil, fmt.Errorf("metrics init failed: %w", err)
	}
	logger = app.logger

	app.logger.Info("building watcher",
		zap.String("base_url", cfg.Poller.BaseURL),
		zap.String("view", cfg.View.Kind),
		zap.Duration("interval", cfg.Poller.Interval),
	)

	fetcher, err := client.New(client.Config{
		BaseURL:       cfg.Poller.BaseURL,
		Path:          cfg.Poller.Path,
		Timeout:       cfg.ClientTimeout(),
		ActivityField: cfg.Poller.ActivityField,
	}, &http.Client{
		Timeout:   cfg.ClientTimeout(),
		Transport: httpMetrics.RoundTripper(nil),
	}, logger.Named("client"))
	if err != nil {
		return nil, fmt.Errorf("client init failed: %w", err)
	}

	if err := setupDocument(ctx, app, out); err != nil {
		return nil, err
	}

	emitter, err := setupProgress(app)
	if err != nil {
		_ = app.closeDoc()
		return nil, err
	}

	app.poller, err = poller.New(poller.Config{
		Interval:        cfg.Poller.Interval,
		DiscardStale:    cfg.Poller.DiscardStale,
		PollImmediately: cfg.Poller.PollImmediately,
	}, fetcher, app.doc,
		poller.WithLogger(logger.Named("poller")),
		poller.WithEmitter(emitter),
	)
	if err != nil {
		app.closeInfrastructure(ctx)
		return nil, fmt.Errorf("poller init failed: %w", err)
	}

	if cfg.Server.Enabled {
		app.apiServer = api.NewServer(app.poller, app.doc, app.registry, logger.Named("api"), httpMetrics.Middleware)
	}
	return app, nil
}

func setupDocument(ctx context.Context, app *App, out io.Writer) error {
	switch app.cfg.View.Kind {
	case config.ViewBrowser:
		doc, err := headless.Open(ctx, headless.Config{PageURL: app.cfg.View.PageURL}, app.logger.Named("headless"))
		if err != nil {
			return fmt.Errorf("headless view init failed: %w", err)
		}
		app.doc = doc
		app.closeDoc = func() error {
			doc.Close()
			return nil
		}
		app.logger.Info("using headless browser view", zap.String("page_url", app.cfg.View.PageURL))
	case config.ViewMemory:
		app.doc = dom.NewIndicatorPage()
		app.logger.Info("using in-memory view")
	default:
		doc := terminal.New(out, app.cfg.View.TerminalWidth)
		app.doc = doc
		app.closeDoc = doc.Close
		app.logger.Info("using terminal view", zap.Int("width", app.cfg.View.TerminalWidth))
	}
	return nil
}

func setupProgress(app *App) (progress.Emitter, error) {
	promSink, err := progresssinks.NewPrometheusSink(app.registry)
	if err != nil {
		return nil, fmt.Errorf("prometheus sink init failed: %w", err)
	}
	sinkList := []progress.Sink{
		progresssinks.NewLogSink(app.logger.Named("progress_log")),
		promSink,
	}
	hubCfg := progress.Config{
		BufferSize:     app.cfg.Progress.BufferSize,
		MaxBatchEvents: app.cfg.Progress.MaxBatchEvents,
		FlushInterval:  app.cfg.Progress.FlushInterval,
		Logger:         app.logger.Named("progress_hub"),
	}
	app.progressHub = progress.NewHub(hubCfg, sinkList...)
	app.logger.Debug("progress hub initialized",
		zap.Int("buffer_size", hubCfg.BufferSize),
		zap.Int("max_batch_events", hubCfg.MaxBatchEvents),
		zap.Duration("flush_interval", hubCfg.FlushInterval),
		zap.Int("sinks", len(sinkList)),
	)
	return app.progressHub, nil
}

// WatcherID identifies this process in logs.
func (a *App) WatcherID() string {
	return a.watcherID
}

// Poller exposes the configured poller.
func (a *App) Poller() *poller.Poller {
	return a.poller
}

// Document exposes the view the poller renders into.
func (a *App) Document() dom.Document {
	return a.doc
}

// Handler returns the status API handler, or nil when the server is disabled.
func (a *App) Handler() http.Handler {
	if a.apiServer == nil {
		return nil
	}
	return a.apiServer.Handler()
}

// Run starts polling and blocks until ctx is canceled or the process
// receives SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.poller.Start(ctx); err != nil {
		return fmt.Errorf("start poller: %w", err)
	}

	var srv *http.Server
	if a.apiServer != nil {
		srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
			Handler:           a.apiServer.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			a.logger.Info("status server started", zap.Int("port", a.cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("status server error", zap.Error(err))
				stop()
			}
		}()
	}

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.poller.Stop()
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("status server shutdown error", zap.Error(err))
		}
	}
	return a.Close(shutdownCtx)
}

// Close releases the hub and the view. It is safe to call after Run.
func (a *App) Close(ctx context.Context) error {
	if a.poller != nil {
		a.poller.Stop()
	}
	a.closeInfrastructure(ctx)
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) closeInfrastructure(ctx context.Context) {
	if a.progressHub != nil {
		if err := a.progressHub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close failed", zap.Error(err))
		}
		if dropped := a.progressHub.Dropped(); dropped > 0 {
			a.logger.Warn("progress events dropped", zap.Int64("count", dropped))
		}
	}
	if a.closeDoc != nil {
		if err := a.closeDoc(); err != nil {
			a.logger.Warn("view close failed", zap.Error(err))
		}
		a.closeDoc = nil
	}
}
