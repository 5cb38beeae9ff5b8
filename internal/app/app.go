// Package app builds and holds the long-lived services of the watcher,
// acting as a small dependency injection container for the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/goldwatch/internal/api"
	"github.com/JakeFAU/goldwatch/internal/clock/system"
	"github.com/JakeFAU/goldwatch/internal/config"
	"github.com/JakeFAU/goldwatch/internal/dispatcher"
	"github.com/JakeFAU/goldwatch/internal/extractor"
	collyfetcher "github.com/JakeFAU/goldwatch/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/goldwatch/internal/fetcher/headless"
	"github.com/JakeFAU/goldwatch/internal/fetcher/promote"
	"github.com/JakeFAU/goldwatch/internal/goldprice"
	"github.com/JakeFAU/goldwatch/internal/headless/detector"
	"github.com/JakeFAU/goldwatch/internal/id/uuid"
	"github.com/JakeFAU/goldwatch/internal/notifier"
	"github.com/JakeFAU/goldwatch/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

// App holds the shared services. It is built once per command invocation.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	fetcher    goldprice.Fetcher
	closers    []func()
	extractor  *extractor.Extractor
	notifier   goldprice.Notifier
	dispatcher *dispatcher.Dispatcher
	clock      goldprice.Clock
	idGen      goldprice.IDGenerator
}

// Option overrides a service, mostly for tests.
type Option func(*App)

// WithFetcher replaces the configured page fetcher.
func WithFetcher(f goldprice.Fetcher) Option {
	return func(a *App) { a.fetcher = f }
}

// WithNotifier replaces the webhook notifier.
func WithNotifier(n goldprice.Notifier) Option {
	return func(a *App) { a.notifier = n }
}

// WithClock replaces the system clock.
func WithClock(c goldprice.Clock) Option {
	return func(a *App) { a.clock = c }
}

// New wires the fetcher, extractor, notifier and dispatcher from cfg.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ex, err := extractor.New(extractor.Config{
		PurityLabel:   cfg.Extract.PurityLabel,
		SellLabel:     cfg.Extract.SellLabel,
		CurrencyLabel: cfg.Extract.CurrencyLabel,
	})
	if err != nil {
		return nil, fmt.Errorf("init extractor: %w", err)
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		extractor: ex,
		clock:     system.New(),
		idGen:     uuid.New(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.fetcher == nil {
		a.fetcher = a.buildFetcher()
	}
	if a.notifier == nil {
		a.notifier = notifier.NewWebhookNotifier(nil, notifier.Config{
			Timeout: time.Duration(cfg.Notify.TimeoutSeconds) * time.Second,
			Retry:   cfg.NotifyRetry(),
		}, logger.Named("notifier"))
	}
	a.dispatcher = dispatcher.New(a.notifier, logger.Named("dispatcher"))
	return a, nil
}

func (a *App) buildFetcher() goldprice.Fetcher {
	if a.cfg.Fetch.Headless {
		a.logger.Info("using headless fetcher")
		return a.buildHeadless()
	}
	static := collyfetcher.New(collyfetcher.Config{
		UserAgent: a.cfg.Fetch.UserAgent,
		Timeout:   time.Duration(a.cfg.HTTP.TimeoutSeconds) * time.Second,
		LegacyTLS: a.cfg.HTTP.LegacyTLS,
		Retry:     a.cfg.FetchRetry(),
	}, a.logger.Named("fetcher"))
	if !a.cfg.Fetch.HeadlessFallback {
		return static
	}
	a.logger.Info("headless fallback enabled")
	detect := detector.NewHeuristic(a.cfg.Fetch.PromotionThreshold, a.extractor.Matches)
	return promote.New(static, a.buildHeadless(), detect, a.logger.Named("promote"))
}

func (a *App) buildHeadless() *headlessfetcher.Fetcher {
	f := headlessfetcher.NewChromedp(headlessfetcher.Config{
		UserAgent:         a.cfg.Fetch.UserAgent,
		NavigationTimeout: time.Duration(a.cfg.Fetch.HeadlessTimeoutSeconds) * time.Second,
	}, a.logger.Named("headless"))
	a.closers = append(a.closers, f.Close)
	return f
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// CheckPrice runs one fetch and extraction without touching any target.
func (a *App) CheckPrice(ctx context.Context) (float64, error) {
	page, err := a.fetcher.Fetch(ctx, a.cfg.SourceURL)
	if err != nil {
		return 0, err
	}
	return a.extractor.Extract(page)
}

// Notify sends one change notification to every configured target.
func (a *App) Notify(ctx context.Context, current float64, previous *float64) dispatcher.Report {
	return a.dispatcher.DispatchAll(ctx, a.cfg.Targets, current, previous)
}

// NewWatcher builds the poll loop over the shared services.
func (a *App) NewWatcher() *watcher.Watcher {
	return watcher.New(watcher.Config{
		SourceURL: a.cfg.SourceURL,
		Interval:  a.cfg.PollInterval(),
		Targets:   a.cfg.Targets,
	}, a.fetcher, a.extractor, a.dispatcher, a.clock, a.idGen, a.logger.Named("watcher"))
}

// Run starts the status server when a port is configured and polls until
// ctx is canceled. Cancellation is reported as context.Canceled.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := a.NewWatcher()
	var serverErr error
	var srv *http.Server
	done := make(chan struct{})
	if a.cfg.Server.Port > 0 {
		srv = &http.Server{
			Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
			Handler:           api.NewServer(w, a.logger.Named("api")).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			defer close(done)
			a.logger.Info("status server started", zap.Int("port", a.cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("status server error", zap.Error(err))
				serverErr = err
				cancel()
			}
		}()
	} else {
		close(done)
	}

	err := w.Run(ctx)
	a.logger.Info("shutdown initiated")

	if srv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("status server shutdown error", zap.Error(err))
		}
	}
	<-done
	if serverErr != nil {
		return fmt.Errorf("status server: %w", serverErr)
	}
	return err
}

// Close releases the fetcher and flushes the logger.
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
	// Sync returns ENOTTY/EINVAL for terminal outputs.
	_ = a.logger.Sync()
}
