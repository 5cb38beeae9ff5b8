// Package watcher runs the poll loop: fetch the page, extract the price,
// fan out a notification when it moved, then sleep.
package watcher

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/goldwatch/internal/dispatcher"
	"github.com/JakeFAU/goldwatch/internal/goldprice"
	"github.com/JakeFAU/goldwatch/internal/metrics"
)

// Dispatcher fans a change out to targets.
type Dispatcher interface {
	DispatchAll(ctx context.Context, targets []goldprice.Target, current float64, previous *float64) dispatcher.Report
}

// Config controls Watcher behavior.
type Config struct {
	SourceURL string
	Interval  time.Duration
	Targets   []goldprice.Target
}

// Watcher owns the last observed price and drives the poll loop.
type Watcher struct {
	cfg        Config
	fetcher    goldprice.Fetcher
	extractor  goldprice.Extractor
	dispatcher Dispatcher
	clock      goldprice.Clock
	idGen      goldprice.IDGenerator
	logger     *zap.Logger

	state goldprice.PriceState
	ready atomic.Bool
}

// New constructs a Watcher.
func New(
	cfg Config,
	fetcher goldprice.Fetcher,
	extractor goldprice.Extractor,
	dispatch Dispatcher,
	clock goldprice.Clock,
	idGen goldprice.IDGenerator,
	logger *zap.Logger,
) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 180 * time.Second
	}
	return &Watcher{
		cfg:        cfg,
		fetcher:    fetcher,
		extractor:  extractor,
		dispatcher: dispatch,
		clock:      clock,
		idGen:      idGen,
		logger:     logger,
	}
}

// Run polls until ctx is done. It only returns on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("gold watcher started",
		zap.String("source_url", w.cfg.SourceURL),
		zap.Int("webhooks", len(w.cfg.Targets)),
		zap.Duration("interval", w.cfg.Interval),
	)
	if len(w.cfg.Targets) == 0 {
		w.logger.Warn("no webhooks configured; price changes will only be logged")
	}

	for {
		outcome := w.RunCycle(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logOutcome(outcome)

		if err := w.clock.Sleep(ctx, w.cfg.Interval); err != nil {
			return err
		}
	}
}

// RunCycle performs one fetch-extract-compare-dispatch pass. Fetch and
// extraction failures leave the stored price untouched.
func (w *Watcher) RunCycle(ctx context.Context) Outcome {
	start := w.clock.Now()
	outcome := w.runCycle(ctx, start)
	outcome.Duration = w.clock.Now().Sub(start)
	metrics.ObserveCycle(outcome.Kind.String(), outcome.Duration)
	return outcome
}

func (w *Watcher) runCycle(ctx context.Context, start time.Time) Outcome {
	cycleID := w.newCycleID()

	page, err := w.fetcher.Fetch(ctx, w.cfg.SourceURL)
	if err != nil {
		return Outcome{Kind: OutcomeFetchFailed, CycleID: cycleID, Err: err}
	}

	price, err := w.extractor.Extract(page)
	if err != nil {
		return Outcome{Kind: OutcomeExtractFailed, CycleID: cycleID, Err: err}
	}
	metrics.SetPrice(price)

	obs := goldprice.Observation{Price: price, ObservedAt: start, CycleID: cycleID}
	if !w.state.Changed(price) {
		return Outcome{Kind: OutcomeUnchanged, CycleID: cycleID, Observation: obs, Previous: w.state.Previous()}
	}

	previous := w.state.Previous()
	w.logger.Info("price changed",
		zap.String("cycle_id", cycleID),
		zap.Float64p("previous", previous),
		zap.Float64("current", price),
	)
	report := w.dispatcher.DispatchAll(ctx, w.cfg.Targets, price, previous)
	// The change was observed even if some deliveries failed.
	w.state.Set(price)
	w.ready.Store(true)

	return Outcome{
		Kind:        OutcomeChanged,
		CycleID:     cycleID,
		Observation: obs,
		Previous:    previous,
		Report:      report,
	}
}

func (w *Watcher) logOutcome(o Outcome) {
	log := w.logger.With(zap.String("cycle_id", o.CycleID), zap.Duration("duration", o.Duration))
	switch o.Kind {
	case OutcomeChanged:
		log.Info("cycle complete",
			zap.Float64("price", o.Observation.Price),
			zap.Int("delivered", o.Report.Delivered),
			zap.Int("failed", o.Report.Failed()),
		)
	case OutcomeUnchanged:
		log.Info("no change", zap.Float64("price", o.Observation.Price))
	case OutcomeFetchFailed:
		log.Error("fetch failed", zap.Error(o.Err))
	case OutcomeExtractFailed:
		log.Error("price extraction failed", zap.Error(o.Err))
	}
}

func (w *Watcher) newCycleID() string {
	if w.idGen == nil {
		return ""
	}
	id, err := w.idGen.NewID()
	if err != nil {
		w.logger.Warn("cycle id generation failed", zap.Error(err))
		return ""
	}
	return id
}

// Ready reports whether at least one price has been observed. Safe to call
// from other goroutines.
func (w *Watcher) Ready() bool {
	return w.ready.Load()
}
