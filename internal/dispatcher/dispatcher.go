// Package dispatcher fans a price change out to every configured target.
package dispatcher

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/goldwatch/internal/goldprice"
	"github.com/JakeFAU/goldwatch/internal/metrics"
)

// TargetFailure records one failed delivery.
type TargetFailure struct {
	Target goldprice.Target
	Err    error
}

// Report summarizes one fan-out.
type Report struct {
	Delivered int
	Failures  []TargetFailure
}

// Failed returns the number of targets that did not accept the notification.
func (r Report) Failed() int {
	return len(r.Failures)
}

// Dispatcher delivers notifications to targets one after another.
type Dispatcher struct {
	notifier goldprice.Notifier
	logger   *zap.Logger
}

// New creates a Dispatcher.
func New(notifier goldprice.Notifier, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		notifier: notifier,
		logger:   logger,
	}
}

// DispatchAll notifies every target in order. A failing target is logged and
// skipped; it never stops the remaining deliveries.
func (d *Dispatcher) DispatchAll(
	ctx context.Context,
	targets []goldprice.Target,
	current float64,
	previous *float64,
) Report {
	var report Report
	for _, target := range targets {
		name := target.DisplayName()
		if err := d.notifier.Notify(ctx, target, current, previous); err != nil {
			d.logger.Error("webhook delivery failed", zap.String("target", name), zap.Error(err))
			metrics.ObserveDelivery(target, "error")
			report.Failures = append(report.Failures, TargetFailure{Target: target, Err: err})
			continue
		}
		d.logger.Info("webhook delivered", zap.String("target", name))
		metrics.ObserveDelivery(target, "ok")
		report.Delivered++
	}
	return report
}
