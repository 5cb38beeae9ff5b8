// Package promote chains a static fetcher with a headless one, falling back to
// the browser only when the static page looks unrendered.
package promote

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/goldwatch/internal/goldprice"
	"github.com/JakeFAU/goldwatch/internal/metrics"
)

// Detector decides whether a page needs a headless render.
type Detector interface {
	ShouldPromote(page string) bool
}

// Fetcher implements goldprice.Fetcher.
type Fetcher struct {
	primary  goldprice.Fetcher
	headless goldprice.Fetcher
	detector Detector
	logger   *zap.Logger
}

// New constructs a promoting Fetcher.
func New(primary, headless goldprice.Fetcher, detector Detector, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{primary: primary, headless: headless, detector: detector, logger: logger}
}

// Fetch returns the static page unless the detector asks for promotion. A
// failed headless render falls back to the static page so extraction still
// gets a chance.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	page, err := f.primary.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	if f.headless == nil || f.detector == nil || !f.detector.ShouldPromote(page) {
		return page, nil
	}

	f.logger.Info("promoting fetch to headless", zap.String("url", url))
	metrics.ObserveFetchAttempt("promoted")
	rendered, err := f.headless.Fetch(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		f.logger.Warn("headless fetch failed; using static page", zap.String("url", url), zap.Error(err))
		return page, nil
	}
	return rendered, nil
}
