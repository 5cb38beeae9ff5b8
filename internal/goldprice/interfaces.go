package goldprice

import (
	"context"
	"time"
)

// Fetcher retrieves the raw HTML of the source page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Extractor locates the price inside fetched HTML.
type Extractor interface {
	Extract(html string) (float64, error)
}

// Notifier delivers one notification to one target.
// previous is nil on the first observation.
type Notifier interface {
	Notify(ctx context.Context, target Target, current float64, previous *float64) error
}

// Clock tells time and waits between polls (fakeable in tests).
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// IDGenerator produces cycle IDs.
type IDGenerator interface {
	NewID() (string, error)
}
