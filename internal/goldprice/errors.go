package goldprice

import (
	"errors"
	"fmt"
)

// Error kinds. Layers wrap one of these so callers can branch with errors.Is.
var (
	// ErrConfig marks a missing or invalid configuration value. Fatal at startup.
	ErrConfig = errors.New("config error")
	// ErrNetwork marks a failed page fetch.
	ErrNetwork = errors.New("network error")
	// ErrExtraction marks a page that did not contain a parsable price.
	ErrExtraction = errors.New("extraction error")
	// ErrDelivery marks a failed webhook POST.
	ErrDelivery = errors.New("delivery error")
)

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}
