package watcher

import (
	"time"

	"github.com/JakeFAU/goldwatch/internal/dispatcher"
	"github.com/JakeFAU/goldwatch/internal/goldprice"
)

// OutcomeKind tags how far a cycle got.
type OutcomeKind int

const (
	// OutcomeFetchFailed means the page could not be retrieved.
	OutcomeFetchFailed OutcomeKind = iota
	// OutcomeExtractFailed means the page had no recognizable price.
	OutcomeExtractFailed
	// OutcomeUnchanged means the price equals the stored one; nothing was sent.
	OutcomeUnchanged
	// OutcomeChanged means the price moved (or was first seen) and targets were notified.
	OutcomeChanged
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFetchFailed:
		return "fetch_failed"
	case OutcomeExtractFailed:
		return "extract_failed"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one cycle.
type Outcome struct {
	Kind        OutcomeKind
	CycleID     string
	Observation goldprice.Observation
	// Previous is the stored price before this cycle, nil on the first observation.
	Previous *float64
	Report   dispatcher.Report
	Err      error
	Duration time.Duration
}
