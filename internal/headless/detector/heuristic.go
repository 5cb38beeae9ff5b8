// Package detector decides when a statically fetched page needs a headless
// browser to render the price.
package detector

import (
	"strings"
)

// Heuristic implements a handful of rule-based promotions.
type Heuristic struct {
	BodyLengthThreshold int
	// Extractable, when set, reports whether the static page already carries
	// what the caller needs. Such pages are never promoted; the remaining
	// rules decide for the rest.
	Extractable func(page string) bool
}

// NewHeuristic creates a new detector. extractable may be nil.
func NewHeuristic(threshold int, extractable func(page string) bool) *Heuristic {
	if threshold == 0 {
		threshold = 2048
	}
	return &Heuristic{BodyLengthThreshold: threshold, Extractable: extractable}
}

var spaMarkers = []string{
	"__next",
	`id="root"`,
	`id="app"`,
	"data-reactroot",
}

// ShouldPromote decides whether a headless fetch is required.
func (h *Heuristic) ShouldPromote(page string) bool {
	if strings.TrimSpace(page) == "" {
		return true
	}
	if h.Extractable != nil && h.Extractable(page) {
		return false
	}
	if len(page) < h.BodyLengthThreshold && scriptDensityHigh(page) {
		return true
	}
	for _, marker := range spaMarkers {
		if strings.Contains(page, marker) {
			return true
		}
	}
	return false
}

func scriptDensityHigh(body string) bool {
	lower := strings.ToLower(body)
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	scriptCoverage := 0
	searchPos := 0

	for {
		relativeStart := strings.Index(lower[searchPos:], openTag)
		if relativeStart == -1 {
			break
		}
		start := searchPos + relativeStart

		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// Malformed tag: count the rest of the document as script.
			scriptCoverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		relativeEnd := strings.Index(lower[contentStart:], closeTag)
		var nextSearch int
		if relativeEnd == -1 {
			nextSearch = total
		} else {
			nextSearch = contentStart + relativeEnd + len(closeTag)
		}

		scriptCoverage += nextSearch - start
		searchPos = nextSearch
	}

	return scriptCoverage*100/total >= 25
}
