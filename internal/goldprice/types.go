package goldprice

import (
	"fmt"
	"strings"
	"time"
)

// Variant selects the notification payload shape for a target.
type Variant string

const (
	// VariantHomescreen sends the rich payload with delta, glyph and colors.
	VariantHomescreen Variant = "homescreen"
	// VariantLockscreen sends only the rounded current price.
	VariantLockscreen Variant = "lockscreen"
)

// ParseVariant normalizes a configured variant. Empty means homescreen.
func ParseVariant(raw string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(raw))); v {
	case "":
		return VariantHomescreen, nil
	case VariantHomescreen, VariantLockscreen:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown target type %q", ErrConfig, raw)
	}
}

// Target is a webhook endpoint that receives price-change notifications.
type Target struct {
	URL     string  `json:"url" mapstructure:"url"`
	Name    string  `json:"name,omitempty" mapstructure:"name"`
	Variant Variant `json:"type,omitempty" mapstructure:"type"`
}

// DisplayName returns the configured name, or the URL when none was given.
func (t Target) DisplayName() string {
	if strings.TrimSpace(t.Name) != "" {
		return t.Name
	}
	return t.URL
}

// Observation is a single scraped price.
type Observation struct {
	Price      float64
	ObservedAt time.Time
	CycleID    string
}
