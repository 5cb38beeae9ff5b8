package notifier

import (
	"fmt"
	"math"

	"github.com/JakeFAU/goldwatch/internal/goldprice"
)

// Direction glyphs understood by the widget on the receiving end.
const (
	GlyphUp   = "arrow.up"
	GlyphDown = "arrow.down"
	GlyphFlat = "minus"
)

// Color tokens for rising, falling and unchanged prices.
const (
	ColorPositive = "rgba(34.12%, 96.86%, 0.00%, 1.00)"
	ColorNegative = "rgba(100.00%, 34.12%, 34.12%, 1.00)"
	ColorNeutral  = "rgba(75.00%, 75.00%, 75.00%, 1.00)"
)

// Payload is the JSON body posted to a target.
type Payload struct {
	Inputs map[string]string `json:"inputs"`
}

// Change describes how the current price moved relative to the previous one.
type Change struct {
	Delta   float64
	Percent float64
	Glyph   string
	Color   string
}

// ComputeChange derives delta and presentation for current against previous.
// previous is nil on the first observation, which reports no change.
func ComputeChange(current float64, previous *float64) Change {
	var delta, percent float64
	if previous != nil {
		delta = current - *previous
		if *previous != 0 {
			percent = delta / *previous * 100
		}
	}
	switch {
	case delta > 0:
		return Change{Delta: delta, Percent: percent, Glyph: GlyphUp, Color: ColorPositive}
	case delta < 0:
		return Change{Delta: delta, Percent: percent, Glyph: GlyphDown, Color: ColorNegative}
	default:
		return Change{Glyph: GlyphFlat, Color: ColorNeutral}
	}
}

// DeltaText renders the absolute delta and percentage, e.g. "50.00 (1.43%)".
func (c Change) DeltaText() string {
	return fmt.Sprintf("%.2f (%.2f%%)", math.Abs(c.Delta), math.Abs(c.Percent))
}

// BuildPayload shapes the notification for the target's variant.
func BuildPayload(variant goldprice.Variant, current float64, previous *float64) Payload {
	price := fmt.Sprintf("%.0f", current)
	if variant == goldprice.VariantLockscreen {
		return Payload{Inputs: map[string]string{"input0": price}}
	}
	change := ComputeChange(current, previous)
	return Payload{Inputs: map[string]string{
		"input0": price,
		"input1": change.Glyph,
		"input2": change.DeltaText(),
		"input3": change.Color,
		"input4": change.Color,
	}}
}
