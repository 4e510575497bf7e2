// Package emitter renders a validated footprint into the two Altium
// output formats: the record-based .PcbLib ASCII document and the
// DelphiScript automation script.
//
// Both formats share one set of semantic decisions (layer assignment,
// drill handling, Pin 1 indicator placement). Those live here so the
// two emitters cannot drift apart.
package emitter

import (
	"fmt"
	"strings"

	"github.com/footprintai/backend/internal/models"
)

// Layer is a format-independent layer designation. Each emitter maps
// it to its own spelling.
type Layer int

const (
	// LayerTop is the top copper layer (SMD pads).
	LayerTop Layer = iota
	// LayerMulti spans all copper layers (through-hole pads, vias).
	LayerMulti
	// LayerTopOverlay is the top silkscreen layer.
	LayerTopOverlay
)

// Pin 1 indicator geometry. The indicator is a full circle on the
// silkscreen layer, offset from the Pin 1 pad center away from the
// component origin.
const (
	pin1Offset      = 0.5
	pin1Radius      = 0.25
	pin1StrokeWidth = 0.15
)

// DefaultFootprintName is used when sanitizing an empty or fully
// non-identifier name.
const DefaultFootprintName = "Footprint"

// padLayer returns the layer a pad is placed on. This is the sole
// purpose of the mount type at emission time.
func padLayer(p models.Pad) Layer {
	if p.Type == models.PadTypeThroughHole {
		return LayerMulti
	}
	return LayerTop
}

// padDrill returns the drill to emit for a pad. Only through-hole
// pads that actually carry a drill emit one.
func padDrill(p models.Pad) (models.Drill, bool) {
	if p.Type == models.PadTypeThroughHole && p.Drill != nil {
		return *p.Drill, true
	}
	return models.Drill{}, false
}

// findPin1 locates the Pin 1 pad: the pad whose designator is
// literally "1", falling back to the first pad in list order. Returns
// nil when the footprint has no pads.
func findPin1(f *models.Footprint) *models.Pad {
	for i := range f.Pads {
		if f.Pads[i].Designator == "1" {
			return &f.Pads[i]
		}
	}
	if len(f.Pads) > 0 {
		return &f.Pads[0]
	}
	return nil
}

// pin1IndicatorCenter returns the indicator circle center for the
// given Pin 1 pad: the pad center pushed 0.5mm outward along each
// axis, away from the origin.
func pin1IndicatorCenter(pin1 *models.Pad) (x, y float64) {
	x, y = pin1.X, pin1.Y
	if pin1.X < 0 {
		x -= pin1Offset
	} else {
		x += pin1Offset
	}
	if pin1.Y > 0 {
		y += pin1Offset
	} else {
		y -= pin1Offset
	}
	return x, y
}

// outlineCorners returns the outline rectangle corners in emission
// order: bottom-left, bottom-right, top-right, top-left. Consecutive
// corners (wrapping around) form the four silkscreen tracks.
func outlineCorners(o models.Outline) [4][2]float64 {
	halfW := o.Width / 2
	halfH := o.Height / 2
	return [4][2]float64{
		{-halfW, -halfH},
		{halfW, -halfH},
		{halfW, halfH},
		{-halfW, halfH},
	}
}

// outlineLineWidth falls back to the default silkscreen stroke when
// the outline does not carry one.
func outlineLineWidth(o models.Outline) float64 {
	if o.LineWidth > 0 {
		return o.LineWidth
	}
	return models.DefaultLineWidth
}

// formatMM renders a coordinate or dimension to exactly three decimal
// digits (micrometer precision) with the mm unit suffix. The precision
// is a format contract; tests assert on the exact strings.
func formatMM(v float64) string {
	return fmt.Sprintf("%.3fmm", v)
}

// formatAngle renders a rotation to three decimal digits, no suffix.
func formatAngle(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

// formatNum renders a bare numeric value to three decimal digits.
func formatNum(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

// SanitizeName converts a footprint name into a filesystem- and
// identifier-safe token: every character outside [A-Za-z0-9_-] becomes
// an underscore. An empty result falls back to DefaultFootprintName.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return DefaultFootprintName
	}
	return b.String()
}
