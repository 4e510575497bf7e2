// Package models defines the footprint domain model shared by the
// extraction, verification and emitter packages.
//
// Coordinate system: origin at the component center, +X points right,
// +Y points up. All dimensions are millimeters, rotations are degrees
// (0 = horizontal). This matches Altium Designer conventions.
package models

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry is wrapped by every constructor-level validation
// failure. Callers can match it with errors.Is.
var ErrInvalidGeometry = errors.New("invalid geometry")

// PadShape is the geometric shape of a pad.
type PadShape string

const (
	ShapeRound            PadShape = "round"
	ShapeRectangular      PadShape = "rectangular"
	ShapeRoundedRectangle PadShape = "rounded_rectangle"
	ShapeOval             PadShape = "oval"
)

// PadType is the mounting type of a pad.
//
//   - SMD: pad on the top layer only, no drill hole
//   - Through-hole: pad spans all layers with a drill hole
type PadType string

const (
	PadTypeSMD         PadType = "smd"
	PadTypeThroughHole PadType = "th"
)

// DrillType is the drill hole geometry for through-hole pads.
type DrillType string

const (
	DrillRound DrillType = "round"
	DrillSlot  DrillType = "slot"
)

// Drill describes the hole of a through-hole pad. For round holes
// Diameter is the only dimension; for slots it is the slot width and
// SlotLength is the slot's long dimension.
//
// A slot drill without a slot length renders as a round drill. That
// downgrade is silent and deliberate: extraction output frequently
// declares a slot without measuring its length.
type Drill struct {
	Diameter   float64   `json:"diameter"`
	SlotLength *float64  `json:"slotLength,omitempty"`
	Type       DrillType `json:"type"`
}

// NewDrill validates and returns a round drill.
func NewDrill(diameter float64) (Drill, error) {
	d := Drill{Diameter: diameter, Type: DrillRound}
	if err := d.Validate(); err != nil {
		return Drill{}, err
	}
	return d, nil
}

// NewSlotDrill validates and returns a slotted drill.
func NewSlotDrill(diameter, slotLength float64) (Drill, error) {
	d := Drill{Diameter: diameter, SlotLength: &slotLength, Type: DrillSlot}
	if err := d.Validate(); err != nil {
		return Drill{}, err
	}
	return d, nil
}

// Validate checks the drill's hard invariants.
func (d Drill) Validate() error {
	if d.Diameter <= 0 {
		return fmt.Errorf("%w: drill diameter must be positive, got %g", ErrInvalidGeometry, d.Diameter)
	}
	if d.SlotLength != nil && *d.SlotLength <= 0 {
		return fmt.Errorf("%w: slot length must be positive, got %g", ErrInvalidGeometry, *d.SlotLength)
	}
	return nil
}

// IsSlot reports whether the drill renders as a slot. A declared slot
// without a slot length downgrades to round.
func (d Drill) IsSlot() bool {
	return d.Type == DrillSlot && d.SlotLength != nil
}

// Pad is a single copper pad. Position is the pad center relative to
// the component origin; Width and Height are the pre-rotation extents.
//
// Mount-type/drill consistency is intentionally not enforced: an SMD
// pad may carry a Drill and a through-hole pad may carry none. The
// emitters only honor a drill on through-hole pads.
type Pad struct {
	Designator string   `json:"designator"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Width      float64  `json:"width"`
	Height     float64  `json:"height"`
	Rotation   float64  `json:"rotation"`
	Shape      PadShape `json:"shape"`
	Type       PadType  `json:"padType"`
	Drill      *Drill   `json:"drill,omitempty"`
	Confidence float64  `json:"confidence"`
}

// NewPad validates p, filling enum defaults (rectangular SMD) for
// empty shape and type fields.
func NewPad(p Pad) (Pad, error) {
	if p.Shape == "" {
		p.Shape = ShapeRectangular
	}
	if p.Type == "" {
		p.Type = PadTypeSMD
	}
	if err := p.Validate(); err != nil {
		return Pad{}, err
	}
	return p, nil
}

// Validate checks the pad's hard invariants.
func (p Pad) Validate() error {
	if p.Designator == "" {
		return fmt.Errorf("%w: pad designator must not be empty", ErrInvalidGeometry)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: pad %q dimensions must be positive, got %gx%g",
			ErrInvalidGeometry, p.Designator, p.Width, p.Height)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("%w: pad %q confidence must be in [0,1], got %g",
			ErrInvalidGeometry, p.Designator, p.Confidence)
	}
	if p.Drill != nil {
		if err := p.Drill.Validate(); err != nil {
			return fmt.Errorf("pad %q: %w", p.Designator, err)
		}
	}
	return nil
}

// Via is a thermal via. Vias always span all layers and are round.
// Diameter is the copper annular-ring outer diameter.
type Via struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Diameter      float64 `json:"diameter"`
	DrillDiameter float64 `json:"drillDiameter"`
}

// NewVia validates and returns the via.
func NewVia(v Via) (Via, error) {
	if err := v.Validate(); err != nil {
		return Via{}, err
	}
	return v, nil
}

// Validate checks the via's hard invariants.
func (v Via) Validate() error {
	if v.Diameter <= 0 || v.DrillDiameter <= 0 {
		return fmt.Errorf("%w: via diameters must be positive, got %g/%g",
			ErrInvalidGeometry, v.Diameter, v.DrillDiameter)
	}
	if v.DrillDiameter >= v.Diameter {
		return fmt.Errorf("%w: via drill %g must be smaller than outer diameter %g",
			ErrInvalidGeometry, v.DrillDiameter, v.Diameter)
	}
	return nil
}

// DefaultLineWidth is the silkscreen stroke width used when an
// outline does not specify one.
const DefaultLineWidth = 0.15

// Outline is the component body box drawn on the silkscreen layer.
type Outline struct {
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	LineWidth float64 `json:"lineWidth"`
}

// NewOutline returns an outline with the default line width.
func NewOutline(width, height float64) Outline {
	return Outline{Width: width, Height: height, LineWidth: DefaultLineWidth}
}

// Footprint is a complete footprint: pads, thermal vias and an
// optional silkscreen outline. Instances are value objects; the
// verification engine builds new footprints instead of mutating.
type Footprint struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Pads        []Pad    `json:"pads"`
	Vias        []Via    `json:"vias"`
	Outline     *Outline `json:"outline,omitempty"`
}

// Bounds returns the tightest axis-aligned box (minX, minY, maxX,
// maxY) covering every pad's own extent. Rotation is ignored: the box
// uses pre-rotation widths and heights, a deliberate simplification.
// Returns all zeros when the footprint has no pads.
func (f *Footprint) Bounds() (minX, minY, maxX, maxY float64) {
	if len(f.Pads) == 0 {
		return 0, 0, 0, 0
	}
	first := f.Pads[0]
	minX, maxX = first.X-first.Width/2, first.X+first.Width/2
	minY, maxY = first.Y-first.Height/2, first.Y+first.Height/2
	for _, p := range f.Pads[1:] {
		if x := p.X - p.Width/2; x < minX {
			minX = x
		}
		if x := p.X + p.Width/2; x > maxX {
			maxX = x
		}
		if y := p.Y - p.Height/2; y < minY {
			minY = y
		}
		if y := p.Y + p.Height/2; y > maxY {
			maxY = y
		}
	}
	return minX, minY, maxX, maxY
}

// Validate checks every pad and via. The normalizer deliberately does
// not call this (extraction output is partial by nature); callers that
// hand-build footprints should.
func (f *Footprint) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: footprint name must not be empty", ErrInvalidGeometry)
	}
	for _, p := range f.Pads {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	for _, v := range f.Vias {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
