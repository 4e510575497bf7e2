// Package extraction converts raw vision-model output into the typed
// footprint domain model, and hosts the Gemini client that produces
// that output.
package extraction

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/footprintai/backend/internal/models"
)

// Defaults applied at the normalization boundary. The pad-level and
// extraction-level confidence defaults are intentionally different:
// an individual pad the model chose to report is presumed good (1.0),
// while a response that omits its own overall confidence is only
// half-trusted (0.5).
const (
	defaultPadConfidence     = 1.0
	defaultOverallConfidence = 0.5
	defaultFootprintName     = "EXTRACTED"
	defaultViaDiameter       = 0.6
	defaultViaDrillDiameter  = 0.3
)

// Shape and mount vocabulary. Unrecognized tokens fall back to the
// most common case rather than failing: model output is inherently
// partial, and a wrong-but-renderable footprint the user can review
// beats a rejected one.
var shapeVocabulary = map[string]models.PadShape{
	"round":             models.ShapeRound,
	"rectangular":       models.ShapeRectangular,
	"rounded_rectangle": models.ShapeRoundedRectangle,
	"oval":              models.ShapeOval,
}

// Raw wire shapes for the extraction response. All scalars are loose:
// a malformed field is coerced to its default, never rejected.
type rawExtraction struct {
	FootprintName     looseString `json:"footprint_name"`
	StandardDetected  *string     `json:"standard_package_detected"`
	Pads              []rawPad    `json:"pads"`
	Vias              []rawVia    `json:"vias"`
	Outline           *rawOutline `json:"outline"`
	Pin1Location      *rawPin1    `json:"pin1_location"`
	OverallConfidence looseFloat  `json:"overall_confidence"`
	Warnings          []string    `json:"warnings"`
}

type rawPad struct {
	Designator      looseString `json:"designator"`
	X               looseFloat  `json:"x"`
	Y               looseFloat  `json:"y"`
	Width           looseFloat  `json:"width"`
	Height          looseFloat  `json:"height"`
	Rotation        looseFloat  `json:"rotation"`
	Shape           looseString `json:"shape"`
	PadType         looseString `json:"pad_type"`
	DrillDiameter   looseFloat  `json:"drill_diameter"`
	DrillSlotLength looseFloat  `json:"drill_slot_length"`
	Confidence      looseFloat  `json:"confidence"`
}

type rawVia struct {
	X             looseFloat `json:"x"`
	Y             looseFloat `json:"y"`
	DrillDiameter looseFloat `json:"drill_diameter"`
	OuterDiameter looseFloat `json:"outer_diameter"`
}

type rawOutline struct {
	Width  looseFloat `json:"width"`
	Height looseFloat `json:"height"`
}

type rawPin1 struct {
	Designator looseString `json:"designator"`
}

// Normalize maps a raw extraction response onto the domain model. It
// returns an error only when data is not a JSON object at all; every
// field-level irregularity is absorbed via defaults. The normalizer
// never logs and never rejects an individual pad.
func Normalize(data []byte) (*models.Footprint, *models.ExtractionResult, error) {
	var raw rawExtraction
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decoding extraction response: %w", err)
	}
	fp, res := normalizeRaw(&raw)
	return fp, res, nil
}

// FootprintFromResult rebuilds the footprint view of an extraction.
// Needed after verification corrections replace pad geometry.
func FootprintFromResult(res *models.ExtractionResult, name string) *models.Footprint {
	if name == "" {
		name = defaultFootprintName
	}
	return &models.Footprint{
		Name:        name,
		Description: "Extracted from datasheet image",
		Pads:        res.Pads,
		Vias:        res.Vias,
		Outline:     res.Outline,
	}
}

func normalizeRaw(raw *rawExtraction) (*models.Footprint, *models.ExtractionResult) {
	pads := make([]models.Pad, 0, len(raw.Pads))
	for _, rp := range raw.Pads {
		pads = append(pads, normalizePad(rp))
	}

	vias := make([]models.Via, 0, len(raw.Vias))
	for _, rv := range raw.Vias {
		vias = append(vias, models.Via{
			X:             rv.X.Or(0),
			Y:             rv.Y.Or(0),
			Diameter:      rv.OuterDiameter.Or(defaultViaDiameter),
			DrillDiameter: rv.DrillDiameter.Or(defaultViaDrillDiameter),
		})
	}

	var outline models.Outline
	if raw.Outline != nil {
		outline = models.NewOutline(raw.Outline.Width.Or(0), raw.Outline.Height.Or(0))
	} else {
		outline = models.NewOutline(0, 0)
	}

	fp := &models.Footprint{
		Name:        raw.FootprintName.Or(defaultFootprintName),
		Description: "Extracted from datasheet image",
		Pads:        pads,
		Vias:        vias,
		Outline:     &outline,
	}

	// Pin 1 resolution: a literal string compare against the declared
	// designator, first match wins. There is no fallback to index 0 -
	// an unresolved Pin 1 must surface to the user for confirmation.
	pin1Detected := false
	var pin1Index *int
	if raw.Pin1Location != nil {
		if want, ok := raw.Pin1Location.Designator.value, raw.Pin1Location.Designator.ok; ok && want != "" {
			for i := range pads {
				if pads[i].Designator == want {
					idx := i
					pin1Index = &idx
					pin1Detected = true
					break
				}
			}
		}
	}

	warnings := raw.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	res := &models.ExtractionResult{
		PackageType:       "custom",
		StandardDetected:  raw.StandardDetected,
		Units:             "mm",
		Pads:              pads,
		Vias:              vias,
		Pin1Detected:      pin1Detected,
		Pin1Index:         pin1Index,
		Outline:           &outline,
		OverallConfidence: raw.OverallConfidence.Or(defaultOverallConfidence),
		Warnings:          warnings,
	}
	return fp, res
}

func normalizePad(rp rawPad) models.Pad {
	shape, ok := shapeVocabulary[strings.ToLower(rp.Shape.Or("rectangular"))]
	if !ok {
		shape = models.ShapeRectangular
	}

	padType := models.PadTypeSMD
	if strings.ToLower(rp.PadType.Or("smd")) == "th" {
		padType = models.PadTypeThroughHole
	}

	// Drill construction is attempted only for through-hole pads that
	// actually report a drill diameter; slot geometry is inferred from
	// the presence of a slot length, not from an explicit flag.
	var drill *models.Drill
	if padType == models.PadTypeThroughHole {
		if dia, ok := rp.DrillDiameter.Get(); ok && dia != 0 {
			d := models.Drill{Diameter: dia, Type: models.DrillRound}
			if sl, ok := rp.DrillSlotLength.Get(); ok && sl != 0 {
				d.Type = models.DrillSlot
				d.SlotLength = &sl
			}
			drill = &d
		}
	}

	return models.Pad{
		Designator: rp.Designator.Or(""),
		X:          rp.X.Or(0),
		Y:          rp.Y.Or(0),
		Width:      rp.Width.Or(0),
		Height:     rp.Height.Or(0),
		Rotation:   rp.Rotation.Or(0),
		Shape:      shape,
		Type:       padType,
		Drill:      drill,
		Confidence: rp.Confidence.Or(defaultPadConfidence),
	}
}
