// Package verification inspects a normalized extraction for geometric
// inconsistencies and, through an injected image-grounded corrector,
// produces a corrected extraction.
//
// The design separates the cheap local heuristic (DetectSuspicious)
// from the expensive external check (the Corrector call). Collaborator
// failures are never fatal: the original extraction is kept and a
// warning is appended.
package verification

import (
	"context"
	"fmt"
	"sort"

	"github.com/footprintai/backend/internal/models"
)

// thermalAliases are designators treated as thermal/exposed pads.
// Thermal pads are excluded from pitch estimation and are never
// resized by a dimension correction.
var thermalAliases = map[string]struct{}{
	"EP":      {},
	"9":       {},
	"thermal": {},
}

// IsThermalPad reports whether a designator names a thermal pad.
func IsThermalPad(designator string) bool {
	_, ok := thermalAliases[designator]
	return ok
}

// Tolerances for the pitch heuristic.
const (
	sameSideTolerance = 0.5  // pads within this X distance count as one package side
	minPitchSample    = 0.1  // ignore near-coincident pads
	ratioLow          = 0.90 // dimension/pitch window that triggers suspicion
	ratioHigh         = 1.10
	// Packages with this many signal pads and no thermal pad commonly
	// do have an exposed pad the model missed.
	thermalSuspectPadCount = 8
)

// Suspicion is the outcome of the local heuristic pass.
type Suspicion struct {
	NeedsCheck     bool
	Reasons        []string
	EstimatedPitch *float64
}

// Request carries the representative values the corrector is asked to
// check against the source image.
type Request struct {
	Reasons    []string
	PadWidth   float64
	PadHeight  float64
	LongerDim  float64
	PadCount   int
	HasThermal bool
	Image      models.ImageData
}

// Verdict is the corrector's structured answer.
type Verdict struct {
	Verified        bool
	CorrectedWidth  *float64
	CorrectedHeight *float64
	DimensionIssue  string
	CorrectedCount  *int
	ThermalIssue    string
	Confidence      float64
}

// DimensionsCorrected reports whether the verdict carries a pad
// dimension correction.
func (v *Verdict) DimensionsCorrected() bool {
	return v.CorrectedWidth != nil || v.CorrectedHeight != nil
}

// Corrector is the external image-grounded collaborator. It is always
// injected, never constructed here, so tests can substitute a stub
// returning canned verdicts.
type Corrector interface {
	VerifyFootprint(ctx context.Context, req Request) (*Verdict, error)
}

// signalPads returns the pads that are not thermal-aliased.
func signalPads(pads []models.Pad) []models.Pad {
	out := make([]models.Pad, 0, len(pads))
	for _, p := range pads {
		if !IsThermalPad(p.Designator) {
			out = append(out, p)
		}
	}
	return out
}

// DetectSuspicious runs the local heuristic over an extraction. It is
// pure: no I/O, no collaborator, no mutation.
//
// The main error it hunts is pitch/pad-size confusion: vision models
// regularly report the center-to-center pad spacing as the pad width.
// A real pad is typically 40-70% of the pitch, so a pad dimension
// within 10% of the estimated pitch is almost certainly wrong.
func DetectSuspicious(res *models.ExtractionResult) Suspicion {
	var s Suspicion

	if len(res.Pads) == 0 {
		return s
	}

	signals := signalPads(res.Pads)
	if len(signals) == 0 {
		return s
	}

	if len(signals) >= 2 {
		if pitch, ok := estimatePitch(signals); ok {
			width := signals[0].Width
			height := signals[0].Height

			widthRatio := width / pitch
			heightRatio := height / pitch

			if inRatioWindow(widthRatio) || inRatioWindow(heightRatio) {
				s.NeedsCheck = true
				s.Reasons = append(s.Reasons, fmt.Sprintf(
					"Pad dimension (%gmm or %gmm) matches calculated pitch (%.2fmm) - possible confusion",
					width, height, pitch))
				p := pitch
				s.EstimatedPitch = &p
			}
		}
	}

	hasThermal := len(signals) != len(res.Pads)
	if !hasThermal && len(signals) >= thermalSuspectPadCount {
		s.NeedsCheck = true
		s.Reasons = append(s.Reasons,
			"No thermal pad detected but package has 8+ signal pads - verify if EP exists")
	}

	return s
}

func inRatioWindow(r float64) bool {
	return r >= ratioLow && r <= ratioHigh
}

// estimatePitch approximates the package pitch from pad positions:
// pads are sorted by (x, y), consecutive pads on the same side
// (near-equal X) contribute their |dY| as a sample, and the samples
// are averaged.
func estimatePitch(signals []models.Pad) (float64, bool) {
	sorted := make([]models.Pad, len(signals))
	copy(sorted, signals)
	sortPadsByPosition(sorted)

	var sum float64
	var n int
	for i := 0; i < len(sorted)-1; i++ {
		p1, p2 := sorted[i], sorted[i+1]
		if abs(p1.X-p2.X) < sameSideTolerance {
			if pitch := abs(p1.Y - p2.Y); pitch > minPitchSample {
				sum += pitch
				n++
			}
		}
	}
	if n == 0 || sum <= 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func sortPadsByPosition(pads []models.Pad) {
	sort.Slice(pads, func(i, j int) bool {
		if pads[i].X != pads[j].X {
			return pads[i].X < pads[j].X
		}
		return pads[i].Y < pads[j].Y
	})
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Verify runs the external check for an extraction already flagged by
// DetectSuspicious. The suspicion is passed in so callers decide when
// the expensive call is worth making.
func Verify(ctx context.Context, res *models.ExtractionResult, sus Suspicion, img models.ImageData, c Corrector) (*Verdict, error) {
	if !sus.NeedsCheck {
		return &Verdict{Verified: true, Confidence: res.OverallConfidence}, nil
	}

	signals := signalPads(res.Pads)
	if len(signals) == 0 {
		return &Verdict{Verified: true, Confidence: 0.5}, nil
	}

	width := signals[0].Width
	height := signals[0].Height

	req := Request{
		Reasons:    sus.Reasons,
		PadWidth:   width,
		PadHeight:  height,
		LongerDim:  max(width, height),
		PadCount:   len(res.Pads),
		HasThermal: len(signals) != len(res.Pads),
		Image:      img,
	}

	verdict, err := c.VerifyFootprint(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("corrector call: %w", err)
	}
	return verdict, nil
}

// ApplyCorrections builds a new extraction with the verdict's pad
// dimension corrections applied. Thermal-aliased pads always pass
// through unmodified. Every rebuilt pad carries the verdict's
// confidence in place of its prior per-pad confidence, and warnings
// accumulate onto the existing list, never replacing it.
func ApplyCorrections(res *models.ExtractionResult, verdict *Verdict) *models.ExtractionResult {
	if verdict.Verified && !verdict.DimensionsCorrected() {
		return res
	}

	corrected := make([]models.Pad, 0, len(res.Pads))
	for _, p := range res.Pads {
		if IsThermalPad(p.Designator) {
			corrected = append(corrected, p)
			continue
		}

		newPad := p
		if verdict.CorrectedWidth != nil {
			newPad.Width = *verdict.CorrectedWidth
		}
		if verdict.CorrectedHeight != nil {
			newPad.Height = *verdict.CorrectedHeight
		}
		newPad.Confidence = verdict.Confidence
		corrected = append(corrected, newPad)
	}

	warnings := make([]string, len(res.Warnings), len(res.Warnings)+2)
	copy(warnings, res.Warnings)
	if verdict.DimensionIssue != "" {
		warnings = append(warnings, "Corrected: "+verdict.DimensionIssue)
	}
	if verdict.ThermalIssue != "" {
		warnings = append(warnings, "Thermal pad: "+verdict.ThermalIssue)
	}

	out := *res
	out.Pads = corrected
	out.OverallConfidence = verdict.Confidence
	out.Warnings = warnings
	return &out
}

// Run is the full optional verification pass used by the pipeline:
// detect, verify, apply. It returns the (possibly corrected)
// extraction and whether a correction was applied. Any collaborator
// failure degrades to "keep the original, append a warning" - never
// an error, never a retry.
func Run(ctx context.Context, res *models.ExtractionResult, img models.ImageData, c Corrector) (*models.ExtractionResult, bool) {
	sus := DetectSuspicious(res)
	if !sus.NeedsCheck {
		return res, false
	}
	if c == nil {
		return res, false
	}

	verdict, err := Verify(ctx, res, sus, img, c)
	if err != nil {
		out := *res
		out.Warnings = append(append([]string{}, res.Warnings...),
			fmt.Sprintf("Verification skipped: %v", err))
		return &out, false
	}

	if verdict.DimensionsCorrected() || !verdict.Verified {
		return ApplyCorrections(res, verdict), true
	}
	return res, false
}
