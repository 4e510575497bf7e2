package extraction

import (
	"strings"
	"testing"
)

func TestStageAnalysisDecoding(t *testing.T) {
	text := "```json\n" + `{
		"drawing_format": "table_variable",
		"dimension_table": {"X1": 0.30, "Y1": 0.85, "E": 0.50},
		"package_type": "UDFN",
		"pad_arrangement": "peripheral",
		"estimated_pad_count": 8,
		"has_thermal_pad": true,
		"has_thermal_vias": false,
		"units_detected": "mm",
		"dimension_semantics": {
			"pad_width_label": "X1",
			"pad_height_label": "Y1",
			"pitch_label": "E"
		}
	}` + "\n```"

	var a StageAnalysis
	if err := DecodeModelJSON(text, &a); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if a.PackageType != "UDFN" || a.EstimatedPadCount != 8 || !a.HasThermalPad {
		t.Errorf("analysis = %+v", a)
	}
	if a.DimensionTable["E"] != 0.5 {
		t.Errorf("table E = %g, want 0.5", a.DimensionTable["E"])
	}
}

func TestStage2Prompt(t *testing.T) {
	a := &StageAnalysis{
		DrawingFormat:     "table_variable",
		DimensionTable:    map[string]float64{"X1": 0.30, "Y1": 0.85, "E": 0.50},
		PackageType:       "UDFN",
		PadArrangement:    "peripheral",
		EstimatedPadCount: 8,
		HasThermalPad:     true,
	}
	a.DimensionSemantics.PadWidthLabel = "X1"
	a.DimensionSemantics.PadHeightLabel = "Y1"
	a.DimensionSemantics.PitchLabel = "E"

	prompt := Stage2Prompt(a)

	for _, want := range []string{
		"**Package Type:** UDFN",
		"**Estimated Pad Count:** 8",
		"- E = 0.5mm",
		"- X1 = 0.3mm",
		"Pad width = X1 = 0.3mm",
		"Pitch (spacing) = E = 0.5mm",
		"**For thermal pad",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestStage2PromptDefaults(t *testing.T) {
	prompt := Stage2Prompt(&StageAnalysis{})

	for _, want := range []string{
		"**Drawing Format:** unknown",
		"**Units:** mm",
		"(no table found)",
		"Pad width = X1 = ?mm",
		"Pitch (spacing) = E = ?mm",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "**For thermal pad") {
		t.Error("thermal guidance must be absent without a thermal pad")
	}
}

func TestStage1PromptMentionsSchema(t *testing.T) {
	p := Stage1Prompt()
	for _, want := range []string{"dimension_table", "drawing_format", "pad_arrangement"} {
		if !strings.Contains(p, want) {
			t.Errorf("stage 1 prompt missing %q", want)
		}
	}
}
