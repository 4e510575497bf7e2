package extraction

import (
	"fmt"
	"sort"
	"strings"
)

// Two-stage extraction prompts. Stage 1 parses the dimension table and
// drawing metadata with a cheap model; stage 2 extracts geometry with a
// stronger model, fed the parsed table so it does not confuse pad size
// with pitch.

const stage1Schema = `{
  "type": "object",
  "properties": {
    "drawing_format": {"type": "string", "enum": ["table_variable", "inline", "mixed"], "description": "table_variable = dimensions shown as labels (A, B, X1) with table mapping to values; inline = values shown directly on drawing; mixed = both"},
    "dimension_table": {"type": "object", "description": "Mapping of dimension labels to their values in mm. Extract NOM/TYP values. Example: {'X1': 0.30, 'X2': 1.60, 'Y1': 0.85}", "additionalProperties": {"type": "number"}},
    "package_type": {"type": "string", "description": "Package type: UDFN, QFN, SOIC, TSSOP, BGA, TH_CONNECTOR, MIXED, CUSTOM, etc."},
    "pad_arrangement": {"type": "string", "enum": ["peripheral", "linear_rows", "grid", "dual_row", "edge_connector", "custom"], "description": "How pads are arranged: peripheral (QFN/QFP), linear_rows (SOIC), grid (BGA), dual_row (TH connector), edge_connector (M.2/PCIe)"},
    "estimated_pad_count": {"type": "integer", "description": "Approximate number of pads visible in drawing"},
    "has_thermal_pad": {"type": "boolean", "description": "True if there's a center exposed/thermal pad"},
    "has_thermal_vias": {"type": "boolean", "description": "True if thermal vias are visible in/near thermal pad"},
    "units_detected": {"type": "string", "enum": ["mm", "mil", "inch", "mixed", "unknown"], "description": "Units used in the drawing"},
    "dimension_semantics": {
      "type": "object",
      "description": "For each dimension variable, what it likely represents",
      "properties": {
        "pad_width_label": {"type": "string", "description": "Label for pad width (e.g., 'X1', 'b')"},
        "pad_height_label": {"type": "string", "description": "Label for pad height/length (e.g., 'Y1', 'L')"},
        "pitch_label": {"type": "string", "description": "Label for pad pitch/spacing (e.g., 'E', 'e')"},
        "thermal_width_label": {"type": "string", "description": "Label for thermal pad width (e.g., 'X2', 'D2')"},
        "thermal_height_label": {"type": "string", "description": "Label for thermal pad height (e.g., 'Y2', 'E2')"}
      }
    },
    "warnings": {"type": "array", "items": {"type": "string"}, "description": "Any ambiguities or issues noticed"}
  },
  "required": ["drawing_format", "dimension_table", "package_type", "pad_arrangement", "estimated_pad_count", "has_thermal_pad", "units_detected"]
}`

const stage1PromptTemplate = `You are analyzing a PCB component datasheet image to extract metadata and parse dimension tables.

## Your Task
Analyze this datasheet image and extract:
1. The drawing format (table-variable vs inline dimensions)
2. The dimension table (if present) - mapping labels to values
3. Package type and pad arrangement
4. What each dimension label represents

## Understanding Drawing Formats

### Table-Variable Format
The drawing shows dimension LABELS (X1, Y1, E, G1, etc.) pointing to features, with a separate table mapping labels to numeric values:
` + "```" + `
Table:
| Symbol | MIN | NOM | MAX |
|--------|-----|-----|-----|
| X1     | 0.25| 0.30| 0.35|
| Y1     | 0.80| 0.85| 0.90|
| E      |     | 0.50|     |
` + "```" + `
For table-variable format, extract the NOM (nominal) or TYP (typical) values.

### Inline Format
Dimensions are shown directly on the drawing with numeric values (e.g., "0.50" pointing to a feature).

## Common Dimension Label Semantics

For UDFN/QFN/SOIC packages, labels typically mean:
- **X1, b, W** = Pad WIDTH (horizontal dimension of copper pad) - typically 0.2-0.5mm
- **Y1, L** = Pad HEIGHT/LENGTH (vertical dimension) - typically 0.3-1.5mm
- **X2, D2** = Thermal pad WIDTH
- **Y2, E2** = Thermal pad HEIGHT
- **E, e, pitch** = Pad PITCH (spacing between pad centers) - NOT pad size!
- **G, G1** = Distance from pad center to package center
- **C** = Total pad-to-pad span
- **V** = Via diameter
- **EV** = Via pitch

## CRITICAL DISTINCTION: Pitch vs Pad Size
- **Pitch (E, e)** = distance between pad CENTERS (e.g., 0.5mm, 1.27mm)
- **Pad width (X1, b)** = width of ONE pad's copper (typically 40-70%% of pitch)
- If E = 0.50mm, the pad width is probably 0.25-0.35mm, NOT 0.50mm

## Output Schema
` + "```json\n%s\n```" + `

Return ONLY valid JSON, no other text. Analyze the image and extract the metadata:`

// Stage1Prompt returns the scene analysis and table parsing prompt.
func Stage1Prompt() string {
	return fmt.Sprintf(stage1PromptTemplate, stage1Schema)
}

const stage2Schema = `{
  "type": "object",
  "properties": {
    "footprint_name": {"type": "string", "description": "Suggested footprint name based on package"},
    "pads": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "designator": {"type": "string", "description": "Pin number (1, 2, 3...) or EP for thermal pad"},
          "x": {"type": "number", "description": "X position of pad CENTER in mm (origin at component center)"},
          "y": {"type": "number", "description": "Y position of pad CENTER in mm (origin at component center)"},
          "width": {"type": "number", "description": "Pad width (X dimension) in mm"},
          "height": {"type": "number", "description": "Pad height (Y dimension) in mm"},
          "shape": {"type": "string", "enum": ["rectangular", "round", "oval", "rounded_rectangle"]},
          "pad_type": {"type": "string", "enum": ["smd", "th"]},
          "rotation": {"type": "number", "description": "Rotation in degrees (0 = no rotation)"},
          "drill_diameter": {"type": ["number", "null"], "description": "For TH pads only"},
          "drill_slot_length": {"type": ["number", "null"], "description": "For slotted holes only"},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        },
        "required": ["designator", "x", "y", "width", "height", "shape", "pad_type", "confidence"]
      }
    },
    "vias": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "x": {"type": "number"},
          "y": {"type": "number"},
          "drill_diameter": {"type": "number"},
          "outer_diameter": {"type": "number"}
        },
        "required": ["x", "y", "drill_diameter", "outer_diameter"]
      }
    },
    "outline": {"type": "object", "properties": {"width": {"type": "number"}, "height": {"type": "number"}}},
    "pin1_location": {
      "type": "object",
      "properties": {
        "designator": {"type": "string"},
        "indicator_type": {"type": "string", "enum": ["dot", "chamfer", "notch", "square_pad", "numbered", "inferred"]},
        "confidence": {"type": "number"}
      }
    },
    "overall_confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "warnings": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["footprint_name", "pads", "vias", "outline", "pin1_location", "overall_confidence"]
}`

// StageAnalysis is the decoded stage 1 result carried into the stage 2
// prompt. Absent fields keep their zero values; the prompt renders them
// as unknown.
type StageAnalysis struct {
	DrawingFormat      string             `json:"drawing_format"`
	DimensionTable     map[string]float64 `json:"dimension_table"`
	PackageType        string             `json:"package_type"`
	PadArrangement     string             `json:"pad_arrangement"`
	EstimatedPadCount  int                `json:"estimated_pad_count"`
	HasThermalPad      bool               `json:"has_thermal_pad"`
	HasThermalVias     bool               `json:"has_thermal_vias"`
	UnitsDetected      string             `json:"units_detected"`
	DimensionSemantics struct {
		PadWidthLabel      string `json:"pad_width_label"`
		PadHeightLabel     string `json:"pad_height_label"`
		PitchLabel         string `json:"pitch_label"`
		ThermalWidthLabel  string `json:"thermal_width_label"`
		ThermalHeightLabel string `json:"thermal_height_label"`
	} `json:"dimension_semantics"`
	Warnings []string `json:"warnings"`
}

// Stage2Prompt renders the geometry extraction prompt with the stage 1
// analysis embedded.
func Stage2Prompt(analysis *StageAnalysis) string {
	var sb strings.Builder

	sb.WriteString("You are extracting precise PCB footprint geometry from a datasheet image.\n\n")
	sb.WriteString("## Stage 1 Analysis (Already Completed)\n")
	sb.WriteString("The image has been analyzed and the following was determined:\n\n")
	fmt.Fprintf(&sb, "**Drawing Format:** %s\n", orUnknown(analysis.DrawingFormat))
	fmt.Fprintf(&sb, "**Package Type:** %s\n", orUnknown(analysis.PackageType))
	fmt.Fprintf(&sb, "**Pad Arrangement:** %s\n", orUnknown(analysis.PadArrangement))
	fmt.Fprintf(&sb, "**Estimated Pad Count:** %d\n", analysis.EstimatedPadCount)
	fmt.Fprintf(&sb, "**Has Thermal Pad:** %t\n", analysis.HasThermalPad)
	fmt.Fprintf(&sb, "**Has Thermal Vias:** %t\n", analysis.HasThermalVias)
	fmt.Fprintf(&sb, "**Units:** %s\n\n", orDefault(analysis.UnitsDetected, "mm"))

	sb.WriteString("**Dimension Table (parsed values):**\n")
	sb.WriteString(formatDimensionTable(analysis.DimensionTable))
	sb.WriteString("\n\n**Dimension Semantics (what each label means):**\n")
	sb.WriteString(formatSemantics(analysis))

	sb.WriteString("\n\n## Your Task\n")
	sb.WriteString(`Using the dimension values above, extract the COMPLETE footprint geometry:
1. Calculate exact pad positions using the parsed dimension values
2. Create ALL pads (including thermal pad if present)
3. Create thermal vias if present
4. Identify Pin 1 location

## Coordinate System
- Origin (0,0) is at the COMPONENT CENTER
- +X points RIGHT
- +Y points UP
- All dimensions in MILLIMETERS

## CRITICAL: Using the Dimension Table Correctly

You MUST use the parsed dimension values from Stage 1. Do NOT re-read values from the image.

`)
	fmt.Fprintf(&sb, "For this %s package with %s arrangement:\n",
		orUnknown(analysis.PackageType), orUnknown(analysis.PadArrangement))
	sb.WriteString(dimensionUsageGuide(analysis))

	sb.WriteString(`
## Example Pad Position Calculation for UDFN/QFN

If pitch (E) = 0.5mm and there are 4 pads per side:
- Pad 1: y = +1.5 * 0.5 = +0.75mm
- Pad 2: y = +0.5 * 0.5 = +0.25mm
- Pad 3: y = -0.5 * 0.5 = -0.25mm
- Pad 4: y = -1.5 * 0.5 = -0.75mm

The X position comes from G1 (pad center to component center distance).

## Via Grid Calculation

If via pitch (EV) = 1.0mm and thermal pad has room for a 2x2 grid:
- Via 1: (x=-0.5, y=+0.5)
- Via 2: (x=+0.5, y=+0.5)
- Via 3: (x=-0.5, y=-0.5)
- Via 4: (x=+0.5, y=-0.5)

## Output Schema
`)
	sb.WriteString("```json\n")
	sb.WriteString(stage2Schema)
	sb.WriteString("\n```\n\nReturn ONLY valid JSON. Extract the complete footprint geometry:")

	return sb.String()
}

func formatDimensionTable(table map[string]float64) string {
	if len(table) == 0 {
		return "  (no table found)"
	}
	labels := make([]string, 0, len(table))
	for k := range table {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	lines := make([]string, len(labels))
	for i, k := range labels {
		lines[i] = fmt.Sprintf("  - %s = %gmm", k, table[k])
	}
	return strings.Join(lines, "\n")
}

func formatSemantics(analysis *StageAnalysis) string {
	sem := analysis.DimensionSemantics
	pairs := []struct{ key, value string }{
		{"pad_width_label", sem.PadWidthLabel},
		{"pad_height_label", sem.PadHeightLabel},
		{"pitch_label", sem.PitchLabel},
		{"thermal_width_label", sem.ThermalWidthLabel},
		{"thermal_height_label", sem.ThermalHeightLabel},
	}
	var lines []string
	for _, p := range pairs {
		if p.value != "" {
			lines = append(lines, fmt.Sprintf("  - %s: %s", p.key, p.value))
		}
	}
	if len(lines) == 0 {
		return "  (no semantics identified)"
	}
	return strings.Join(lines, "\n")
}

func dimensionUsageGuide(analysis *StageAnalysis) string {
	sem := analysis.DimensionSemantics
	widthLabel := orDefault(sem.PadWidthLabel, "X1")
	heightLabel := orDefault(sem.PadHeightLabel, "Y1")
	pitchLabel := orDefault(sem.PitchLabel, "E")
	thermalW := orDefault(sem.ThermalWidthLabel, "X2")
	thermalH := orDefault(sem.ThermalHeightLabel, "Y2")

	var sb strings.Builder
	sb.WriteString("\n**For signal pads:**\n")
	fmt.Fprintf(&sb, "- Pad width = %s = %s\n", widthLabel, tableValue(analysis.DimensionTable, widthLabel))
	fmt.Fprintf(&sb, "- Pad height = %s = %s\n", heightLabel, tableValue(analysis.DimensionTable, heightLabel))
	fmt.Fprintf(&sb, "- Pitch (spacing) = %s = %s\n", pitchLabel, tableValue(analysis.DimensionTable, pitchLabel))
	sb.WriteString("- Use pitch to calculate Y positions of pads on left/right sides\n")

	if analysis.HasThermalPad {
		sb.WriteString("\n**For thermal pad (designate as 'EP' or '9'):**\n")
		fmt.Fprintf(&sb, "- Width = %s = %s\n", thermalW, tableValue(analysis.DimensionTable, thermalW))
		fmt.Fprintf(&sb, "- Height = %s = %s\n", thermalH, tableValue(analysis.DimensionTable, thermalH))
		sb.WriteString("- Position at center (x=0, y=0)\n")
	}

	if analysis.HasThermalVias {
		sb.WriteString("\n**For thermal vias:**\n")
		fmt.Fprintf(&sb, "- Via drill diameter = V = %s\n", tableValue(analysis.DimensionTable, "V"))
		fmt.Fprintf(&sb, "- Via pitch = EV = %s\n", tableValue(analysis.DimensionTable, "EV"))
		sb.WriteString("- Calculate grid positions based on pitch within thermal pad area\n")
		sb.WriteString("- Outer diameter = drill + 0.3mm (typical annular ring)\n")
	}

	return sb.String()
}

func tableValue(table map[string]float64, label string) string {
	if v, ok := table[label]; ok {
		return fmt.Sprintf("%gmm", v)
	}
	return "?mm"
}

func orUnknown(s string) string {
	return orDefault(s, "unknown")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
