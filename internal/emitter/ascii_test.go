package emitter

import (
	"fmt"
	"strings"
	"testing"

	"github.com/footprintai/backend/internal/models"
	"github.com/footprintai/backend/internal/testutil"
)

func TestEmitASCIIHeaderFooter(t *testing.T) {
	doc := EmitASCII(testutil.SO8EPFootprint())

	if !strings.HasPrefix(doc, "PCB Library Document\nVersion=1.0\nEncoding=UTF-8\n\n") {
		t.Errorf("bad header:\n%s", doc[:min(len(doc), 80)])
	}
	if !strings.HasSuffix(doc, "\nEnd PCB Library\n") {
		t.Errorf("bad footer:\n...%s", doc[len(doc)-40:])
	}
}

func TestEmitASCIIRecordCounts(t *testing.T) {
	doc := EmitASCII(testutil.SO8EPFootprint())

	counts := map[string]int{
		"[Component]": 1,
		"[Pad]":       9,
		"[Via]":       6,
		"[Track]":     4,
		"[Arc]":       1,
	}
	for marker, want := range counts {
		if got := strings.Count(doc, marker); got != want {
			t.Errorf("%s count = %d, want %d", marker, got, want)
		}
	}
}

func TestEmitASCIIRecordIDsSequential(t *testing.T) {
	doc := EmitASCII(testutil.SO8EPFootprint())

	// 1 component + 9 pads + 6 vias + 4 tracks + 1 arc
	total := 21
	for id := 1; id <= total; id++ {
		needle := fmt.Sprintf("RecordID=%d\n", id)
		if !strings.Contains(doc, needle) {
			t.Errorf("missing %q", needle)
		}
	}
	if strings.Contains(doc, fmt.Sprintf("RecordID=%d\n", total+1)) {
		t.Errorf("unexpected RecordID beyond %d", total)
	}
}

func TestEmitASCIIPadFields(t *testing.T) {
	doc := EmitASCII(testutil.SO8EPFootprint())

	for _, want := range []string{
		"Designator=1\n",
		"X=-2.498mm\n",
		"Y=1.905mm\n",
		"Rotation=90.000\n",
		"Shape=Rectangular\n",
		"XSize=0.802mm\n",
		"YSize=1.505mm\n",
		"Layer=Top Layer\n",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("missing %q", want)
		}
	}

	// SMD pads carry no drill block; DrillType only appears on
	// through-hole pads.
	if strings.Contains(doc, "DrillType=") {
		t.Error("SMD-only footprint must not emit pad drills")
	}
}

func TestEmitASCIIVias(t *testing.T) {
	doc := EmitASCII(testutil.SO8EPFootprint())

	for _, want := range []string{
		"Layer=MultiLayer\n",
		"Diameter=0.500mm\n",
		"HoleSize=0.200mm\n",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestEmitASCIIPin1Indicator(t *testing.T) {
	doc := EmitASCII(testutil.SO8EPFootprint())

	arcIdx := strings.Index(doc, "[Arc]")
	if arcIdx < 0 {
		t.Fatal("missing [Arc] record")
	}
	arc := doc[arcIdx:]

	for _, want := range []string{
		"Layer=Top Overlay\n",
		"X=-2.998mm\n",
		"Y=2.405mm\n",
		"Radius=0.250mm\n",
		"StartAngle=0\n",
		"EndAngle=360\n",
		"Width=0.150mm\n",
	} {
		if !strings.Contains(arc, want) {
			t.Errorf("arc record missing %q", want)
		}
	}
}

func TestEmitASCIIDrills(t *testing.T) {
	slotLen := 1.8
	f := &models.Footprint{
		Name: "TH-MIX",
		Pads: []models.Pad{
			{
				Designator: "1", Width: 1.5, Height: 1.5,
				Type:  models.PadTypeThroughHole,
				Shape: models.ShapeRound,
				Drill: &models.Drill{Diameter: 0.8, Type: models.DrillRound},
			},
			{
				Designator: "2", X: 2, Width: 1.2, Height: 2.4,
				Type:  models.PadTypeThroughHole,
				Shape: models.ShapeOval,
				Drill: &models.Drill{Diameter: 0.6, SlotLength: &slotLen, Type: models.DrillSlot},
			},
		},
	}
	doc := EmitASCII(f)

	for _, want := range []string{
		"HoleSize=0.800mm\nDrillType=Round\n",
		"HoleSize=0.600mm\nDrillType=Slot\nSlotLength=1.800mm\n",
		"Layer=MultiLayer\n",
		"Shape=Round\n",
		"Shape=Oval\n",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestEmitASCIINoPadsNoArc(t *testing.T) {
	outline := models.NewOutline(2, 2)
	f := &models.Footprint{Name: "BARE", Outline: &outline}
	doc := EmitASCII(f)

	if strings.Contains(doc, "[Arc]") {
		t.Error("footprint without pads must not emit a Pin 1 indicator")
	}
	if got := strings.Count(doc, "[Track]"); got != 4 {
		t.Errorf("[Track] count = %d, want 4", got)
	}
}

func TestEmitASCIIDeterministic(t *testing.T) {
	f := testutil.SO8EPFootprint()
	if EmitASCII(f) != EmitASCII(f) {
		t.Error("re-emission must be byte-for-byte identical")
	}
}
