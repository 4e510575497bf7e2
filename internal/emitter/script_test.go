package emitter

import (
	"strings"
	"testing"

	"github.com/footprintai/backend/internal/models"
	"github.com/footprintai/backend/internal/testutil"
)

func TestEmitScriptStructure(t *testing.T) {
	script := EmitScript(testutil.SO8EPFootprint())

	for _, want := range []string{
		"Procedure CreateFootprint;",
		"CurrentLib := PCBServer.GetCurrentPCBLibrary;",
		"PCBServer.PreProcess;",
		"Footprint := PCBServer.CreatePCBLibComp;",
		"Footprint.Name := 'SO-8EP';",
		"CurrentLib.RegisterComponent(Footprint);",
		"PCBServer.PostProcess;",
		"End;",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestEmitScriptObjectCounts(t *testing.T) {
	script := EmitScript(testutil.SO8EPFootprint())

	counts := map[string]int{
		"PCBObjectFactory(ePadObject":   9,
		"PCBObjectFactory(eViaObject":   6,
		"PCBObjectFactory(eTrackObject": 4,
		"PCBObjectFactory(eArcObject":   1,
	}
	for marker, want := range counts {
		if got := strings.Count(script, marker); got != want {
			t.Errorf("%s count = %d, want %d", marker, got, want)
		}
	}
}

func TestEmitScriptPadFields(t *testing.T) {
	script := EmitScript(testutil.SO8EPFootprint())

	for _, want := range []string{
		"Pad.Name := '1';",
		"Pad.X := MMsToCoord(-2.498);",
		"Pad.Y := MMsToCoord(1.905);",
		"Pad.TopXSize := MMsToCoord(0.802);",
		"Pad.TopYSize := MMsToCoord(1.505);",
		"Pad.Rotation := 90.000;",
		"Pad.TopShape := eRectangular;",
		"Pad.Layer := eTopLayer;",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("missing %q", want)
		}
	}

	if strings.Contains(script, "Pad.HoleSize") {
		t.Error("SMD-only footprint must not set pad hole sizes")
	}
}

func TestEmitScriptDrills(t *testing.T) {
	slotLen := 1.8
	f := &models.Footprint{
		Name: "TH-MIX",
		Pads: []models.Pad{
			{
				Designator: "1", Width: 1.5, Height: 1.5,
				Type:  models.PadTypeThroughHole,
				Drill: &models.Drill{Diameter: 0.8, Type: models.DrillRound},
			},
			{
				Designator: "2", X: 2, Width: 1.2, Height: 2.4,
				Type:  models.PadTypeThroughHole,
				Drill: &models.Drill{Diameter: 0.6, SlotLength: &slotLen, Type: models.DrillSlot},
			},
		},
	}
	script := EmitScript(f)

	for _, want := range []string{
		"Pad.HoleSize := MMsToCoord(0.800);",
		"Pad.HoleType := eRoundHole;",
		"Pad.HoleSize := MMsToCoord(0.600);",
		"Pad.HoleType := eSlotHole;",
		"Pad.HoleWidth := MMsToCoord(1.800);",
		"Pad.Layer := eMultiLayer;",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestEmitScriptPin1Indicator(t *testing.T) {
	script := EmitScript(testutil.SO8EPFootprint())

	for _, want := range []string{
		"Arc.XCenter := MMsToCoord(-2.998);",
		"Arc.YCenter := MMsToCoord(2.405);",
		"Arc.Radius := MMsToCoord(0.250);",
		"Arc.StartAngle := 0;",
		"Arc.EndAngle := 360;",
		"Arc.Layer := eTopOverlay;",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestEmitScriptQuotesApostrophes(t *testing.T) {
	if got := pasString("it's"); got != "'it''s'" {
		t.Errorf("pasString = %q, want %q", got, "'it''s'")
	}
}

// The two emitters must stay semantically aligned: same layers, same
// drill decisions, same indicator placement.
func TestEmittersAgreeOnSemantics(t *testing.T) {
	f := testutil.SO8EPFootprint()
	doc := EmitASCII(f)
	script := EmitScript(f)

	t.Run("pin 1 indicator position", func(t *testing.T) {
		if !strings.Contains(doc, "X=-2.998mm") || !strings.Contains(script, "Arc.XCenter := MMsToCoord(-2.998);") {
			t.Error("indicator X diverges between formats")
		}
	})

	t.Run("object counts", func(t *testing.T) {
		if strings.Count(doc, "[Pad]") != strings.Count(script, "PCBObjectFactory(ePadObject") {
			t.Error("pad counts diverge between formats")
		}
		if strings.Count(doc, "[Via]") != strings.Count(script, "PCBObjectFactory(eViaObject") {
			t.Error("via counts diverge between formats")
		}
	})
}
