package emitter

import (
	"fmt"
	"strings"

	"github.com/footprintai/backend/internal/models"
)

// DelphiScript layer constants.
var delphiLayerNames = map[Layer]string{
	LayerTop:        "eTopLayer",
	LayerMulti:      "eMultiLayer",
	LayerTopOverlay: "eTopOverlay",
}

// DelphiScript pad shape constants. Altium has no dedicated oval
// shape; ovals render as rounded pads with unequal X/Y sizes.
var delphiShapeNames = map[models.PadShape]string{
	models.ShapeRound:            "eRounded",
	models.ShapeRectangular:      "eRectangular",
	models.ShapeRoundedRectangle: "eRoundedRectangular",
	models.ShapeOval:             "eRounded",
}

// scriptWriter accumulates the DelphiScript body.
type scriptWriter struct {
	sb strings.Builder
}

func (w *scriptWriter) line(format string, args ...any) {
	if len(args) == 0 {
		w.sb.WriteString(format)
	} else {
		fmt.Fprintf(&w.sb, format, args...)
	}
	w.sb.WriteByte('\n')
}

// pasString quotes a string as a Pascal literal, doubling embedded
// single quotes.
func pasString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// mm renders a millimeter value as a MMsToCoord call.
func mm(v float64) string {
	return fmt.Sprintf("MMsToCoord(%s)", formatNum(v))
}

// EmitScript renders the footprint as a DelphiScript procedure that
// drives the Altium PCBServer object model: one create call per pad,
// via, track and arc. The script carries exactly the same layer,
// drill and Pin 1 semantics as the ASCII document; both formats share
// the decision helpers.
func EmitScript(f *models.Footprint) string {
	name := SanitizeName(f.Name)
	w := &scriptWriter{}

	w.line("{ %s - PCB footprint generator script }", name)
	w.line("{ Open a .PcbLib document in Altium Designer, then run CreateFootprint. }")
	w.line("")
	w.line("Procedure CreateFootprint;")
	w.line("Var")
	w.line("    CurrentLib : IPCB_Library;")
	w.line("    Footprint  : IPCB_LibComponent;")
	w.line("    Pad        : IPCB_Pad;")
	w.line("    Via        : IPCB_Via;")
	w.line("    Track      : IPCB_Track;")
	w.line("    Arc        : IPCB_Arc;")
	w.line("Begin")
	w.line("    CurrentLib := PCBServer.GetCurrentPCBLibrary;")
	w.line("    If CurrentLib = Nil Then")
	w.line("    Begin")
	w.line("        ShowMessage('No PCB library open. Create or open a .PcbLib document first.');")
	w.line("        Exit;")
	w.line("    End;")
	w.line("")
	w.line("    PCBServer.PreProcess;")
	w.line("")
	w.line("    Footprint := PCBServer.CreatePCBLibComp;")
	w.line("    Footprint.Name := %s;", pasString(name))
	if f.Description != "" {
		w.line("    Footprint.Description := %s;", pasString(f.Description))
	}
	w.line("")

	for _, p := range f.Pads {
		w.writePad(p)
	}
	for _, v := range f.Vias {
		w.writeVia(v)
	}
	if f.Outline != nil {
		w.writeOutlineTracks(*f.Outline)
		w.writePin1Indicator(f)
	}

	w.line("    CurrentLib.RegisterComponent(Footprint);")
	w.line("    PCBServer.PostProcess;")
	w.line("    CurrentLib.Board.ViewManager_FullUpdate;")
	w.line("")
	w.line("    ShowMessage('Footprint %s created: %d pads, %d vias.');",
		name, len(f.Pads), len(f.Vias))
	w.line("End;")

	return w.sb.String()
}

func (w *scriptWriter) writePad(p models.Pad) {
	shape, ok := delphiShapeNames[p.Shape]
	if !ok {
		shape = delphiShapeNames[models.ShapeRectangular]
	}

	w.line("    Pad := PCBServer.PCBObjectFactory(ePadObject, eNoDimension, eCreate_Default);")
	w.line("    Pad.Name := %s;", pasString(p.Designator))
	w.line("    Pad.X := %s;", mm(p.X))
	w.line("    Pad.Y := %s;", mm(p.Y))
	w.line("    Pad.TopXSize := %s;", mm(p.Width))
	w.line("    Pad.TopYSize := %s;", mm(p.Height))
	w.line("    Pad.Rotation := %s;", formatNum(p.Rotation))
	w.line("    Pad.TopShape := %s;", shape)
	w.line("    Pad.Layer := %s;", delphiLayerNames[padLayer(p)])

	if d, ok := padDrill(p); ok {
		w.line("    Pad.HoleSize := %s;", mm(d.Diameter))
		if d.IsSlot() {
			w.line("    Pad.HoleType := eSlotHole;")
			w.line("    Pad.HoleWidth := %s;", mm(*d.SlotLength))
		} else {
			w.line("    Pad.HoleType := eRoundHole;")
		}
	}

	w.line("    Footprint.AddPCBObject(Pad);")
	w.line("")
}

func (w *scriptWriter) writeVia(v models.Via) {
	w.line("    Via := PCBServer.PCBObjectFactory(eViaObject, eNoDimension, eCreate_Default);")
	w.line("    Via.X := %s;", mm(v.X))
	w.line("    Via.Y := %s;", mm(v.Y))
	w.line("    Via.Size := %s;", mm(v.Diameter))
	w.line("    Via.HoleSize := %s;", mm(v.DrillDiameter))
	w.line("    Via.LowLayer := eBottomLayer;")
	w.line("    Via.HighLayer := eTopLayer;")
	w.line("    Footprint.AddPCBObject(Via);")
	w.line("")
}

func (w *scriptWriter) writeOutlineTracks(o models.Outline) {
	corners := outlineCorners(o)
	width := outlineLineWidth(o)

	for i := 0; i < 4; i++ {
		start := corners[i]
		end := corners[(i+1)%4]

		w.line("    Track := PCBServer.PCBObjectFactory(eTrackObject, eNoDimension, eCreate_Default);")
		w.line("    Track.X1 := %s;", mm(start[0]))
		w.line("    Track.Y1 := %s;", mm(start[1]))
		w.line("    Track.X2 := %s;", mm(end[0]))
		w.line("    Track.Y2 := %s;", mm(end[1]))
		w.line("    Track.Width := %s;", mm(width))
		w.line("    Track.Layer := %s;", delphiLayerNames[LayerTopOverlay])
		w.line("    Footprint.AddPCBObject(Track);")
		w.line("")
	}
}

func (w *scriptWriter) writePin1Indicator(f *models.Footprint) {
	pin1 := findPin1(f)
	if pin1 == nil {
		return
	}
	x, y := pin1IndicatorCenter(pin1)

	w.line("    Arc := PCBServer.PCBObjectFactory(eArcObject, eNoDimension, eCreate_Default);")
	w.line("    Arc.XCenter := %s;", mm(x))
	w.line("    Arc.YCenter := %s;", mm(y))
	w.line("    Arc.Radius := %s;", mm(pin1Radius))
	w.line("    Arc.StartAngle := 0;")
	w.line("    Arc.EndAngle := 360;")
	w.line("    Arc.LineWidth := %s;", mm(pin1StrokeWidth))
	w.line("    Arc.Layer := %s;", delphiLayerNames[LayerTopOverlay])
	w.line("    Footprint.AddPCBObject(Arc);")
	w.line("")
}
