package emitter

import (
	"strconv"
	"strings"

	"github.com/footprintai/backend/internal/models"
)

// Altium ASCII format layer names.
const (
	asciiLayerTop        = "Top Layer"
	asciiLayerMulti      = "MultiLayer"
	asciiLayerTopOverlay = "Top Overlay"
)

var asciiLayerNames = map[Layer]string{
	LayerTop:        asciiLayerTop,
	LayerMulti:      asciiLayerMulti,
	LayerTopOverlay: asciiLayerTopOverlay,
}

// Pad shape names as they appear in the ASCII format.
var asciiShapeNames = map[models.PadShape]string{
	models.ShapeRound:            "Round",
	models.ShapeRectangular:      "Rectangular",
	models.ShapeRoundedRectangle: "Rounded Rectangle",
	models.ShapeOval:             "Oval",
}

// asciiWriter accumulates the document and hands out sequential record
// IDs. IDs restart at 1 for every emission, so re-emitting the same
// footprint is byte-for-byte identical.
type asciiWriter struct {
	sb       strings.Builder
	recordID int
}

func (w *asciiWriter) nextRecordID() int {
	w.recordID++
	return w.recordID
}

func (w *asciiWriter) line(s string) {
	w.sb.WriteString(s)
	w.sb.WriteByte('\n')
}

func (w *asciiWriter) kv(key, value string) {
	w.sb.WriteString(key)
	w.sb.WriteByte('=')
	w.sb.WriteString(value)
	w.sb.WriteByte('\n')
}

func (w *asciiWriter) blank() {
	w.sb.WriteByte('\n')
}

// EmitASCII renders the footprint as an Altium .PcbLib ASCII document.
// The function is pure and deterministic; emitters never fail on a
// footprint the domain model accepted.
func EmitASCII(f *models.Footprint) string {
	w := &asciiWriter{}

	w.writeHeader()
	w.writeComponent(f)

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

	w.writeFooter()
	return w.sb.String()
}

func (w *asciiWriter) writeHeader() {
	w.line("PCB Library Document")
	w.kv("Version", "1.0")
	w.kv("Encoding", "UTF-8")
	w.blank()
}

func (w *asciiWriter) writeFooter() {
	w.blank()
	w.line("End PCB Library")
}

func (w *asciiWriter) writeComponent(f *models.Footprint) {
	w.line("[Component]")
	w.kv("Name", f.Name)
	if f.Description != "" {
		w.kv("Description", f.Description)
	}
	w.kv("RecordID", strconv.Itoa(w.nextRecordID()))
	w.blank()
}

func (w *asciiWriter) writePad(p models.Pad) {
	w.line("[Pad]")
	w.kv("RecordID", strconv.Itoa(w.nextRecordID()))
	w.kv("Designator", p.Designator)
	w.kv("Layer", asciiLayerNames[padLayer(p)])
	w.kv("X", formatMM(p.X))
	w.kv("Y", formatMM(p.Y))
	w.kv("Rotation", formatAngle(p.Rotation))

	shape, ok := asciiShapeNames[p.Shape]
	if !ok {
		shape = asciiShapeNames[models.ShapeRectangular]
	}
	w.kv("Shape", shape)

	// Sizes are the pre-rotation extents; rotation is a separate
	// field, never baked into coordinates.
	w.kv("XSize", formatMM(p.Width))
	w.kv("YSize", formatMM(p.Height))

	if d, ok := padDrill(p); ok {
		w.writeDrill(d)
	}
	w.blank()
}

func (w *asciiWriter) writeDrill(d models.Drill) {
	w.kv("HoleSize", formatMM(d.Diameter))
	if d.IsSlot() {
		w.kv("DrillType", "Slot")
		w.kv("SlotLength", formatMM(*d.SlotLength))
	} else {
		w.kv("DrillType", "Round")
	}
}

func (w *asciiWriter) writeVia(v models.Via) {
	w.line("[Via]")
	w.kv("RecordID", strconv.Itoa(w.nextRecordID()))
	w.kv("Layer", asciiLayerMulti)
	w.kv("X", formatMM(v.X))
	w.kv("Y", formatMM(v.Y))
	w.kv("Diameter", formatMM(v.Diameter))
	w.kv("HoleSize", formatMM(v.DrillDiameter))
	w.blank()
}

func (w *asciiWriter) writeOutlineTracks(o models.Outline) {
	corners := outlineCorners(o)
	width := outlineLineWidth(o)

	for i := 0; i < 4; i++ {
		start := corners[i]
		end := corners[(i+1)%4]

		w.line("[Track]")
		w.kv("RecordID", strconv.Itoa(w.nextRecordID()))
		w.kv("Layer", asciiLayerTopOverlay)
		w.kv("X1", formatMM(start[0]))
		w.kv("Y1", formatMM(start[1]))
		w.kv("X2", formatMM(end[0]))
		w.kv("Y2", formatMM(end[1]))
		w.kv("Width", formatMM(width))
		w.blank()
	}
}

func (w *asciiWriter) writePin1Indicator(f *models.Footprint) {
	pin1 := findPin1(f)
	if pin1 == nil {
		return
	}
	x, y := pin1IndicatorCenter(pin1)

	w.line("[Arc]")
	w.kv("RecordID", strconv.Itoa(w.nextRecordID()))
	w.kv("Layer", asciiLayerTopOverlay)
	w.kv("X", formatMM(x))
	w.kv("Y", formatMM(y))
	w.kv("Radius", formatMM(pin1Radius))
	w.kv("StartAngle", "0")
	w.kv("EndAngle", "360")
	w.kv("Width", formatMM(pin1StrokeWidth))
	w.blank()
}
