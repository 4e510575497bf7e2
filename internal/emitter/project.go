package emitter

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/footprintai/backend/internal/models"
)

// ProjectFile renders the Altium script project (.PrjScr) referencing
// the generated .pas document. scriptName must already be sanitized.
func ProjectFile(scriptName string) string {
	return fmt.Sprintf(`[Design]
Version=1.0
HierarchyMode=0
ChannelRoomNamingStyle=0
OutputPath=
ChannelDesignatorFormatString=$Component_$RoomName
ChannelRoomLevelSeperator=_
ReleasesFolder=
DesignCapture=
ProjectType=Script
LockPanelState=0

[Document1]
DocumentPath=%s.pas
AnnotationEnabled=1
`, scriptName)
}

// ScriptPackage assembles the downloadable script project zip:
// <name>.PrjScr plus <name>.pas.
func ScriptPackage(f *models.Footprint) ([]byte, string, error) {
	name := SanitizeName(f.Name)
	script := EmitScript(f)
	project := ProjectFile(name)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, entry := range []struct {
		name    string
		content string
	}{
		{name + ".PrjScr", project},
		{name + ".pas", script},
	} {
		w, err := zw.Create(entry.name)
		if err != nil {
			return nil, "", fmt.Errorf("creating zip entry %s: %w", entry.name, err)
		}
		if _, err := w.Write([]byte(entry.content)); err != nil {
			return nil, "", fmt.Errorf("writing zip entry %s: %w", entry.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("finalizing zip: %w", err)
	}
	return buf.Bytes(), name, nil
}
