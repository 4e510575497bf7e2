package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/footprintai/backend/internal/emitter"
	"github.com/footprintai/backend/internal/extraction"
)

// generateFromFile normalizes a saved extraction JSON and writes the
// Altium outputs next to each other in outDir.
func generateFromFile(inputPath, outDir string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	footprint, result, err := extraction.Normalize(data)
	if err != nil {
		return fmt.Errorf("failed to normalize extraction: %w", err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	name := emitter.SanitizeName(footprint.Name)
	outputs := map[string]string{
		name + ".PcbLib": emitter.EmitASCII(footprint),
		name + ".pas":    emitter.EmitScript(footprint),
		name + ".PrjScr": emitter.ProjectFile(name),
	}

	for filename, content := range outputs {
		path := filepath.Join(outDir, filename)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		logger.Info("wrote output", zap.String("path", path))
	}

	logger.Info("generation complete",
		zap.String("footprint", footprint.Name),
		zap.Int("pads", len(footprint.Pads)),
		zap.Int("vias", len(footprint.Vias)),
		zap.Float64("confidence", result.OverallConfidence))

	for _, w := range result.Warnings {
		logger.Warn("extraction warning", zap.String("warning", w))
	}

	return nil
}
