package models

// ExtractionResult is a normalized extraction: the footprint contents
// plus metadata about extraction quality and detected issues.
type ExtractionResult struct {
	PackageType       string   `json:"packageType"`
	StandardDetected  *string  `json:"standardDetected,omitempty"`
	Units             string   `json:"units"`
	Pads              []Pad    `json:"pads"`
	Vias              []Via    `json:"vias"`
	Pin1Detected      bool     `json:"pin1Detected"`
	Pin1Index         *int     `json:"pin1Index,omitempty"`
	Outline           *Outline `json:"outline,omitempty"`
	OverallConfidence float64  `json:"overallConfidence"`
	Warnings          []string `json:"warnings"`
}

// ImageData is one uploaded source image held in memory for a
// collaborator call.
type ImageData struct {
	Filename  string
	Data      []byte
	MediaType string
}
