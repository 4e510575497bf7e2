// interfaces.go - Collaborator interfaces for clean separation of concerns
package api

import (
	"context"

	"github.com/footprintai/backend/internal/extraction"
	"github.com/footprintai/backend/internal/history"
	"github.com/footprintai/backend/internal/models"
	"github.com/footprintai/backend/internal/verification"
)

// Extractor is the vision extraction backend. *extraction.Client is
// the production implementation; tests substitute a stub.
type Extractor interface {
	Extract(ctx context.Context, images []models.ImageData, opts extraction.ExtractOptions) (*extraction.Response, error)
	DetectStandardPackage(ctx context.Context, img models.ImageData) (*extraction.StandardPackage, error)
	VerifyFootprint(ctx context.Context, req verification.Request) (*verification.Verdict, error)
	Model() string
}

// HistoryRecorder persists completed extractions.
// This allows mocking in tests and makes history optional at wiring time.
type HistoryRecorder interface {
	Record(ctx context.Context, e history.Entry) (int64, error)
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}
