package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/footprintai/backend/internal/config"
	"github.com/footprintai/backend/internal/extraction"
	"github.com/footprintai/backend/internal/jobs"
	"github.com/footprintai/backend/internal/models"
	"github.com/footprintai/backend/internal/storage"
)

// serviceName appears in health responses.
const serviceName = "PCB Footprint Generator API"

// Handler handles API requests.
type Handler struct {
	store     storage.Store
	jobs      *jobs.Manager
	extractor Extractor
	history   HistoryRecorder
	cfg       *config.AppConfig
	logger    *zap.Logger
	version   string
}

// NewHandler creates a new API handler. history may be nil when the
// history store is disabled.
func NewHandler(store storage.Store, jobMgr *jobs.Manager, extractor Extractor, hist HistoryRecorder, cfg *config.AppConfig, logger *zap.Logger, version string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:     store,
		jobs:      jobMgr,
		extractor: extractor,
		history:   hist,
		cfg:       cfg,
		logger:    logger,
		version:   version,
	}
}

func (h *Handler) environment() string {
	if h.cfg.RateLimit.Enabled {
		return "production"
	}
	return "development"
}

// HandleHealth returns server health status.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"service":      serviceName,
		"version":      h.version,
		"environment":  h.environment(),
		"rateLimiting": h.cfg.RateLimit.Enabled,
	})
}

// HandleStatus returns API status including rate limit information.
func (h *Handler) HandleStatus(c echo.Context) error {
	limits := map[string]interface{}{
		"upload":  "unlimited",
		"extract": "unlimited",
	}
	if h.cfg.RateLimit.Enabled {
		limits["upload"] = h.cfg.RateLimit.UploadsPerHour
		limits["extract"] = h.cfg.RateLimit.ExtractionsPerHour
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": h.environment(),
		"model":       h.extractor.Model(),
		"jobs":        h.jobs.Count(),
		"rateLimits":  limits,
	})
}

// Request/Response types

type uploadResponse struct {
	JobID      string `json:"jobId"`
	Filename   string `json:"filename"`
	ImageCount int    `json:"imageCount"`
	Message    string `json:"message"`
}

type extractResponse struct {
	JobID             string                   `json:"jobId"`
	Success           bool                     `json:"success"`
	Error             string                   `json:"error,omitempty"`
	FootprintName     string                   `json:"footprintName,omitempty"`
	PadCount          int                      `json:"padCount"`
	OverallConfidence float64                  `json:"overallConfidence"`
	Pin1Detected      bool                     `json:"pin1Detected"`
	Pin1Index         *int                     `json:"pin1Index,omitempty"`
	Warnings          []string                 `json:"warnings"`
	ModelUsed         string                   `json:"modelUsed,omitempty"`
	InputTokens       int                      `json:"inputTokens"`
	OutputTokens      int                      `json:"outputTokens"`
	EstimatedCost     float64                  `json:"estimatedCost"`
	Footprint         *models.Footprint        `json:"footprint,omitempty"`
	ExtractionResult  *models.ExtractionResult `json:"extractionResult,omitempty"`
}

type confirmRequest struct {
	Pin1Index *int `json:"pin1Index"`
}

type confirmResponse struct {
	JobID     string `json:"jobId"`
	Confirmed bool   `json:"confirmed"`
	Message   string `json:"message"`
}

type jobStatusResponse struct {
	JobID      string `json:"jobId"`
	Filename   string `json:"filename"`
	CreatedAt  string `json:"createdAt"`
	Status     string `json:"status"`
	ImageCount int    `json:"imageCount"`
	Extracted  bool   `json:"extracted"`
	Confirmed  bool   `json:"confirmed"`
	Error      string `json:"error,omitempty"`
}

// buildExtractResponse assembles the extract payload from a job's
// stored extraction state.
func buildExtractResponse(job *jobs.Job) extractResponse {
	resp := extractResponse{
		JobID:        job.ID,
		Success:      true,
		ModelUsed:    job.ModelUsed,
		InputTokens:  job.InputTokens,
		OutputTokens: job.OutputTokens,
		Warnings:     []string{},
		EstimatedCost: extraction.EstimateCost(extraction.Usage{
			InputTokens:  job.InputTokens,
			OutputTokens: job.OutputTokens,
		}, job.ModelUsed),
	}

	if job.Footprint != nil {
		resp.FootprintName = job.Footprint.Name
		resp.PadCount = len(job.Footprint.Pads)
		resp.Footprint = job.Footprint
	}
	if job.Extraction != nil {
		resp.OverallConfidence = job.Extraction.OverallConfidence
		resp.Pin1Detected = job.Extraction.Pin1Detected
		resp.Pin1Index = job.Extraction.Pin1Index
		if job.Extraction.Warnings != nil {
			resp.Warnings = job.Extraction.Warnings
		}
		resp.ExtractionResult = job.Extraction
	}
	return resp
}
