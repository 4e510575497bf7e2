package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/footprintai/backend/internal/extraction"
	"github.com/footprintai/backend/internal/history"
	"github.com/footprintai/backend/internal/models"
	"github.com/footprintai/backend/internal/verification"
)

// HandleExtract runs AI extraction over a job's uploaded images.
//
// Query parameters:
//
//	model    - override the configured model (flash-lite, flash, pro)
//	staged   - "true" to run the two-stage pipeline
//	verify   - "true" to run the verification pass on suspicious results
//	examples - "true" to include few-shot examples in the prompt
//
// Re-extracting an already extracted job returns the stored result.
func (h *Handler) HandleExtract(c echo.Context) error {
	job, apiErr := h.requireJob(c)
	if apiErr != nil {
		return apiErr
	}

	if job.Extracted {
		return c.JSON(http.StatusOK, buildExtractResponse(job))
	}
	if job.ImageCount() == 0 {
		return NewValidationError("job has no images to extract from")
	}

	images, err := h.loadImages(job.Images)
	if err != nil {
		return err
	}

	opts := extraction.ExtractOptions{
		Model:    c.QueryParam("model"),
		Staged:   h.cfg.Extraction.Staged || queryBool(c, "staged"),
		Examples: queryBool(c, "examples"),
	}

	ctx := c.Request().Context()
	if h.cfg.Extraction.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(h.cfg.Extraction.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	h.jobs.SetExtracting(job.ID)

	resp, err := h.extractor.Extract(ctx, images, opts)
	if err != nil {
		h.jobs.SetError(job.ID, err.Error())
		h.logger.Error("extraction failed",
			zap.String("jobId", job.ID),
			zap.Error(err))
		return c.JSON(http.StatusOK, extractResponse{
			JobID:    job.ID,
			Success:  false,
			Error:    err.Error(),
			Warnings: []string{},
		})
	}

	result := resp.Result
	footprint := resp.Footprint

	if h.cfg.Verification.Enabled || queryBool(c, "verify") {
		corrected, applied := verification.Run(ctx, result, images[0], h.extractor)
		if applied {
			h.logger.Info("verification corrected extraction",
				zap.String("jobId", job.ID))
			footprint = extraction.FootprintFromResult(corrected, footprint.Name)
		}
		result = corrected
	}

	if err := h.jobs.SetExtraction(job.ID, result, footprint, resp.ModelUsed, resp.Usage.InputTokens, resp.Usage.OutputTokens); err != nil {
		return NewNotFoundError("job", job.ID)
	}

	h.recordHistory(ctx, job.ID, footprint, result, resp)

	h.logger.Info("extraction complete",
		zap.String("jobId", job.ID),
		zap.String("model", resp.ModelUsed),
		zap.Int("pads", len(footprint.Pads)),
		zap.Float64("confidence", result.OverallConfidence))

	// Get hands out snapshots; re-read to pick up the stored extraction.
	updated, ok := h.jobs.Get(job.ID)
	if !ok {
		return NewNotFoundError("job", job.ID)
	}
	return c.JSON(http.StatusOK, buildExtractResponse(updated))
}

// HandleConfirm accepts the extraction result, optionally overriding
// the detected pin 1 index.
func (h *Handler) HandleConfirm(c echo.Context) error {
	job, apiErr := h.requireJob(c)
	if apiErr != nil {
		return apiErr
	}

	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	if req.Pin1Index != nil {
		idx := *req.Pin1Index
		if job.Footprint == nil || idx < 0 || idx >= len(job.Footprint.Pads) {
			return NewValidationError("pin1Index out of range")
		}
	}

	if err := h.jobs.Confirm(job.ID, req.Pin1Index); err != nil {
		return NewValidationError(err.Error())
	}

	h.logger.Info("extraction confirmed", zap.String("jobId", job.ID))

	return c.JSON(http.StatusOK, confirmResponse{
		JobID:     job.ID,
		Confirmed: true,
		Message:   "Footprint confirmed, ready for generation",
	})
}

// HandleDetectStandard checks a single image against known standard
// package outlines. Detection failure is a normal response, not an
// error, so the client can fall back to full extraction.
func (h *Handler) HandleDetectStandard(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("image file required", err)
	}
	if !extraction.SupportedMediaType(fileMediaType(file)) {
		return NewValidationError("unsupported file type; upload PNG, JPEG, WebP, or GIF images")
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open upload", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return NewInternalError("failed to read upload", err)
	}

	img := models.ImageData{
		Filename:  file.Filename,
		Data:      data,
		MediaType: fileMediaType(file),
	}

	pkg, err := h.extractor.DetectStandardPackage(c.Request().Context(), img)
	if err != nil {
		h.logger.Warn("standard package detection failed", zap.Error(err))
		return c.JSON(http.StatusOK, map[string]interface{}{
			"isStandard": false,
			"error":      err.Error(),
		})
	}

	return c.JSON(http.StatusOK, pkg)
}

// loadImages reads stored job images into memory for collaborator calls.
func (h *Handler) loadImages(infos []models.FileInfo) ([]models.ImageData, error) {
	images := make([]models.ImageData, 0, len(infos))
	for _, info := range infos {
		data, err := h.store.ReadBytes(info.ID)
		if err != nil {
			return nil, NewInternalError("failed to read stored image", err)
		}
		images = append(images, models.ImageData{
			Filename:  info.Name,
			Data:      data,
			MediaType: info.MediaType,
		})
	}
	return images, nil
}

// recordHistory persists a completed extraction when the history store
// is enabled. Failures are logged, never surfaced to the client.
func (h *Handler) recordHistory(ctx context.Context, jobID string, fp *models.Footprint, res *models.ExtractionResult, resp *extraction.Response) {
	if h.history == nil {
		return
	}

	job, ok := h.jobs.Get(jobID)
	filename := ""
	if ok {
		filename = job.Filename()
	}

	_, err := h.history.Record(ctx, history.Entry{
		JobID:         jobID,
		FootprintName: fp.Name,
		Filename:      filename,
		PadCount:      len(fp.Pads),
		ViaCount:      len(fp.Vias),
		ModelUsed:     resp.ModelUsed,
		Confidence:    res.OverallConfidence,
		InputTokens:   resp.Usage.InputTokens,
		OutputTokens:  resp.Usage.OutputTokens,
	})
	if err != nil {
		h.logger.Warn("failed to record extraction history",
			zap.String("jobId", jobID),
			zap.Error(err))
	}
}

func queryBool(c echo.Context, name string) bool {
	v, err := strconv.ParseBool(c.QueryParam(name))
	return err == nil && v
}
