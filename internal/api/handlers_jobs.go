package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// HandleJobStatus returns the current state of a job.
func (h *Handler) HandleJobStatus(c echo.Context) error {
	job, apiErr := h.requireJob(c)
	if apiErr != nil {
		return apiErr
	}

	return c.JSON(http.StatusOK, jobStatusResponse{
		JobID:      job.ID,
		Filename:   job.Filename(),
		CreatedAt:  job.CreatedAt.Format(time.RFC3339),
		Status:     string(job.Status),
		ImageCount: job.ImageCount(),
		Extracted:  job.Extracted,
		Confirmed:  job.Confirmed,
		Error:      job.ErrorMessage,
	})
}

// HandleDeleteJob removes a job and its stored images.
func (h *Handler) HandleDeleteJob(c echo.Context) error {
	id := c.Param("jobId")
	job, ok := h.jobs.Get(id)
	if !ok {
		return NewNotFoundError("job", id)
	}

	for _, img := range job.Images {
		if err := h.store.Delete(img.ID); err != nil {
			h.logger.Warn("failed to delete stored image",
				zap.String("jobId", id),
				zap.String("imageId", img.ID),
				zap.Error(err))
		}
	}
	h.jobs.Delete(id)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"jobId":   id,
		"deleted": true,
	})
}

// HandleResultMsgpack serves the extraction result as MessagePack for
// clients rendering large pad arrays.
func (h *Handler) HandleResultMsgpack(c echo.Context) error {
	job, apiErr := h.requireJob(c)
	if apiErr != nil {
		return apiErr
	}
	if !job.Extracted || job.Extraction == nil {
		return NewValidationError("job has no extraction result")
	}

	payload := buildExtractResponse(job)
	data, err := msgpack.Marshal(payload)
	if err != nil {
		return NewInternalError("failed to encode result", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleHistory returns recent extraction history entries.
func (h *Handler) HandleHistory(c echo.Context) error {
	if h.history == nil {
		return NewServiceUnavailableError("history is disabled")
	}

	entries, err := h.history.Recent(c.Request().Context(), h.cfg.History.Limit)
	if err != nil {
		return NewInternalError("failed to load history", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}
