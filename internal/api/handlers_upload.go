package api

import (
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/footprintai/backend/internal/extraction"
	"github.com/footprintai/backend/internal/jobs"
	"github.com/footprintai/backend/internal/models"
)

// HandleUpload creates a new job from one or more datasheet images.
func (h *Handler) HandleUpload(c echo.Context) error {
	files, err := h.formImages(c)
	if err != nil {
		return err
	}

	job := h.jobs.Create()

	infos, err := h.saveImages(job.ID, files)
	if err != nil {
		h.jobs.Delete(job.ID)
		return err
	}

	h.logger.Info("images uploaded",
		zap.String("jobId", job.ID),
		zap.Int("count", len(infos)))

	return c.JSON(http.StatusOK, uploadResponse{
		JobID:      job.ID,
		Filename:   infos[0].Name,
		ImageCount: len(infos),
		Message:    fmt.Sprintf("Uploaded %d image(s)", len(infos)),
	})
}

// HandleAddImages appends images to an existing job. Adding images
// after extraction resets the job to pending.
func (h *Handler) HandleAddImages(c echo.Context) error {
	job, apiErr := h.requireJob(c)
	if apiErr != nil {
		return apiErr
	}

	files, err := h.formImages(c)
	if err != nil {
		return err
	}

	if job.ImageCount()+len(files) > h.cfg.Storage.MaxImagesPerJob {
		return NewValidationError(fmt.Sprintf("a job may hold at most %d images", h.cfg.Storage.MaxImagesPerJob))
	}

	infos, err := h.saveImages(job.ID, files)
	if err != nil {
		return err
	}

	// Re-read for the post-append image set; Get hands out snapshots.
	job, ok := h.jobs.Get(job.ID)
	if !ok {
		return NewNotFoundError("job", c.Param("jobId"))
	}

	h.logger.Info("images added",
		zap.String("jobId", job.ID),
		zap.Int("count", len(infos)),
		zap.Int("total", job.ImageCount()))

	return c.JSON(http.StatusOK, uploadResponse{
		JobID:      job.ID,
		Filename:   job.Filename(),
		ImageCount: job.ImageCount(),
		Message:    fmt.Sprintf("Added %d image(s)", len(infos)),
	})
}

// formImages pulls validated image files out of the multipart form.
func (h *Handler) formImages(c echo.Context) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, NewBadRequestError("multipart form required", err)
	}

	files := form.File["files"]
	if len(files) == 0 {
		// Single-file clients post under "file".
		files = form.File["file"]
	}
	if len(files) == 0 {
		return nil, NewBadRequestError("no files provided", nil)
	}
	if len(files) > h.cfg.Storage.MaxImagesPerJob {
		return nil, NewValidationError(fmt.Sprintf("a job may hold at most %d images", h.cfg.Storage.MaxImagesPerJob))
	}

	maxBytes := h.cfg.Storage.MaxUploadBytes()
	for _, f := range files {
		if f.Size > maxBytes {
			return nil, NewValidationError(fmt.Sprintf("file %q exceeds the %s upload limit", f.Filename, h.cfg.Storage.MaxUploadSize))
		}
		if !extraction.SupportedMediaType(fileMediaType(f)) {
			return nil, NewValidationError(fmt.Sprintf("unsupported file type for %q; upload PNG, JPEG, WebP, or GIF images", f.Filename))
		}
	}

	return files, nil
}

// saveImages persists uploaded files and registers them on the job.
func (h *Handler) saveImages(jobID string, files []*multipart.FileHeader) ([]models.FileInfo, error) {
	infos := make([]models.FileInfo, 0, len(files))
	for _, f := range files {
		src, err := f.Open()
		if err != nil {
			return nil, NewInternalError(fmt.Sprintf("failed to open upload %q", f.Filename), err)
		}

		info, err := h.store.Save(f.Filename, fileMediaType(f), src)
		src.Close()
		if err != nil {
			return nil, NewInternalError(fmt.Sprintf("failed to save upload %q", f.Filename), err)
		}
		infos = append(infos, *info)
	}

	if err := h.jobs.AddImages(jobID, infos...); err != nil {
		return nil, NewNotFoundError("job", jobID)
	}
	return infos, nil
}

// requireJob resolves the jobId path parameter to a live job.
func (h *Handler) requireJob(c echo.Context) (*jobs.Job, *APIError) {
	id := c.Param("jobId")
	if id == "" {
		return nil, NewBadRequestError("job ID required", nil)
	}
	job, ok := h.jobs.Get(id)
	if !ok {
		return nil, NewNotFoundError("job", id)
	}
	h.jobs.Touch(id)
	return job, nil
}

// fileMediaType returns the declared content type, falling back to the
// filename extension when the client sent none.
func fileMediaType(f *multipart.FileHeader) string {
	if ct := f.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return mime.TypeByExtension(filepath.Ext(f.Filename))
}
