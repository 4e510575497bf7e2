package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/footprintai/backend/internal/emitter"
)

// HandleGenerate produces the downloadable script project zip for a
// confirmed job. The zip holds a .PrjScr project and the DelphiScript
// .pas that recreates the footprint inside Altium.
func (h *Handler) HandleGenerate(c echo.Context) error {
	job, apiErr := h.requireJob(c)
	if apiErr != nil {
		return apiErr
	}
	if !job.Confirmed || job.ConfirmedFootprint == nil {
		return NewValidationError("job must be confirmed before generation")
	}

	data, name, err := emitter.ScriptPackage(job.ConfirmedFootprint)
	if err != nil {
		return NewInternalError("failed to build script package", err)
	}

	h.jobs.SetGenerated(job.ID)
	h.logger.Info("script package generated",
		zap.String("jobId", job.ID),
		zap.String("footprint", name),
		zap.Int("bytes", len(data)))

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=\"%s_ScriptProject.zip\"", name))
	return c.Blob(http.StatusOK, "application/zip", data)
}

// HandleGeneratePcbLib serves the footprint as an ASCII .PcbLib
// document for direct import.
func (h *Handler) HandleGeneratePcbLib(c echo.Context) error {
	job, apiErr := h.requireJob(c)
	if apiErr != nil {
		return apiErr
	}
	if !job.Confirmed || job.ConfirmedFootprint == nil {
		return NewValidationError("job must be confirmed before generation")
	}

	doc := emitter.EmitASCII(job.ConfirmedFootprint)
	name := emitter.SanitizeName(job.ConfirmedFootprint.Name)

	h.jobs.SetGenerated(job.ID)
	h.logger.Info("pcblib generated",
		zap.String("jobId", job.ID),
		zap.String("footprint", name))

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=\"%s.PcbLib\"", name))
	return c.Blob(http.StatusOK, "text/plain; charset=utf-8", []byte(doc))
}
