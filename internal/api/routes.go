package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes wires all API endpoints onto the echo instance.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	api := e.Group("/api")

	api.GET("/health", h.HandleHealth)
	api.GET("/status", h.HandleStatus)

	uploadLimiter := h.hourlyLimiter(h.cfg.RateLimit.UploadsPerHour)
	extractLimiter := h.hourlyLimiter(h.cfg.RateLimit.ExtractionsPerHour)

	api.POST("/upload", h.HandleUpload, uploadLimiter...)
	api.POST("/upload/:jobId/images", h.HandleAddImages, uploadLimiter...)

	api.POST("/extract/:jobId", h.HandleExtract, extractLimiter...)
	api.POST("/detect-standard", h.HandleDetectStandard, extractLimiter...)
	api.POST("/confirm/:jobId", h.HandleConfirm)

	api.GET("/generate/:jobId", h.HandleGenerate)
	api.GET("/generate/:jobId/pcblib", h.HandleGeneratePcbLib)

	api.GET("/jobs/:jobId", h.HandleJobStatus)
	api.DELETE("/jobs/:jobId", h.HandleDeleteJob)
	api.GET("/jobs/:jobId/result/msgpack", h.HandleResultMsgpack)

	api.GET("/history", h.HandleHistory)
}

// hourlyLimiter builds per-IP rate limit middleware for the given
// hourly budget. Returns nothing when rate limiting is disabled so
// routes register clean.
func (h *Handler) hourlyLimiter(perHour int) []echo.MiddlewareFunc {
	if !h.cfg.RateLimit.Enabled || perHour <= 0 {
		return nil
	}

	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:  rate.Limit(float64(perHour) / 3600.0),
		Burst: perHour,
	})

	return []echo.MiddlewareFunc{
		middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: store,
			DenyHandler: func(c echo.Context, identifier string, err error) error {
				return NewTooManyRequestsError("rate limit exceeded, try again later")
			},
		}),
	}
}
