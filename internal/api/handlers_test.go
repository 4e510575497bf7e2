package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/footprintai/backend/internal/config"
	"github.com/footprintai/backend/internal/extraction"
	"github.com/footprintai/backend/internal/jobs"
	"github.com/footprintai/backend/internal/testutil"
)

type testEnv struct {
	e         *echo.Echo
	handler   *Handler
	store     *testutil.MemStore
	jobs      *jobs.Manager
	extractor *testutil.StubExtractor
	history   *testutil.StubHistory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := testutil.NewMemStore()
	jobMgr := jobs.NewManager()
	extractor := &testutil.StubExtractor{
		Response: &extraction.Response{
			Footprint: testutil.SO8EPFootprint(),
			Result:    testutil.SO8EPResult(),
			ModelUsed: "gemini-2.5-flash",
			Usage:     extraction.Usage{InputTokens: 1200, OutputTokens: 400},
		},
	}
	hist := &testutil.StubHistory{}
	cfg := config.DefaultConfig()

	h := NewHandler(store, jobMgr, extractor, hist, cfg, zap.NewNop(), "test")

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	RegisterRoutes(e, h)

	return &testEnv{e: e, handler: h, store: store, jobs: jobMgr, extractor: extractor, history: hist}
}

func (env *testEnv) request(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func multipartImage(t *testing.T, field string, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, name := range names {
		hdr := make(map[string][]string)
		hdr["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + name + `"`}
		hdr["Content-Type"] = []string{"image/png"}
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(testutil.PNGStub)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func (env *testEnv) uploadJob(t *testing.T, names ...string) string {
	t.Helper()
	body, ct := multipartImage(t, "files", names...)
	rec := env.request(t, http.MethodPost, "/api/upload", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.JobID)
	return resp.JobID
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet, "/api/health", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "development", body["environment"])
	assert.Equal(t, false, body["rateLimiting"])
}

func TestHandleStatus(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet, "/api/status", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "stub-model", body["model"])

	limits, ok := body["rateLimits"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "unlimited", limits["upload"])
}

func TestHandleUpload(t *testing.T) {
	t.Run("single file", func(t *testing.T) {
		env := newTestEnv(t)
		body, ct := multipartImage(t, "files", "datasheet.png")
		rec := env.request(t, http.MethodPost, "/api/upload", body, ct)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp uploadResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "datasheet.png", resp.Filename)
		assert.Equal(t, 1, resp.ImageCount)
		assert.Equal(t, 1, env.store.FileCount())
	})

	t.Run("multiple files", func(t *testing.T) {
		env := newTestEnv(t)
		body, ct := multipartImage(t, "files", "front.png", "table.png")
		rec := env.request(t, http.MethodPost, "/api/upload", body, ct)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp uploadResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.ImageCount)
	})

	t.Run("single-file field name accepted", func(t *testing.T) {
		env := newTestEnv(t)
		body, ct := multipartImage(t, "file", "datasheet.png")
		rec := env.request(t, http.MethodPost, "/api/upload", body, ct)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("no files", func(t *testing.T) {
		env := newTestEnv(t)
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		require.NoError(t, mw.Close())
		rec := env.request(t, http.MethodPost, "/api/upload", body, mw.FormDataContentType())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("too many files", func(t *testing.T) {
		env := newTestEnv(t)
		body, ct := multipartImage(t, "files", "1.png", "2.png", "3.png", "4.png", "5.png", "6.png")
		rec := env.request(t, http.MethodPost, "/api/upload", body, ct)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsupported type", func(t *testing.T) {
		env := newTestEnv(t)
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		hdr := map[string][]string{
			"Content-Disposition": {`form-data; name="files"; filename="doc.pdf"`},
			"Content-Type":        {"application/pdf"},
		}
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, _ = part.Write([]byte("%PDF"))
		require.NoError(t, mw.Close())

		rec := env.request(t, http.MethodPost, "/api/upload", body, mw.FormDataContentType())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unsupported")
	})
}

func TestHandleAddImages(t *testing.T) {
	env := newTestEnv(t)
	jobID := env.uploadJob(t, "front.png")

	body, ct := multipartImage(t, "files", "table.png")
	rec := env.request(t, http.MethodPost, "/api/upload/"+jobID+"/images", body, ct)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.ImageCount)
	assert.Equal(t, "front.png", resp.Filename)

	t.Run("missing job", func(t *testing.T) {
		body, ct := multipartImage(t, "files", "x.png")
		rec := env.request(t, http.MethodPost, "/api/upload/nope/images", body, ct)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleExtract(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		env := newTestEnv(t)
		jobID := env.uploadJob(t, "datasheet.png")

		rec := env.request(t, http.MethodPost, "/api/extract/"+jobID, nil, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp extractResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "SO-8EP", resp.FootprintName)
		assert.Equal(t, 9, resp.PadCount)
		assert.True(t, resp.Pin1Detected)
		assert.Equal(t, "gemini-2.5-flash", resp.ModelUsed)
		assert.Equal(t, 1200, resp.InputTokens)
		assert.InDelta(t, 0.00136, resp.EstimatedCost, 1e-6)
		require.NotNil(t, resp.Footprint)

		// History recorded.
		require.Len(t, env.history.Entries, 1)
		assert.Equal(t, "SO-8EP", env.history.Entries[0].FootprintName)
	})

	t.Run("idempotent re-extract", func(t *testing.T) {
		env := newTestEnv(t)
		jobID := env.uploadJob(t, "datasheet.png")

		env.request(t, http.MethodPost, "/api/extract/"+jobID, nil, "")
		env.request(t, http.MethodPost, "/api/extract/"+jobID, nil, "")

		assert.Equal(t, 1, env.extractor.ExtractCalls)
	})

	t.Run("extraction failure reported in payload", func(t *testing.T) {
		env := newTestEnv(t)
		env.extractor.ExtractErr = errors.New("model refused")
		jobID := env.uploadJob(t, "datasheet.png")

		rec := env.request(t, http.MethodPost, "/api/extract/"+jobID, nil, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp extractResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Error, "model refused")

		job, ok := env.jobs.Get(jobID)
		require.True(t, ok)
		assert.Equal(t, "error", string(job.Status))
	})

	t.Run("missing job", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.request(t, http.MethodPost, "/api/extract/nope", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleConfirm(t *testing.T) {
	env := newTestEnv(t)
	jobID := env.uploadJob(t, "datasheet.png")

	t.Run("before extraction", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/confirm/"+jobID,
			bytes.NewBufferString(`{}`), echo.MIMEApplicationJSON)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	env.request(t, http.MethodPost, "/api/extract/"+jobID, nil, "")

	t.Run("pin1 override out of range", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/confirm/"+jobID,
			bytes.NewBufferString(`{"pin1Index": 99}`), echo.MIMEApplicationJSON)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/confirm/"+jobID,
			bytes.NewBufferString(`{"pin1Index": 0}`), echo.MIMEApplicationJSON)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		job, ok := env.jobs.Get(jobID)
		require.True(t, ok)
		assert.True(t, job.Confirmed)
		require.NotNil(t, job.Pin1Index)
		assert.Equal(t, 0, *job.Pin1Index)
	})
}

func TestHandleGenerate(t *testing.T) {
	env := newTestEnv(t)
	jobID := env.uploadJob(t, "datasheet.png")
	env.request(t, http.MethodPost, "/api/extract/"+jobID, nil, "")

	t.Run("requires confirmation", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/api/generate/"+jobID, nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	env.request(t, http.MethodPost, "/api/confirm/"+jobID,
		bytes.NewBufferString(`{}`), echo.MIMEApplicationJSON)

	t.Run("zip download", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/api/generate/"+jobID, nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/zip", rec.Header().Get(echo.HeaderContentType))
		assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "SO-8EP_ScriptProject.zip")
		// Zip local file header magic.
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

		job, _ := env.jobs.Get(jobID)
		assert.Equal(t, "generated", string(job.Status))
	})

	t.Run("pcblib download", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/api/generate/"+jobID+"/pcblib", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "SO-8EP.PcbLib")
		body := rec.Body.String()
		assert.True(t, strings.HasPrefix(body, "PCB Library Document\n"))
		assert.Contains(t, body, "Name=SO-8EP")
	})
}

func TestHandleJobStatusAndDelete(t *testing.T) {
	env := newTestEnv(t)
	jobID := env.uploadJob(t, "datasheet.png")

	rec := env.request(t, http.MethodGet, "/api/jobs/"+jobID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status jobStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, jobID, status.JobID)
	assert.Equal(t, "datasheet.png", status.Filename)
	assert.Equal(t, "pending", status.Status)
	assert.False(t, status.Extracted)

	rec = env.request(t, http.MethodDelete, "/api/jobs/"+jobID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, env.store.FileCount())

	rec = env.request(t, http.MethodGet, "/api/jobs/"+jobID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleResultMsgpack(t *testing.T) {
	env := newTestEnv(t)
	jobID := env.uploadJob(t, "datasheet.png")

	t.Run("before extraction", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/api/jobs/"+jobID+"/result/msgpack", nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	env.request(t, http.MethodPost, "/api/extract/"+jobID, nil, "")

	rec := env.request(t, http.MethodGet, "/api/jobs/"+jobID+"/result/msgpack", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))

	var decoded map[string]interface{}
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, "SO-8EP", decoded["FootprintName"])
}

func TestHandleHistory(t *testing.T) {
	env := newTestEnv(t)
	jobID := env.uploadJob(t, "datasheet.png")
	env.request(t, http.MethodPost, "/api/extract/"+jobID, nil, "")

	rec := env.request(t, http.MethodGet, "/api/history", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Entries []map[string]interface{} `json:"entries"`
		Count   int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "SO-8EP", body.Entries[0]["footprintName"])
}

func TestHandleDetectStandard(t *testing.T) {
	t.Run("detected", func(t *testing.T) {
		env := newTestEnv(t)
		code := "SOIC-8"
		env.extractor.Standard = &extraction.StandardPackage{
			IsStandard:  true,
			PackageCode: &code,
			Confidence:  0.97,
		}

		body, ct := multipartImage(t, "file", "datasheet.png")
		rec := env.request(t, http.MethodPost, "/api/detect-standard", body, ct)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["is_standard"])
	})

	t.Run("detector failure is a soft response", func(t *testing.T) {
		env := newTestEnv(t)
		env.extractor.StandardErr = errors.New("api down")

		body, ct := multipartImage(t, "file", "datasheet.png")
		rec := env.request(t, http.MethodPost, "/api/detect-standard", body, ct)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["isStandard"])
	})
}

func TestRateLimitedRoutes(t *testing.T) {
	store := testutil.NewMemStore()
	jobMgr := jobs.NewManager()
	extractor := &testutil.StubExtractor{}
	cfg := config.DefaultConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.UploadsPerHour = 1

	h := NewHandler(store, jobMgr, extractor, nil, cfg, zap.NewNop(), "test")
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	RegisterRoutes(e, h)

	send := func() int {
		body, ct := multipartImage(t, "files", "a.png")
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set(echo.HeaderContentType, ct)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}
