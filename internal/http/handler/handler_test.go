package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"arpublish/internal/idgen"
	"arpublish/internal/model"
	"arpublish/internal/qr"
	"arpublish/internal/repository/cache"
	"arpublish/internal/repository/memory"
	"arpublish/internal/service"
	serviceMocks "arpublish/internal/service/mocks"
	"arpublish/internal/storage"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testID = "01j9z8x7w6v5t4s3r2q1p0n9m8"

var pngMagic = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type formFile struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func multipartBody(t *testing.T, files []formFile, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.filename))
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func bothFiles() []formFile {
	return []formFile{
		{field: "photo", filename: "p.png", contentType: "image/png", data: pngMagic},
		{field: "video", filename: "v.mp4", contentType: "video/mp4", data: []byte("mp4-bytes")},
	}
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var res errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Code)
	})

	t.Run("no pinger", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", HealthCheck(nil))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadAr(t *testing.T) {
	mockSvc := new(serviceMocks.MockArService)
	app := fiber.New()
	app.Post("/upload", UploadAr(mockSvc, zap.NewNop()))

	post := func(files []formFile, fields map[string]string) *http.Response {
		body, ct := multipartBody(t, files, fields)
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("success", func(t *testing.T) {
		expected := &service.PublishResult{ArID: testID, QRCode: "data:image/png;base64,AAAA"}
		mockSvc.On("Publish", mock.Anything, mock.MatchedBy(func(in service.PublishInput) bool {
			return in.Title == "Birthday" &&
				in.Description == "cake" &&
				in.Photo.ContentType == "image/png" &&
				bytes.Equal(in.Photo.Data, pngMagic) &&
				in.Video.ContentType == "video/mp4" &&
				string(in.Video.Data) == "mp4-bytes"
		})).Return(expected, nil).Once()

		resp := post(bothFiles(), map[string]string{"title": "Birthday", "description": "cake"})

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, testID, result["arId"])
		assert.Equal(t, expected.QRCode, result["qrCode"])
		mockSvc.AssertExpectations(t)
	})

	t.Run("sniffs missing content type", func(t *testing.T) {
		files := bothFiles()
		files[0].contentType = "application/octet-stream"
		mockSvc.On("Publish", mock.Anything, mock.MatchedBy(func(in service.PublishInput) bool {
			return in.Photo.ContentType == "image/png"
		})).Return(&service.PublishResult{ArID: testID}, nil).Once()

		resp := post(files, nil)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing photo", func(t *testing.T) {
		resp := post(bothFiles()[1:], nil)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "PHOTO_REQUIRED", decodeError(t, resp).Code)
	})

	t.Run("missing video", func(t *testing.T) {
		resp := post(bothFiles()[:1], nil)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VIDEO_REQUIRED", decodeError(t, resp).Code)
	})

	t.Run("no body", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/upload", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "PHOTO_REQUIRED", decodeError(t, resp).Code)
	})

	errCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "validation",
			err:    &service.ValidationError{Field: "video", Reason: "exceeds 20971520 bytes"},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "photo upload",
			err:    &service.UploadFailedError{Stage: model.AssetPhoto, ArID: testID, Err: errors.New("minio down")},
			status: http.StatusInternalServerError,
			code:   "UPLOAD_FAILED",
		},
		{
			name:   "id conflict",
			err:    &service.PublishFailedError{Reason: service.ReasonIDConflict, ArID: testID, Err: errors.New("dup")},
			status: http.StatusInternalServerError,
			code:   "ID_CONFLICT",
		},
		{
			name:   "commit",
			err:    &service.PublishFailedError{Reason: service.ReasonCommit, ArID: testID, Err: errors.New("pg down")},
			status: http.StatusInternalServerError,
			code:   "STORAGE_UNAVAILABLE",
		},
		{
			name:   "qr encode",
			err:    &service.PublishFailedError{Reason: service.ReasonQREncode, ArID: testID, Err: errors.New("too long")},
			status: http.StatusInternalServerError,
			code:   "INTERNAL_ERROR",
		},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			mockSvc.On("Publish", mock.Anything, mock.Anything).Return(nil, tc.err).Once()

			resp := post(bothFiles(), nil)

			assert.Equal(t, tc.status, resp.StatusCode)
			res := decodeError(t, resp)
			assert.Equal(t, tc.code, res.Code)
			assert.NotContains(t, res.Error, "minio")
			assert.NotContains(t, res.Error, "pg down")
			mockSvc.AssertExpectations(t)
		})
	}
}

func TestGetAr(t *testing.T) {
	mockSvc := new(serviceMocks.MockArService)
	app := fiber.New()
	app.Get("/ar/:id", GetAr(mockSvc, zap.NewNop()))

	t.Run("success", func(t *testing.T) {
		created := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
		expected := &service.ResolvedRecord{
			ArID:      testID,
			Title:     "Birthday",
			PhotoKey:  "photos/" + testID,
			VideoKey:  "videos/" + testID,
			QRCode:    "data:image/png;base64,AAAA",
			CreatedAt: created,
			PhotoURL:  "http://localhost:9000/ar-photos/photos/" + testID,
			VideoURL:  "http://localhost:9000/ar-videos/videos/" + testID,
		}
		mockSvc.On("Resolve", mock.Anything, testID).Return(expected, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/ar/"+testID, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.ResolvedRecord
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, *expected, result)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Resolve", mock.Anything, testID).Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/ar/"+testID, nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Equal(t, "NOT_FOUND", res.Code)
		assert.Equal(t, "AR photo not found", res.Error)
		mockSvc.AssertExpectations(t)
	})

	t.Run("storage failure still reads as not found", func(t *testing.T) {
		mockSvc.On("Resolve", mock.Anything, testID).Return(nil, service.ErrStorageUnavailable).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/ar/"+testID, nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "AR photo not found", decodeError(t, resp).Error)
		mockSvc.AssertExpectations(t)
	})

	t.Run("malformed id", func(t *testing.T) {
		for _, id := range []string{"short", "01J9Z8X7W6V5T4S3R2Q1P0N9M8", "01j9z8x7w6v5t4s3r2q1p0n9mu"} {
			resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/ar/"+id, nil))

			assert.Equal(t, http.StatusNotFound, resp.StatusCode, id)
		}
		mockSvc.AssertNotCalled(t, "Resolve", mock.Anything, "short")
	})
}

func TestGetAr_CachedLookupsNeverCrossIDs(t *testing.T) {
	ctx := context.Background()
	store := memory.NewArMemory()
	cached, err := cache.NewArCache(store, 64, time.Minute, prometheus.NewRegistry())
	require.NoError(t, err)

	enc, err := qr.NewEncoder("M", 256)
	require.NoError(t, err)
	up := storage.NewBlobUploader("http://blobs.local", storage.NewMemory("ar-photos"), storage.NewMemory("ar-videos"))
	ids := idgen.New()
	svc := service.NewArService(ids, up, enc, cached, "https://ar.example.com", service.Limits{
		PhotoMaxBytes: 1 << 10, VideoMaxBytes: 1 << 10, TitleMaxLen: 50, DescriptionMaxLen: 50,
	})

	pub, err := svc.Publish(ctx, service.PublishInput{
		Photo: model.Asset{Data: pngMagic, ContentType: "image/png"},
		Video: model.Asset{Data: []byte("mp4"), ContentType: "video/mp4"},
		Title: "published",
	})
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/ar/:id", GetAr(svc, zap.NewNop()))

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/ar/"+pub.ArID, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	crossed := 0
	for i := 0; i < 3000; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ar/"+ids.Generate(), nil))
		require.NoError(t, err)
		if resp.StatusCode != http.StatusNotFound {
			crossed++
		}
	}
	assert.Zero(t, crossed, "unpublished ids resolved to a stored record")

	resp, _ = app.Test(httptest.NewRequest(http.MethodGet, "/ar/"+pub.ArID, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockArService)
	// Register all routes
	RegisterRoutes(app, nil, mockSvc, zap.NewNop())

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Upload endpoint only allows POST
		req := httptest.NewRequest(http.MethodGet, "/upload", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Code)
	})

	t.Run("body too large", func(t *testing.T) {
		small := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(), BodyLimit: 64})
		RegisterRoutes(small, nil, mockSvc, zap.NewNop())

		body, ct := multipartBody(t, bothFiles(), map[string]string{"description": string(make([]byte, 256))})
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := small.Test(req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
		assert.Equal(t, "PAYLOAD_TOO_LARGE", decodeError(t, resp).Code)
	})
}
