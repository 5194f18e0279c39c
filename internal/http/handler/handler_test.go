package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"loanapi/internal/http/middleware"
	"loanapi/internal/model"
	"loanapi/internal/service"
	serviceMocks "loanapi/internal/service/mocks"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type formFile struct {
	field, name, contentType, body string
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func validFields() map[string]string {
	return map[string]string{
		"customerId":  "c1",
		"loanAmount":  "10000",
		"loanPurpose": "auto",
		"income":      "50000",
	}
}

func newTestApp(sub service.SubmissionService, st service.StatusService, checks ...ReadinessCheck) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
	app.Use(middleware.CorrelationID())
	RegisterRoutes(app, zap.NewNop(), sub, st, checks...)
	return app
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var res map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Len(t, res, 1, "error body carries only the error field")
	msg, _ := res["error"].(string)
	return msg
}

func TestSubmitApplication(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	appID := uuid.NewString()
	result := &service.SubmissionResult{
		Application: model.Application{
			ID: appID, CustomerID: "c1", LoanAmount: 10000, LoanPurpose: "auto",
			Income: 50000, Status: model.StatusPending, CreatedAt: created,
		},
		Documents: []model.Document{{
			ID: "d1", ApplicationID: appID, DocumentType: "documents", FileName: "payslip.pdf",
			FileSize: 1024, ContentType: "application/pdf", ObjectKey: "applications/x", UploadedAt: created,
		}},
	}

	t.Run("created", func(t *testing.T) {
		mSub := new(serviceMocks.MockSubmissionService)
		app := newTestApp(mSub, new(serviceMocks.MockStatusService))

		mSub.On("Submit", mock.Anything, mock.MatchedBy(func(r service.SubmissionRequest) bool {
			if r.CustomerID != "c1" || r.LoanAmount != "10000" || r.IdempotencyKey != "" || len(r.Files) != 1 {
				return false
			}
			f := r.Files[0]
			if f.FieldName != "documents" || f.FileName != "payslip.pdf" || f.ContentType != "application/pdf" || f.Size != 1024 {
				return false
			}
			rc, err := f.Open()
			if err != nil {
				return false
			}
			defer rc.Close()
			b, _ := io.ReadAll(rc)
			return len(b) == 1024
		})).Return(result, nil).Once()

		body, ct := multipartBody(t, validFields(), formFile{"documents", "payslip.pdf", "application/pdf", string(bytes.Repeat([]byte("a"), 1024))})
		req := httptest.NewRequest(http.MethodPost, "/api/loans/applications", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(middleware.CorrelationIDHeader, "corr-1")
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "corr-1", resp.Header.Get(middleware.CorrelationIDHeader))

		var got map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, appID, got["applicationId"])
		assert.Equal(t, appID, got["id"])
		assert.Equal(t, "PENDING", got["status"])
		assert.Equal(t, "c1", got["customer_id"])
		assert.Equal(t, 10000.0, got["loan_amount"])
		docs := got["documents"].([]any)
		require.Len(t, docs, 1)
		doc := docs[0].(map[string]any)
		assert.Equal(t, 1024.0, doc["fileSize"])
		assert.NotContains(t, doc, "objectKey")
		mSub.AssertExpectations(t)
	})

	t.Run("replay returns 200", func(t *testing.T) {
		mSub := new(serviceMocks.MockSubmissionService)
		app := newTestApp(mSub, new(serviceMocks.MockStatusService))
		replayed := *result
		replayed.Replayed = true
		mSub.On("Submit", mock.Anything, mock.MatchedBy(func(r service.SubmissionRequest) bool {
			return r.IdempotencyKey == "k1"
		})).Return(&replayed, nil).Once()

		body, ct := multipartBody(t, validFields())
		req := httptest.NewRequest(http.MethodPost, "/api/loans/applications", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set(IdempotencyKeyHeader, "k1")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("validation error", func(t *testing.T) {
		mSub := new(serviceMocks.MockSubmissionService)
		app := newTestApp(mSub, new(serviceMocks.MockStatusService))
		mSub.On("Submit", mock.Anything, mock.Anything).
			Return(nil, &service.ValidationError{Message: "Missing required fields."}).Once()

		body, ct := multipartBody(t, map[string]string{"customerId": "c1"})
		req := httptest.NewRequest(http.MethodPost, "/api/loans/applications", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Missing required fields.", decodeError(t, resp))
	})

	t.Run("coordinator failure hides cause", func(t *testing.T) {
		mSub := new(serviceMocks.MockSubmissionService)
		app := newTestApp(mSub, new(serviceMocks.MockStatusService))
		mSub.On("Submit", mock.Anything, mock.Anything).
			Return(nil, &service.SubmissionError{Stage: service.StagePublish, Kind: service.ErrNotificationFailed, Err: errors.New("kafka: leader not available")}).Once()

		body, ct := multipartBody(t, validFields())
		req := httptest.NewRequest(http.MethodPost, "/api/loans/applications", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		msg := decodeError(t, resp)
		assert.Equal(t, "Failed to submit loan application.", msg)
		assert.NotContains(t, msg, "kafka")
	})

	t.Run("not multipart", func(t *testing.T) {
		mSub := new(serviceMocks.MockSubmissionService)
		app := newTestApp(mSub, new(serviceMocks.MockStatusService))

		req := httptest.NewRequest(http.MethodPost, "/api/loans/applications", bytes.NewBufferString(`{"customerId":"c1"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.NotEmpty(t, decodeError(t, resp))
		mSub.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	t.Run("unexpected file field", func(t *testing.T) {
		mSub := new(serviceMocks.MockSubmissionService)
		app := newTestApp(mSub, new(serviceMocks.MockStatusService))

		body, ct := multipartBody(t, validFields(), formFile{"avatar", "me.png", "image/png", "png"})
		req := httptest.NewRequest(http.MethodPost, "/api/loans/applications", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		mSub.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})
}

func TestGetApplicationStatus(t *testing.T) {
	mSt := new(serviceMocks.MockStatusService)
	app := newTestApp(new(serviceMocks.MockSubmissionService), mSt)

	t.Run("success", func(t *testing.T) {
		id := uuid.NewString()
		mSt.On("GetStatus", mock.Anything, id).
			Return(&service.StatusResult{ApplicationID: id, Status: "PENDING", Source: service.SourceDatabase}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/loans/applications/"+id, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var got service.StatusResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, id, got.ApplicationID)
		assert.Equal(t, service.SourceDatabase, got.Source)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.NewString()
		mSt.On("GetStatus", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/loans/applications/"+id, nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Application not found.", decodeError(t, resp))
	})

	t.Run("malformed id", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/loans/applications/not-a-uuid", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mSt.AssertNotCalled(t, "GetStatus", mock.Anything, "not-a-uuid")
	})

	t.Run("store failure", func(t *testing.T) {
		id := uuid.NewString()
		mSt.On("GetStatus", mock.Anything, id).Return(nil, service.ErrUnavailable).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/loans/applications/"+id, nil))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestListApplicationDocuments(t *testing.T) {
	mSt := new(serviceMocks.MockStatusService)
	app := newTestApp(new(serviceMocks.MockSubmissionService), mSt)

	t.Run("success", func(t *testing.T) {
		id := uuid.NewString()
		mSt.On("ListDocuments", mock.Anything, id).
			Return([]model.DocumentSummary{{ID: "d1", DocumentType: "documents", FileName: "a.pdf"}}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/loans/applications/"+id+"/documents", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var got []model.DocumentSummary
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.Len(t, got, 1)
		assert.Equal(t, "a.pdf", got[0].FileName)
	})

	t.Run("repeated reads are identical", func(t *testing.T) {
		id := uuid.NewString()
		uploaded := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
		mSt.On("ListDocuments", mock.Anything, id).
			Return([]model.DocumentSummary{
				{ID: "d1", DocumentType: "documents", FileName: "a.pdf", UploadedAt: uploaded},
				{ID: "d2", DocumentType: "documents", FileName: "b.png", UploadedAt: uploaded.Add(time.Second)},
			}, nil).Twice()

		read := func() string {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/loans/applications/"+id+"/documents", nil))
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			b, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			return string(b)
		}

		first := read()
		assert.Equal(t, first, read())
		mSt.AssertExpectations(t)
	})

	t.Run("malformed id is empty", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/loans/applications/xyz/documents", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		b, _ := io.ReadAll(resp.Body)
		assert.JSONEq(t, `[]`, string(b))
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.NewString()
		mSt.On("ListDocuments", mock.Anything, id).Return(nil, errors.New("db error")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/loans/applications/"+id+"/documents", nil))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestProbes(t *testing.T) {
	healthy := ReadinessCheck{Name: "postgres", Check: func(context.Context) error { return nil }}
	down := ReadinessCheck{Name: "redis", Check: func(context.Context) error { return errors.New("refused") }}

	t.Run("liveness ignores dependencies", func(t *testing.T) {
		app := newTestApp(new(serviceMocks.MockSubmissionService), new(serviceMocks.MockStatusService), down)

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("ready", func(t *testing.T) {
		app := newTestApp(new(serviceMocks.MockSubmissionService), new(serviceMocks.MockStatusService), healthy)

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("not ready", func(t *testing.T) {
		app := newTestApp(new(serviceMocks.MockSubmissionService), new(serviceMocks.MockStatusService), healthy, down)

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "redis unavailable", decodeError(t, resp))
	})
}

func TestRouting(t *testing.T) {
	app := newTestApp(new(serviceMocks.MockSubmissionService), new(serviceMocks.MockStatusService))

	t.Run("not found route", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/non-existent", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Not found.", decodeError(t, resp))
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/health", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "Method not allowed.", decodeError(t, resp))
	})
}
