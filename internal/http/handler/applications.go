package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"loanapi/internal/model"
	"loanapi/internal/service"
	"loanapi/internal/storage"
)

const (
	// DocumentsField is the multipart field carrying application documents.
	DocumentsField = "documents"
	// IdempotencyKeyHeader lets a client collapse retries of one submission.
	IdempotencyKeyHeader = "Idempotency-Key"
)

type documentView struct {
	ID           string    `json:"id"`
	DocumentType string    `json:"documentType"`
	FileName     string    `json:"fileName"`
	FileSize     int64     `json:"fileSize"`
	ContentType  string    `json:"contentType"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// submissionResponse flattens the stored application row next to applicationId.
type submissionResponse struct {
	ApplicationID string `json:"applicationId"`
	model.Application
	Documents []documentView `json:"documents"`
}

func newSubmissionResponse(res *service.SubmissionResult) submissionResponse {
	docs := make([]documentView, 0, len(res.Documents))
	for _, d := range res.Documents {
		docs = append(docs, documentView{
			ID:           d.ID,
			DocumentType: d.DocumentType,
			FileName:     d.FileName,
			FileSize:     d.FileSize,
			ContentType:  d.ContentType,
			UploadedAt:   d.UploadedAt,
		})
	}
	return submissionResponse{
		ApplicationID: res.Application.ID,
		Application:   res.Application,
		Documents:     docs,
	}
}

// SubmitApplication godoc
// @Summary Submit a loan application
// @Description Stores the application and its documents and notifies downstream services.
// @Tags applications
// @Accept multipart/form-data
// @Produce json
// @Param customerId formData string true "Customer ID"
// @Param loanAmount formData number true "Requested amount"
// @Param loanPurpose formData string true "Purpose of the loan"
// @Param income formData number true "Declared income"
// @Param documents formData file false "PDF, JPG or PNG, up to 5 files"
// @Param Idempotency-Key header string false "Client token collapsing retries"
// @Success 201 {object} submissionResponse
// @Success 200 {object} submissionResponse "Replayed submission"
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/loans/applications [post]
func SubmitApplication(svc service.SubmissionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "Request must be multipart/form-data.")
		}

		for field := range form.File {
			if field != DocumentsField {
				return writeError(c, fiber.StatusBadRequest, "Unexpected file field: "+field+".")
			}
		}

		req := service.SubmissionRequest{
			CustomerID:     formValue(form, "customerId"),
			LoanAmount:     formValue(form, "loanAmount"),
			LoanPurpose:    formValue(form, "loanPurpose"),
			Income:         formValue(form, "income"),
			IdempotencyKey: c.Get(IdempotencyKeyHeader),
		}
		for _, fh := range form.File[DocumentsField] {
			req.Files = append(req.Files, toUpload(DocumentsField, fh))
		}

		res, err := svc.Submit(c.UserContext(), req)
		if err != nil {
			var verr *service.ValidationError
			if errors.As(err, &verr) {
				return writeError(c, fiber.StatusBadRequest, verr.Message)
			}
			return writeError(c, fiber.StatusInternalServerError, "Failed to submit loan application.")
		}

		status := fiber.StatusCreated
		if res.Replayed {
			status = fiber.StatusOK
		}
		return c.Status(status).JSON(newSubmissionResponse(res))
	}
}

// GetApplicationStatus godoc
// @Summary Get application status
// @Tags applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} service.StatusResult
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/loans/applications/{id} [get]
func GetApplicationStatus(svc service.StatusService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusNotFound, "Application not found.")
		}

		res, err := svc.GetStatus(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "Application not found.")
			}
			return writeError(c, fiber.StatusInternalServerError, "Failed to retrieve application status.")
		}
		return c.JSON(res)
	}
}

// ListApplicationDocuments godoc
// @Summary List documents of an application
// @Tags applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {array} model.DocumentSummary
// @Failure 500 {object} errorPayload
// @Router /api/loans/applications/{id}/documents [get]
func ListApplicationDocuments(svc service.StatusService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return c.JSON([]model.DocumentSummary{})
		}

		docs, err := svc.ListDocuments(c.UserContext(), id)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "Failed to retrieve documents.")
		}
		return c.JSON(docs)
	}
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func toUpload(field string, fh *multipart.FileHeader) storage.Upload {
	return storage.Upload{
		FieldName:   field,
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
