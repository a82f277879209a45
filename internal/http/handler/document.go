package handler

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"docufy/internal/normalize"
	"docufy/internal/service"
)

// HealthCheck reports readiness; it checks DB connectivity only.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness endpoint.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListDocuments lists documents with limit/offset, optionally filtered by
// status. status=pending yields the review queue, newest submission first.
//
// @Summary List documents
// @Param status query string false "Filter by status (pending, approved, rejected)"
// @Param limit query int false "Page size" default(10)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} service.DocumentListResult
// @Router /documents [get]
func ListDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limitStr := c.Query("limit", "10")
		offsetStr := c.Query("offset", "0")
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := docSvc.List(c.UserContext(), c.Query("status"), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// UploadDocument accepts a multipart submission (field name: file) plus
// doc_type and user_id fields. With normalize=true an image upload is run
// through the normalizer and stored as a single-page PDF.
//
// @Summary Submit a document
// @Accept multipart/form-data
// @Param file formData file true "Document file"
// @Param doc_type formData string false "Document category"
// @Param user_id formData string true "Submitting user"
// @Param normalize formData bool false "Convert image to standardized PDF"
// @Success 201 {object} model.Document
// @Router /documents [post]
func UploadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		in := service.UploadInput{
			FileName:    fh.Filename,
			ContentType: ct,
			Size:        fh.Size,
			DocType:     c.FormValue("doc_type"),
			UserID:      c.FormValue("user_id"),
		}

		var r io.Reader = f
		if wantNormalize(c.FormValue("normalize")) && strings.HasPrefix(ct, "image/") {
			pdf, err := normalize.ToPDF(f)
			if err != nil {
				if errors.Is(err, normalize.ErrDecode) {
					return writeError(c, fiber.StatusBadRequest, "DECODE_ERROR", "uploaded image cannot be decoded")
				}
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
			r = bytes.NewReader(pdf)
			in.ContentType = "application/pdf"
			in.Size = int64(len(pdf))
			in.FileName = strings.TrimSuffix(fh.Filename, filepath.Ext(fh.Filename)) + ".pdf"
		}

		doc, err := docSvc.Upload(c.UserContext(), r, in)
		if err != nil {
			if errors.Is(err, service.ErrUserIDRequired) {
				return writeError(c, fiber.StatusBadRequest, "USER_ID_REQUIRED", "user_id is required")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument fetches a single document by document_id or code_id, with a
// time-limited download URL for its current rendition.
//
// @Summary Fetch a document for review
// @Param identifier path string true "Document ID or lookup code"
// @Success 200 {object} model.DocumentView
// @Failure 404 {object} errorPayload
// @Router /documents/{identifier} [get]
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := docSvc.Get(c.UserContext(), c.Params("identifier"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(view)
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateDocumentStatus applies a plain status value to a document. "approved"
// runs the full stamping pipeline with the default stamp text.
//
// @Summary Update document status
// @Param identifier path string true "Document ID or lookup code"
// @Param body body statusRequest true "Target status (pending, approved, rejected)"
// @Success 200 {object} model.DocumentView
// @Router /documents/{identifier}/status [put]
func UpdateDocumentStatus(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req statusRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a status field")
		}
		view, err := docSvc.UpdateStatus(c.UserContext(), c.Params("identifier"), req.Status)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(view)
	}
}

type approveRequest struct {
	StampText string `json:"stamp_text"`
}

// ApproveDocument stamps and approves a pending document. The body may carry
// an optional stamp_text; otherwise the configured default is burned in.
//
// @Summary Approve a document
// @Param identifier path string true "Document ID or lookup code"
// @Param body body approveRequest false "Optional stamp text"
// @Success 200 {object} model.DocumentView
// @Failure 404 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Router /documents/{identifier}/approve [post]
func ApproveDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req approveRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
			}
		}
		view, err := docSvc.Approve(c.UserContext(), c.Params("identifier"), req.StampText)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(view)
	}
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// RejectDocument rejects a pending document. No file mutation occurs.
//
// @Summary Reject a document
// @Param identifier path string true "Document ID or lookup code"
// @Param body body rejectRequest false "Optional rejection reason"
// @Success 200 {object} model.DocumentView
// @Failure 404 {object} errorPayload
// @Router /documents/{identifier}/reject [post]
func RejectDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req rejectRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
			}
		}
		view, err := docSvc.Reject(c.UserContext(), c.Params("identifier"), req.Reason)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(view)
	}
}

func wantNormalize(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}
