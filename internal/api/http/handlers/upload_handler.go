package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// UploadHandler exposes the two-phase upload endpoints.
type UploadHandler struct {
	uploads *service.UploadService
}

// NewUploadHandler constructs handler.
func NewUploadHandler(uploads *service.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Initiate handles POST /api/upload/initiate.
func (h *UploadHandler) Initiate(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var meta domain.UploadMetadata
	if err := c.BodyParser(&meta); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}

	initiated, err := h.uploads.Initiate(c.UserContext(), principal.UserID, meta)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, initiated)
}

// Blob handles POST /api/upload/:id/blob, the target of the signed URL
// handed out by Initiate. Auth is the grant itself, not the session.
func (h *UploadHandler) Blob(c *fiber.Ctx) error {
	uploadID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	err = h.uploads.ReceiveBlob(c.UserContext(), uploadID,
		c.Query("token"), c.Query("expires"), bytes.NewReader(c.Body()))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, nil)
}

// Finalize handles POST /api/upload/:id/finalize.
func (h *UploadHandler) Finalize(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	uploadID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.uploads.Finalize(c.UserContext(), principal.UserID, uploadID); err != nil {
		return err
	}
	return success(c, http.StatusOK, nil)
}

// File handles GET /api/upload/:id/file. The blob is streamed raw, outside
// the response envelope.
func (h *UploadHandler) File(c *fiber.Ctx) error {
	uploadID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	meta, blob, err := h.uploads.File(c.UserContext(), uploadID)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, meta.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", meta.Filename))
	return c.SendStream(blob, int(meta.Size))
}
