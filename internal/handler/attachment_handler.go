package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carebridge/community-api/internal/service"
	appErrors "github.com/carebridge/community-api/pkg/errors"
	"github.com/carebridge/community-api/pkg/response"
)

// AttachmentHandler exposes document link and share endpoints on content.
type AttachmentHandler struct {
	attachments *service.AttachmentService
}

// NewAttachmentHandler constructs AttachmentHandler.
func NewAttachmentHandler(attachments *service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments}
}

// Attach godoc
// @Summary Attach a document
// @Tags Attachments
// @Accept json
// @Produce json
// @Param id path string true "Content ID"
// @Param payload body service.AttachDocumentRequest true "Attachment payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /content/{id}/documents [post]
func (h *AttachmentHandler) Attach(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.AttachDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	doc, err := h.attachments.AttachDocument(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// Detach godoc
// @Summary Detach a document
// @Tags Attachments
// @Produce json
// @Param id path string true "Content ID"
// @Param documentId path string true "Document ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /content/{id}/documents/{documentId} [delete]
func (h *AttachmentHandler) Detach(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.attachments.DetachDocument(c.Request.Context(), actor, c.Param("id"), c.Param("documentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Share godoc
// @Summary Share content with a user
// @Tags Attachments
// @Accept json
// @Produce json
// @Param id path string true "Content ID"
// @Param payload body service.ShareContentRequest true "Share payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /content/{id}/shares [post]
func (h *AttachmentHandler) Share(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ShareContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	share, err := h.attachments.Share(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, share)
}

// Unshare godoc
// @Summary Revoke a user's access
// @Tags Attachments
// @Produce json
// @Param id path string true "Content ID"
// @Param userId path string true "User ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /content/{id}/shares/{userId} [delete]
func (h *AttachmentHandler) Unshare(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.attachments.Unshare(c.Request.Context(), actor, c.Param("id"), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
