package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carebridge/community-api/internal/service"
	appErrors "github.com/carebridge/community-api/pkg/errors"
	"github.com/carebridge/community-api/pkg/response"
)

// DocumentHandler exposes document upload and download endpoints.
type DocumentHandler struct {
	documents *service.DocumentService
}

// NewDocumentHandler constructs DocumentHandler.
func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Upload godoc
// @Summary Upload a document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload"
// @Param title formData string false "Display title"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	doc, err := h.documents.Upload(c.Request.Context(), actor, service.UploadDocumentRequest{
		Title:    c.PostForm("title"),
		FileName: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Size:     fileHeader.Size,
	}, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// Get godoc
// @Summary Document metadata
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// SignURL godoc
// @Summary Signed download URL
// @Description Issue a time-limited download link
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id}/url [get]
func (h *DocumentHandler) SignURL(c *gin.Context) {
	url, expiresAt, err := h.documents.SignDownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"url":        url,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	}, nil)
}

// Download godoc
// @Summary Download a document
// @Description Streams the file referenced by a signed token
// @Tags Documents
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200
// @Failure 403 {object} response.Envelope
// @Router /downloads/documents/{token} [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	download, err := h.documents.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	c.Header("Content-Disposition", `attachment; filename="`+download.Document.FileName+`"`)
	c.Header("Content-Type", download.Document.MimeType)
	c.File(download.File.Name())
}

// Delete godoc
// @Summary Delete a document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.documents.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
