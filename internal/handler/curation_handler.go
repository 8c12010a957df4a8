package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/carebridge/community-api/internal/service"
	appErrors "github.com/carebridge/community-api/pkg/errors"
	"github.com/carebridge/community-api/pkg/response"
)

// CurationHandler exposes the admin curation pipeline and rating endpoints.
type CurationHandler struct {
	curation *service.CurationService
}

// NewCurationHandler constructs CurationHandler.
func NewCurationHandler(curation *service.CurationService) *CurationHandler {
	return &CurationHandler{curation: curation}
}

// Queue godoc
// @Summary Pending curation queue
// @Description Resources awaiting review, oldest first
// @Tags Curation
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /curation/queue [get]
func (h *CurationHandler) Queue(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	items, pagination, err := h.curation.Queue(c.Request.Context(), actor, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Approve godoc
// @Summary Approve a resource
// @Tags Curation
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /curation/approve/{id} [post]
func (h *CurationHandler) Approve(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	content, err := h.curation.Approve(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, content, nil)
}

// Reject godoc
// @Summary Reject a resource
// @Tags Curation
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /curation/reject/{id} [post]
func (h *CurationHandler) Reject(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	content, err := h.curation.Reject(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, content, nil)
}

// Feature godoc
// @Summary Feature a resource
// @Tags Curation
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /curation/feature/{id} [post]
func (h *CurationHandler) Feature(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	content, err := h.curation.Feature(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, content, nil)
}

// Rate godoc
// @Summary Rate a resource
// @Description Store the caller's rating and refresh the aggregate
// @Tags Curation
// @Accept json
// @Produce json
// @Param id path string true "Content ID"
// @Param payload body service.RateContentRequest true "Rating payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /content/{id}/rating [post]
func (h *CurationHandler) Rate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rating, err := h.curation.Rate(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rating, nil)
}
