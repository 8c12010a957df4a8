package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carebridge/community-api/internal/service"
	"github.com/carebridge/community-api/pkg/response"
)

// TaxonomyHandler exposes the category vocabulary endpoints.
type TaxonomyHandler struct {
	taxonomy *service.TaxonomyService
}

// NewTaxonomyHandler constructs TaxonomyHandler.
func NewTaxonomyHandler(taxonomy *service.TaxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{taxonomy: taxonomy}
}

// Categories godoc
// @Summary List content categories
// @Tags Taxonomy
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *TaxonomyHandler) Categories(c *gin.Context) {
	categories, err := h.taxonomy.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// HealthcareCategories godoc
// @Summary List healthcare categories
// @Description Healthcare category names with their mapped tags
// @Tags Taxonomy
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /healthcare-categories [get]
func (h *TaxonomyHandler) HealthcareCategories(c *gin.Context) {
	categories, err := h.taxonomy.ListHealthcareCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}
