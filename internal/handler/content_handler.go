package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/carebridge/community-api/internal/models"
	"github.com/carebridge/community-api/internal/service"
	appErrors "github.com/carebridge/community-api/pkg/errors"
	"github.com/carebridge/community-api/pkg/response"
)

// ContentHandler exposes the unified content endpoints.
type ContentHandler struct {
	content *service.ContentService
}

// NewContentHandler constructs ContentHandler.
func NewContentHandler(content *service.ContentService) *ContentHandler {
	return &ContentHandler{content: content}
}

// List godoc
// @Summary List content
// @Description List notes and resources visible to the caller
// @Tags Content
// @Produce json
// @Param type query string false "Content types (comma separated: NOTE,RESOURCE)"
// @Param note_type query string false "Note types (comma separated)"
// @Param resource_type query string false "Resource types (comma separated)"
// @Param status query string false "Resource statuses (comma separated)"
// @Param tags query string false "Tags to match (comma separated, any overlap)"
// @Param categories query string false "Healthcare categories to expand into tags"
// @Param search query string false "Free text search"
// @Param created_by query string false "Filter by creator"
// @Param family_id query string false "Filter by family"
// @Param category_id query string false "Filter by content category"
// @Param featured query bool false "Only featured resources"
// @Param verified query bool false "Only approved or featured resources"
// @Param min_rating query number false "Minimum aggregate rating"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /content [get]
func (h *ContentHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := parseContentFilter(c)
	items, pagination, err := h.content.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get content detail
// @Tags Content
// @Produce json
// @Param id path string true "Content ID"
// @Param include query string false "Relations to hydrate (comma separated: documents,shares,assignments,ratings)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /content/{id} [get]
func (h *ContentHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	opts := parseLoadOptions(c.Query("include"))
	detail, err := h.content.Get(c.Request.Context(), actor, c.Param("id"), opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.content.RecordView(c.Request.Context(), detail.ID)
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create content
// @Description Create a note or a resource
// @Tags Content
// @Accept json
// @Produce json
// @Param payload body service.CreateContentRequest true "Content payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /content [post]
func (h *ContentHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	created, err := h.content.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Update content
// @Tags Content
// @Accept json
// @Produce json
// @Param id path string true "Content ID"
// @Param payload body service.UpdateContentRequest true "Content payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /content/{id} [put]
func (h *ContentHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	updated, err := h.content.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Delete godoc
// @Summary Delete content
// @Tags Content
// @Produce json
// @Param id path string true "Content ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /content/{id} [delete]
func (h *ContentHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.content.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func parseContentFilter(c *gin.Context) models.ContentFilter {
	var filter models.ContentFilter

	for _, v := range splitQuery(c.Query("type")) {
		filter.ContentTypes = append(filter.ContentTypes, models.ContentType(v))
	}
	for _, v := range splitQuery(c.Query("note_type")) {
		filter.NoteTypes = append(filter.NoteTypes, models.NoteType(v))
	}
	for _, v := range splitQuery(c.Query("resource_type")) {
		filter.ResourceTypes = append(filter.ResourceTypes, models.ResourceType(v))
	}
	for _, v := range splitQuery(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, models.ResourceStatus(v))
	}
	for _, v := range splitQuery(c.Query("visibility")) {
		filter.Visibilities = append(filter.Visibilities, models.ContentVisibility(v))
	}
	filter.Tags = splitQuery(c.Query("tags"))
	filter.HealthcareCategories = splitQuery(c.Query("categories"))
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.CreatedBy = c.Query("created_by")
	filter.FamilyID = c.Query("family_id")
	filter.CategoryID = c.Query("category_id")

	filter.HasAssignments = boolQuery(c, "has_assignments")
	filter.HasCuration = boolQuery(c, "has_curation")
	filter.HasRatings = boolQuery(c, "has_ratings")
	filter.HasSharing = boolQuery(c, "has_sharing")
	filter.Featured = boolQuery(c, "featured")
	filter.Verified = boolQuery(c, "verified")

	if raw := c.Query("min_rating"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MinRating = &v
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.Limit = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}

func parseLoadOptions(include string) models.ContentLoadOptions {
	var opts models.ContentLoadOptions
	for _, rel := range splitQuery(include) {
		switch strings.ToLower(rel) {
		case "documents":
			opts.Documents = true
		case "shares":
			opts.Shares = true
		case "assignments":
			opts.Assignments = true
		case "ratings":
			opts.Ratings = true
		}
	}
	return opts
}

func splitQuery(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func boolQuery(c *gin.Context, name string) *bool {
	switch c.Query(name) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	default:
		return nil
	}
}
