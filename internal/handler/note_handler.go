package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carebridge/community-api/internal/service"
	appErrors "github.com/carebridge/community-api/pkg/errors"
	"github.com/carebridge/community-api/pkg/response"
)

// NoteHandler exposes the legacy note endpoints backed by the unified
// content service.
type NoteHandler struct {
	notes *service.NoteService
}

// NewNoteHandler constructs NoteHandler.
func NewNoteHandler(notes *service.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

// List godoc
// @Summary List notes
// @Tags Notes
// @Produce json
// @Param tags query string false "Tags (comma separated)"
// @Param search query string false "Free text search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	notes, pagination, err := h.notes.List(c.Request.Context(), actor, parseContentFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notes, pagination)
}

// Get godoc
// @Summary Get note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notes/{id} [get]
func (h *NoteHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	note, err := h.notes.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Create godoc
// @Summary Create note
// @Tags Notes
// @Accept json
// @Produce json
// @Param payload body service.CreateNoteRequest true "Note payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /notes [post]
func (h *NoteHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	note, err := h.notes.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, note)
}

// Update godoc
// @Summary Update note
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param payload body service.UpdateNoteRequest true "Note payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notes/{id} [put]
func (h *NoteHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	note, err := h.notes.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Delete godoc
// @Summary Delete note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /notes/{id} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.notes.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
