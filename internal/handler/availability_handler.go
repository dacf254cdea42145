package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apnealab/dive-scheduler-api/internal/service"
	appErrors "github.com/apnealab/dive-scheduler-api/pkg/errors"
	"github.com/apnealab/dive-scheduler-api/pkg/response"
)

// AvailabilityHandler exposes per-lesson availability endpoints.
type AvailabilityHandler struct {
	service *service.AvailabilityService
}

// NewAvailabilityHandler creates a new handler.
func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// Set godoc
// @Summary Set own availability
// @Description Writes the caller's availability for the lesson, healing any duplicate rows
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Lesson ID"
// @Param payload body service.SetAvailabilityRequest true "Availability payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons/{id}/availability [put]
func (h *AvailabilityHandler) Set(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}

	row, err := h.service.Set(c.Request.Context(), claims.OrganizationID, c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// Toggle godoc
// @Summary Toggle one availability dimension
// @Description Flips pool or classroom for the caller, preserving the other dimension and the note
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Lesson ID"
// @Param payload body object true "Toggle payload {dimension: pool|classroom}"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /lessons/{id}/availability/toggle [post]
func (h *AvailabilityHandler) Toggle(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Dimension string `json:"dimension" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "dimension is required"))
		return
	}

	row, err := h.service.Toggle(c.Request.Context(), claims.OrganizationID, c.Param("id"), claims.UserID, payload.Dimension)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// SetNote godoc
// @Summary Update availability note
// @Description Rewrites the note on an existing availability row; no-op without one
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Lesson ID"
// @Param payload body object true "Note payload {note: string}"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id}/availability/note [put]
func (h *AvailabilityHandler) SetNote(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Note string `json:"note"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid note payload"))
		return
	}

	row, err := h.service.SetNote(c.Request.Context(), claims.OrganizationID, c.Param("id"), claims.UserID, payload.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, row, nil)
}

// Remove godoc
// @Summary Remove own availability
// @Description Deletes every availability row of the caller for the lesson; idempotent
// @Tags Availability
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 204 {object} response.Envelope
// @Router /lessons/{id}/availability [delete]
func (h *AvailabilityHandler) Remove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Remove(c.Request.Context(), claims.OrganizationID, c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RemoveForTeacher godoc
// @Summary Remove an instructor's availability
// @Description Admin removal of another instructor's availability for the lesson
// @Tags Availability
// @Produce json
// @Param id path string true "Lesson ID"
// @Param teacherId path string true "Teacher ID"
// @Success 204 {object} response.Envelope
// @Router /lessons/{id}/availability/{teacherId} [delete]
func (h *AvailabilityHandler) RemoveForTeacher(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Remove(c.Request.Context(), claims.OrganizationID, c.Param("id"), c.Param("teacherId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
