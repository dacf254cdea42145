package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/apnealab/dive-scheduler-api/internal/dto"
	"github.com/apnealab/dive-scheduler-api/internal/models"
	"github.com/apnealab/dive-scheduler-api/internal/service"
	appErrors "github.com/apnealab/dive-scheduler-api/pkg/errors"
	"github.com/apnealab/dive-scheduler-api/pkg/response"
)

const dateLayout = "2006-01-02"

type lessonOperations interface {
	Calendar(ctx context.Context, orgID string, from, to *time.Time) (dto.CalendarResponse, error)
	Create(ctx context.Context, orgID, createdBy string, req service.CreateLessonRequest) (*models.Lesson, error)
	CreateSeries(ctx context.Context, orgID, createdBy string, req service.CreateLessonRequest) ([]models.Lesson, error)
	Update(ctx context.Context, orgID, id string, update models.LessonUpdate) (*models.Lesson, error)
	UpdateSeriesFromDate(ctx context.Context, orgID, recurrenceID string, fromDate time.Time, update models.LessonUpdate) ([]models.Lesson, error)
	Delete(ctx context.Context, orgID, id string) error
	DeleteSeries(ctx context.Context, orgID, recurrenceID string) (int, error)
	SeriesLabel(ctx context.Context, orgID, recurrenceID string) (string, int, error)
}

// LessonHandler exposes lesson and series endpoints.
type LessonHandler struct {
	service lessonOperations
}

// NewLessonHandler creates a new handler.
func NewLessonHandler(svc lessonOperations) *LessonHandler {
	return &LessonHandler{service: svc}
}

// Calendar godoc
// @Summary Calendar view
// @Description Returns lessons in range keyed by date, each with its availability list
// @Tags Lessons
// @Produce json
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /lessons [get]
func (h *LessonHandler) Calendar(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	from, err := optionalDate(c.Query("from"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date"))
		return
	}
	to, err := optionalDate(c.Query("to"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date"))
		return
	}

	view, err := h.service.Calendar(c.Request.Context(), claims.OrganizationID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Create godoc
// @Summary Create lesson
// @Description Creates a single lesson, or a whole series when a recurrence rule is present. A partially created series is reported with 207.
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body service.CreateLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 207 {object} response.Envelope
// @Router /lessons [post]
func (h *LessonHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson payload"))
		return
	}

	if req.Recurrence == nil {
		lesson, err := h.service.Create(c.Request.Context(), claims.OrganizationID, claims.UserID, req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Created(c, lesson)
		return
	}

	lessons, err := h.service.CreateSeries(c.Request.Context(), claims.OrganizationID, claims.UserID, req)
	if err != nil {
		if respondPartialSeries(c, err) {
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, lessons)
}

// Update godoc
// @Summary Update lesson
// @Description Applies a partial update; omitted fields are untouched
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Lesson ID"
// @Param payload body models.LessonUpdate true "Partial update"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons/{id} [put]
func (h *LessonHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var update models.LessonUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	lesson, err := h.service.Update(c.Request.Context(), claims.OrganizationID, c.Param("id"), update)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// Delete godoc
// @Summary Delete lesson
// @Description Removes a single lesson and its availability rows
// @Tags Lessons
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lessons/{id} [delete]
func (h *LessonHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims.OrganizationID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateSeries godoc
// @Summary Update series from date
// @Description Applies a partial update to every series member dated on or after the cutoff
// @Tags Series
// @Accept json
// @Produce json
// @Param token path string true "Series token"
// @Param from query string true "Cutoff date (YYYY-MM-DD)"
// @Param payload body models.LessonUpdate true "Partial update"
// @Success 200 {object} response.Envelope
// @Failure 207 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /series/{token} [put]
func (h *LessonHandler) UpdateSeries(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fromDate, err := time.Parse(dateLayout, c.Query("from"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from date is required (YYYY-MM-DD)"))
		return
	}

	var update models.LessonUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	lessons, err := h.service.UpdateSeriesFromDate(c.Request.Context(), claims.OrganizationID, c.Param("token"), fromDate, update)
	if err != nil {
		if respondPartialSeries(c, err) {
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}

// DeleteSeries godoc
// @Summary Delete series
// @Description Removes every lesson sharing the series token
// @Tags Series
// @Produce json
// @Param token path string true "Series token"
// @Success 200 {object} response.Envelope
// @Failure 207 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /series/{token} [delete]
func (h *LessonHandler) DeleteSeries(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	deleted, err := h.service.DeleteSeries(c.Request.Context(), claims.OrganizationID, c.Param("token"))
	if err != nil {
		if respondPartialSeries(c, err) {
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": deleted}, nil)
}

// SeriesInfo godoc
// @Summary Series label
// @Description Returns the series display label and member count
// @Tags Series
// @Produce json
// @Param token path string true "Series token"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /series/{token} [get]
func (h *LessonHandler) SeriesInfo(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	label, count, err := h.service.SeriesLabel(c.Request.Context(), claims.OrganizationID, c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if count == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "series not found"))
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"label": label, "count": count}, nil)
}

// respondPartialSeries renders the 207 payload for a partially applied
// series operation. It returns false when the error is not partial.
func respondPartialSeries(c *gin.Context, err error) bool {
	var partial *models.PartialSeriesError
	if !errors.As(err, &partial) {
		return false
	}
	response.JSON(c, http.StatusMultiStatus, gin.H{
		"op":            partial.Op,
		"recurrence_id": partial.RecurrenceID,
		"lessons":       partial.Lessons,
		"failures":      partial.Failures,
	}, nil)
	return true
}

func optionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
