package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/apnealab/dive-scheduler-api/internal/dto"
	"github.com/apnealab/dive-scheduler-api/internal/models"
	appErrors "github.com/apnealab/dive-scheduler-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type lessonRepository interface {
	List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, error)
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	ApplyUpdate(ctx context.Context, id string, update models.LessonUpdate) (*models.Lesson, error)
	Delete(ctx context.Context, id string) error
}

type lessonAvailabilityLister interface {
	ListByLessons(ctx context.Context, lessonIDs []string) ([]models.AvailabilityDetail, error)
}

// RecurrenceRequest describes the recurring part of a create payload.
type RecurrenceRequest struct {
	Type     string `json:"type" validate:"required,oneof=daily weekly monthly yearly"`
	Interval int    `json:"interval" validate:"omitempty,min=1"`
	EndDate  string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Label    string `json:"label" validate:"omitempty,max=100"`
}

// CreateLessonRequest is the payload for authoring a lesson, one-off or
// recurring when Recurrence is present.
type CreateLessonRequest struct {
	Date        string             `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string             `json:"time" validate:"required"`
	Pool        bool               `json:"pool"`
	Classroom   bool               `json:"classroom"`
	Description string             `json:"description" validate:"max=1000"`
	Recurrence  *RecurrenceRequest `json:"recurrence"`
}

// LessonService orchestrates lesson and series operations.
type LessonService struct {
	repo         lessonRepository
	availability lessonAvailabilityLister
	cache        *CacheService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewLessonService constructs a LessonService.
func NewLessonService(repo lessonRepository, availability lessonAvailabilityLister, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LessonService{repo: repo, availability: availability, cache: cache, validator: validate, logger: logger}
}

// Create authors a single non-recurring lesson.
func (s *LessonService) Create(ctx context.Context, orgID, createdBy string, req CreateLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid lesson date")
	}

	lesson := s.draftLesson(orgID, createdBy, date, req, nil, nil)
	if err := s.repo.Create(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}

	s.invalidateStats(ctx, orgID)
	return lesson, nil
}

// CreateSeries expands the recurrence rule and authors one lesson per
// date under a fresh series token. Creation is sequential; a partial
// failure does not roll back already-created lessons and is reported
// through PartialSeriesError.
func (s *LessonService) CreateSeries(ctx context.Context, orgID, createdBy string, req CreateLessonRequest) ([]models.Lesson, error) {
	if req.Recurrence == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recurrence is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	start, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid lesson date")
	}

	rule := RecurrenceRule{Type: req.Recurrence.Type, Interval: req.Recurrence.Interval}
	if req.Recurrence.EndDate != "" {
		until, err := time.Parse(dateLayout, req.Recurrence.EndDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid recurrence end date")
		}
		rule.Until = &until
	}

	token := "rec_" + uuid.NewString()
	var label *string
	if trimmed := strings.TrimSpace(req.Recurrence.Label); trimmed != "" {
		label = &trimmed
	}

	dates := ExpandRecurrence(start, rule)

	created := make([]models.Lesson, 0, len(dates))
	var failures []models.SeriesFailure
	for _, date := range dates {
		lesson := s.draftLesson(orgID, createdBy, date, req, &token, label)
		if err := s.repo.Create(ctx, lesson); err != nil {
			s.logger.Error("series lesson creation failed",
				zap.String("recurrence_id", token),
				zap.Time("date", date),
				zap.Error(err))
			failures = append(failures, models.SeriesFailure{Date: date, Reason: err.Error()})
			continue
		}
		created = append(created, *lesson)
	}

	s.invalidateStats(ctx, orgID)

	if len(failures) > 0 {
		return created, &models.PartialSeriesError{Op: "create", RecurrenceID: token, Lessons: created, Failures: failures}
	}
	return created, nil
}

// Update applies a partial update to a lesson. Nil fields are left
// untouched; an empty update is a no-op returning the current record.
func (s *LessonService) Update(ctx context.Context, orgID, id string, update models.LessonUpdate) (*models.Lesson, error) {
	lesson, err := s.findLesson(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if update.Empty() {
		return lesson, nil
	}

	updated, err := s.repo.ApplyUpdate(ctx, id, update)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lesson")
	}

	s.invalidateStats(ctx, orgID)
	return updated, nil
}

// UpdateSeriesFromDate applies the partial update to every series
// member dated on or after fromDate. Earlier members are untouched.
// Per-lesson failures are reported, not rolled back.
func (s *LessonService) UpdateSeriesFromDate(ctx context.Context, orgID, recurrenceID string, fromDate time.Time, update models.LessonUpdate) ([]models.Lesson, error) {
	members, err := s.repo.List(ctx, models.LessonFilter{OrganizationID: orgID, RecurrenceID: recurrenceID, From: &fromDate})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load series")
	}
	if len(members) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "series not found")
	}
	if update.Empty() {
		return members, nil
	}

	updated := make([]models.Lesson, 0, len(members))
	var failures []models.SeriesFailure
	for _, member := range members {
		lesson, err := s.repo.ApplyUpdate(ctx, member.ID, update)
		if err != nil {
			s.logger.Error("series lesson update failed",
				zap.String("recurrence_id", recurrenceID),
				zap.String("lesson_id", member.ID),
				zap.Error(err))
			failures = append(failures, models.SeriesFailure{Date: member.Date, LessonID: member.ID, Reason: err.Error()})
			continue
		}
		updated = append(updated, *lesson)
	}

	s.invalidateStats(ctx, orgID)

	if len(failures) > 0 {
		return updated, &models.PartialSeriesError{Op: "update", RecurrenceID: recurrenceID, Lessons: updated, Failures: failures}
	}
	return updated, nil
}

// Delete removes a single lesson.
func (s *LessonService) Delete(ctx context.Context, orgID, id string) error {
	if _, err := s.findLesson(ctx, orgID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson")
	}
	s.invalidateStats(ctx, orgID)
	return nil
}

// DeleteSeries removes every lesson sharing the series token, one by
// one. A partial failure leaves a partially-deleted series and is
// reported through PartialSeriesError.
func (s *LessonService) DeleteSeries(ctx context.Context, orgID, recurrenceID string) (int, error) {
	members, err := s.repo.List(ctx, models.LessonFilter{OrganizationID: orgID, RecurrenceID: recurrenceID})
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load series")
	}
	if len(members) == 0 {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "series not found")
	}

	deleted := 0
	var failures []models.SeriesFailure
	for _, member := range members {
		if err := s.repo.Delete(ctx, member.ID); err != nil {
			s.logger.Error("series lesson deletion failed",
				zap.String("recurrence_id", recurrenceID),
				zap.String("lesson_id", member.ID),
				zap.Error(err))
			failures = append(failures, models.SeriesFailure{Date: member.Date, LessonID: member.ID, Reason: err.Error()})
			continue
		}
		deleted++
	}

	s.invalidateStats(ctx, orgID)

	if len(failures) > 0 {
		return deleted, &models.PartialSeriesError{Op: "delete", RecurrenceID: recurrenceID, Failures: failures}
	}
	return deleted, nil
}

// SeriesLabel returns the series' display label: the first non-null
// recurrence_label among members, or empty when none carries one.
func (s *LessonService) SeriesLabel(ctx context.Context, orgID, recurrenceID string) (string, int, error) {
	members, err := s.repo.List(ctx, models.LessonFilter{OrganizationID: orgID, RecurrenceID: recurrenceID})
	if err != nil {
		return "", 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load series")
	}
	for _, member := range members {
		if member.RecurrenceLabel != nil && *member.RecurrenceLabel != "" {
			return *member.RecurrenceLabel, len(members), nil
		}
	}
	return "", len(members), nil
}

// Calendar assembles the date-keyed read view: every lesson in range
// with its reconciled availability list joined by teacher id.
func (s *LessonService) Calendar(ctx context.Context, orgID string, from, to *time.Time) (dto.CalendarResponse, error) {
	lessons, err := s.repo.List(ctx, models.LessonFilter{OrganizationID: orgID, From: from, To: to})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}

	ids := make([]string, len(lessons))
	for i, lesson := range lessons {
		ids[i] = lesson.ID
	}

	details, err := s.availability.ListByLessons(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	byLesson := make(map[string][]models.AvailabilityDetail, len(lessons))
	for _, detail := range details {
		byLesson[detail.LessonID] = append(byLesson[detail.LessonID], detail)
	}

	view := make(dto.CalendarResponse, len(lessons))
	for _, lesson := range lessons {
		teachers := byLesson[lesson.ID]
		if teachers == nil {
			teachers = []models.AvailabilityDetail{}
		}
		key := lesson.Date.Format(dateLayout)
		view[key] = append(view[key], dto.LessonWithAvailability{Lesson: lesson, Teachers: teachers})
	}
	return view, nil
}

func (s *LessonService) draftLesson(orgID, createdBy string, date time.Time, req CreateLessonRequest, recurrenceID, label *string) *models.Lesson {
	return &models.Lesson{
		OrganizationID:  orgID,
		Date:            date,
		Time:            req.Time,
		Pool:            req.Pool,
		Classroom:       req.Classroom,
		Description:     strings.TrimSpace(req.Description),
		CreatedBy:       createdBy,
		RecurrenceID:    recurrenceID,
		RecurrenceLabel: label,
	}
}

func (s *LessonService) findLesson(ctx context.Context, orgID, id string) (*models.Lesson, error) {
	lesson, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	if orgID != "" && lesson.OrganizationID != orgID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
	}
	return lesson, nil
}

func (s *LessonService) invalidateStats(ctx context.Context, orgID string) {
	if err := s.cache.Invalidate(ctx, "stats:"+orgID+":*"); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.String("org_id", orgID), zap.Error(err))
	}
}
