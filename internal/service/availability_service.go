package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/apnealab/dive-scheduler-api/internal/models"
	appErrors "github.com/apnealab/dive-scheduler-api/pkg/errors"
)

type availabilityRepository interface {
	ListByPair(ctx context.Context, lessonID, teacherID string) ([]models.Availability, error)
	Insert(ctx context.Context, row *models.Availability) error
	Update(ctx context.Context, row *models.Availability) error
	Delete(ctx context.Context, id string) error
	DeleteByPair(ctx context.Context, lessonID, teacherID string) error
}

type availabilityLessonFinder interface {
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
}

type availabilityUserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// SetAvailabilityRequest carries the full resulting dimension pair plus note.
type SetAvailabilityRequest struct {
	Pool      bool   `json:"pool"`
	Classroom bool   `json:"classroom"`
	Note      string `json:"note" validate:"max=500"`
}

// AvailabilityService reconciles instructor availability per lesson.
// It guarantees at most one row per (lesson, teacher) pair, healing
// duplicates on every write.
type AvailabilityService struct {
	repo      availabilityRepository
	lessons   availabilityLessonFinder
	users     availabilityUserFinder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(repo availabilityRepository, lessons availabilityLessonFinder, users availabilityUserFinder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, lessons: lessons, users: users, cache: cache, validator: validate, logger: logger}
}

// Set writes the canonical availability row for the (lesson, teacher)
// pair. Existing duplicates are collapsed onto the first row in stable
// order; cleanup of extras is best-effort and never fails the write.
func (s *AvailabilityService) Set(ctx context.Context, orgID, lessonID, teacherID string, req SetAvailabilityRequest) (*models.Availability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	lesson, err := s.findLesson(ctx, orgID, lessonID)
	if err != nil {
		return nil, err
	}
	if _, err := s.findTeacher(ctx, orgID, teacherID); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListByPair(ctx, lessonID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}

	var canonical *models.Availability
	if len(rows) == 0 {
		canonical = &models.Availability{
			OrganizationID: lesson.OrganizationID,
			LessonID:       lessonID,
			TeacherID:      teacherID,
			Pool:           req.Pool,
			Classroom:      req.Classroom,
			Note:           strings.TrimSpace(req.Note),
		}
		if err := s.repo.Insert(ctx, canonical); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability")
		}
	} else {
		canonical = &rows[0]
		canonical.Pool = req.Pool
		canonical.Classroom = req.Classroom
		canonical.Note = strings.TrimSpace(req.Note)
		if err := s.repo.Update(ctx, canonical); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability")
		}

		// Duplicate self-heal: the canonical row is already correct, so
		// cleanup failures are logged and not surfaced.
		for _, extra := range rows[1:] {
			if err := s.repo.Delete(ctx, extra.ID); err != nil {
				s.logger.Warn("availability reconciliation cleanup failed",
					zap.String("lesson_id", lessonID),
					zap.String("teacher_id", teacherID),
					zap.String("duplicate_id", extra.ID),
					zap.Error(err))
			}
		}
	}

	s.invalidateStats(ctx, lesson.OrganizationID)
	return canonical, nil
}

// Toggle flips one dimension of the instructor's availability for the
// lesson, preserving the other dimension and the note. With no prior
// row the untouched dimension starts false.
func (s *AvailabilityService) Toggle(ctx context.Context, orgID, lessonID, teacherID, dimension string) (*models.Availability, error) {
	if dimension != "pool" && dimension != "classroom" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "dimension must be pool or classroom")
	}

	rows, err := s.repo.ListByPair(ctx, lessonID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}

	req := SetAvailabilityRequest{}
	if len(rows) > 0 {
		req.Pool = rows[0].Pool
		req.Classroom = rows[0].Classroom
		req.Note = rows[0].Note
	}
	switch dimension {
	case "pool":
		req.Pool = !req.Pool
	case "classroom":
		req.Classroom = !req.Classroom
	}

	return s.Set(ctx, orgID, lessonID, teacherID, req)
}

// SetNote updates the note of an existing availability row, preserving
// both dimensions. Without a prior row it is a no-op.
func (s *AvailabilityService) SetNote(ctx context.Context, orgID, lessonID, teacherID, note string) (*models.Availability, error) {
	rows, err := s.repo.ListByPair(ctx, lessonID, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	return s.Set(ctx, orgID, lessonID, teacherID, SetAvailabilityRequest{
		Pool:      rows[0].Pool,
		Classroom: rows[0].Classroom,
		Note:      note,
	})
}

// Remove deletes every row for the (lesson, teacher) pair. Removing a
// non-existent availability is not an error.
func (s *AvailabilityService) Remove(ctx context.Context, orgID, lessonID, teacherID string) error {
	lesson, err := s.findLesson(ctx, orgID, lessonID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteByPair(ctx, lessonID, teacherID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove availability")
	}
	s.invalidateStats(ctx, lesson.OrganizationID)
	return nil
}

func (s *AvailabilityService) findLesson(ctx context.Context, orgID, lessonID string) (*models.Lesson, error) {
	lesson, err := s.lessons.FindByID(ctx, lessonID)
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

func (s *AvailabilityService) findTeacher(ctx context.Context, orgID, teacherID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if orgID != "" && user.OrganizationID != orgID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return user, nil
}

func (s *AvailabilityService) invalidateStats(ctx context.Context, orgID string) {
	if err := s.cache.Invalidate(ctx, "stats:"+orgID+":*"); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.String("org_id", orgID), zap.Error(err))
	}
}
