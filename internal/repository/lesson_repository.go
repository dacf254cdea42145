package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/apnealab/dive-scheduler-api/internal/models"
)

const lessonColumns = "id, organization_id, date, time, pool, classroom, description, created_by, recurrence_id, recurrence_label, created_at, updated_at"

// LessonRepository manages persistence for lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// List returns lessons matching the filter ordered by date then time.
func (r *LessonRepository) List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, error) {
	query := fmt.Sprintf("SELECT %s FROM lessons WHERE organization_id = $1", lessonColumns)
	args := []interface{}{filter.OrganizationID}

	var conditions []string
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.RecurrenceID != "" {
		conditions = append(conditions, fmt.Sprintf("recurrence_id = $%d", len(args)+1))
		args = append(args, filter.RecurrenceID)
	}
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date, time"

	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, nil
}

// FindByID fetches a lesson by ID.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := fmt.Sprintf("SELECT %s FROM lessons WHERE id = $1", lessonColumns)
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// Create inserts a new lesson record.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now

	const query = `INSERT INTO lessons (id, organization_id, date, time, pool, classroom, description, created_by, recurrence_id, recurrence_label, created_at, updated_at)
		VALUES (:id, :organization_id, :date, :time, :pool, :classroom, :description, :created_by, :recurrence_id, :recurrence_label, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// ApplyUpdate applies the non-nil fields of the partial update and
// returns the updated record. An empty update only bumps updated_at.
func (r *LessonRepository) ApplyUpdate(ctx context.Context, id string, update models.LessonUpdate) (*models.Lesson, error) {
	sets := []string{}
	args := []interface{}{}

	if update.Time != nil {
		sets = append(sets, fmt.Sprintf("time = $%d", len(args)+1))
		args = append(args, *update.Time)
	}
	if update.Pool != nil {
		sets = append(sets, fmt.Sprintf("pool = $%d", len(args)+1))
		args = append(args, *update.Pool)
	}
	if update.Classroom != nil {
		sets = append(sets, fmt.Sprintf("classroom = $%d", len(args)+1))
		args = append(args, *update.Classroom)
	}
	if update.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)+1))
		args = append(args, *update.Description)
	}

	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)+1))
	args = append(args, time.Now().UTC())

	args = append(args, id)
	query := fmt.Sprintf("UPDATE lessons SET %s WHERE id = $%d RETURNING %s", strings.Join(sets, ", "), len(args), lessonColumns)

	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, args...); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// Delete removes a lesson record.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM lessons WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return nil
}
