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

const availabilityColumns = "a.id, a.organization_id, a.lesson_id, a.teacher_id, a.pool, a.classroom, a.note, a.created_at, a.updated_at"

// AvailabilityRepository manages persistence for teacher availability.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs an AvailabilityRepository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListByPair returns every row for the (lesson, teacher) pair in stable
// order. The first row is the canonical one during reconciliation.
func (r *AvailabilityRepository) ListByPair(ctx context.Context, lessonID, teacherID string) ([]models.Availability, error) {
	const query = `SELECT id, organization_id, lesson_id, teacher_id, pool, classroom, note, created_at, updated_at
		FROM teacher_availability WHERE lesson_id = $1 AND teacher_id = $2 ORDER BY created_at, id`
	var rows []models.Availability
	if err := r.db.SelectContext(ctx, &rows, query, lessonID, teacherID); err != nil {
		return nil, fmt.Errorf("list availability pair: %w", err)
	}
	return rows, nil
}

// ListByLessons returns joined availability details for the given
// lessons, keyed for read-time assembly of the calendar view.
func (r *AvailabilityRepository) ListByLessons(ctx context.Context, lessonIDs []string) ([]models.AvailabilityDetail, error) {
	if len(lessonIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(lessonIDs))
	args := make([]interface{}, len(lessonIDs))
	for i, id := range lessonIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s, u.name AS teacher_name, u.username AS teacher_username
		FROM teacher_availability a
		JOIN users u ON u.id = a.teacher_id
		WHERE a.lesson_id IN (%s)
		ORDER BY a.lesson_id, a.created_at, a.id`, availabilityColumns, strings.Join(placeholders, ", "))

	var rows []models.AvailabilityDetail
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list availability by lessons: %w", err)
	}
	return rows, nil
}

// Insert creates a new availability row.
func (r *AvailabilityRepository) Insert(ctx context.Context, row *models.Availability) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	const query = `INSERT INTO teacher_availability (id, organization_id, lesson_id, teacher_id, pool, classroom, note, created_at, updated_at)
		VALUES (:id, :organization_id, :lesson_id, :teacher_id, :pool, :classroom, :note, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("insert availability: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of an existing row.
func (r *AvailabilityRepository) Update(ctx context.Context, row *models.Availability) error {
	row.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teacher_availability SET pool = :pool, classroom = :classroom, note = :note, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("update availability: %w", err)
	}
	return nil
}

// Delete removes a single availability row by id.
func (r *AvailabilityRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM teacher_availability WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}
	return nil
}

// DeleteByPair removes every row for the (lesson, teacher) pair.
// Deleting a non-existent pair is not an error.
func (r *AvailabilityRepository) DeleteByPair(ctx context.Context, lessonID, teacherID string) error {
	const query = `DELETE FROM teacher_availability WHERE lesson_id = $1 AND teacher_id = $2`
	if _, err := r.db.ExecContext(ctx, query, lessonID, teacherID); err != nil {
		return fmt.Errorf("delete availability pair: %w", err)
	}
	return nil
}
