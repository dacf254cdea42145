package models

import "time"

// Availability records an instructor's declared willingness to cover a
// lesson's dimensions. The reconciler guarantees at most one row per
// (lesson_id, teacher_id) pair even when storage permits duplicates.
type Availability struct {
	ID             string    `db:"id" json:"id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	LessonID       string    `db:"lesson_id" json:"lesson_id"`
	TeacherID      string    `db:"teacher_id" json:"teacher_id"`
	Pool           bool      `db:"pool" json:"pool"`
	Classroom      bool      `db:"classroom" json:"classroom"`
	Note           string    `db:"note" json:"note"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// AvailabilityDetail joins an availability row with the instructor's
// identity. Joins are keyed by user id; the name is display-only.
type AvailabilityDetail struct {
	Availability
	TeacherName     string `db:"teacher_name" json:"teacher_name"`
	TeacherUsername string `db:"teacher_username" json:"teacher_username"`
}
