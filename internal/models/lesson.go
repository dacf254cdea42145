package models

import "time"

// Lesson is a scheduled session on a calendar day. Pool and classroom
// are independent dimensions; a lesson may have neither, either or both.
type Lesson struct {
	ID              string    `db:"id" json:"id"`
	OrganizationID  string    `db:"organization_id" json:"organization_id"`
	Date            time.Time `db:"date" json:"date"`
	Time            string    `db:"time" json:"time"`
	Pool            bool      `db:"pool" json:"pool"`
	Classroom       bool      `db:"classroom" json:"classroom"`
	Description     string    `db:"description" json:"description"`
	CreatedBy       string    `db:"created_by" json:"created_by"`
	RecurrenceID    *string   `db:"recurrence_id" json:"recurrence_id,omitempty"`
	RecurrenceLabel *string   `db:"recurrence_label" json:"recurrence_label,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// LessonFilter captures query criteria for listing lessons.
type LessonFilter struct {
	OrganizationID string
	From           *time.Time
	To             *time.Time
	RecurrenceID   string
}

// LessonUpdate carries a partial update; nil fields are left untouched.
type LessonUpdate struct {
	Time        *string `json:"time"`
	Pool        *bool   `json:"pool"`
	Classroom   *bool   `json:"classroom"`
	Description *string `json:"description"`
}

// Empty reports whether the update carries no mutable fields.
func (u LessonUpdate) Empty() bool {
	return u.Time == nil && u.Pool == nil && u.Classroom == nil && u.Description == nil
}
