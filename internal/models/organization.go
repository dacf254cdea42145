package models

import "time"

// Organization is the tenant boundary; every user, lesson and
// availability row belongs to exactly one organization.
type Organization struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
