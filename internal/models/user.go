package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
)

// User represents an instructor or admin stored in the users table.
// Password is the opaque credential compared as a plain value by the
// auth collaborator; it is never serialized.
type User struct {
	ID             string    `db:"id" json:"id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	Username       string    `db:"username" json:"username"`
	Name           string    `db:"name" json:"name"`
	Password       string    `db:"password" json:"-"`
	Role           UserRole  `db:"role" json:"role"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
