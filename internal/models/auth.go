package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user. The
// organization slug is optional and scopes the username lookup.
type LoginRequest struct {
	Username         string `json:"username" validate:"required"`
	Password         string `json:"password" validate:"required"`
	OrganizationSlug string `json:"organization_slug"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"`
	User        UserInfo     `json:"user"`
	IssuedAt    time.Time    `json:"issued_at"`
	Org         Organization `json:"organization"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Role     UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID         string   `json:"user_id"`
	OrganizationID string   `json:"organization_id"`
	Role           UserRole `json:"role"`
	Username       string   `json:"username"`
	Name           string   `json:"name"`
	jwt.RegisteredClaims
}
