package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the identity attached to an authenticated session
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
}

// FirstName returns the first word of the full name, or "User" when unknown.
func (u User) FirstName() string {
	fields := strings.Fields(u.FullName)
	if len(fields) == 0 {
		return "User"
	}
	return fields[0]
}

// DisplayName prefers the full name and falls back to the email.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.FullName) != "" {
		return u.FullName
	}
	return u.Email
}

// Session represents an authenticated session created by sign-in
type Session struct {
	ID        string    `json:"id"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at t.
func (s *Session) Expired(t time.Time) bool {
	return !s.ExpiresAt.IsZero() && t.After(s.ExpiresAt)
}
