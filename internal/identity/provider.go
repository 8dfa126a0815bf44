// Package identity is the authentication provider: OAuth-style sign-in
// returning a session with the member's id, email and provider metadata,
// sign-out, and session-change notifications consumed by the profile
// hydrator.
package identity

import (
	"context"

	"github.com/google/uuid"
)

// Metadata is the provider-supplied display defaults attached to a session.
type Metadata struct {
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Session is an issued identity session.
type Session struct {
	UserID   uuid.UUID `json:"userId"`
	Email    string    `json:"email"`
	Metadata Metadata  `json:"metadata"`
	Token    string    `json:"token"`
}

// Provider issues and revokes sessions. OnChange listeners observe every
// session-change event; a nil session means signed out.
type Provider interface {
	Register(ctx context.Context, email, password, name string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, userID uuid.UUID) error
	OnChange(fn func(*Session))
}
