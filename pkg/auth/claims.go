// Package auth issues and validates session tokens and carries the caller's
// identity and project role through request contexts.
package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/scriptsentries/clearance-engine/pkg/clearance"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
	// ActorKey is the context key for the caller's project-scoped actor.
	ActorKey contextKey = "actor"
)

// Claims is the session token payload. Subject holds the user UUID.
// Project roles are deliberately absent: they are resolved per request from
// membership so a role change takes effect without re-login.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// UserID parses the subject as a UUID.
func (c *Claims) UserID() (uuid.UUID, error) {
	if c.Subject == "" {
		return uuid.Nil, fmt.Errorf("missing user ID in JWT claims")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user ID format: %w", err)
	}
	return id, nil
}

// GetClaims retrieves JWT claims from the request context.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// WithActor stores the caller's project-scoped actor in the context.
func WithActor(ctx context.Context, actor clearance.Actor) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// GetActor retrieves the actor set by the membership middleware.
func GetActor(ctx context.Context) (clearance.Actor, bool) {
	actor, ok := ctx.Value(ActorKey).(clearance.Actor)
	return actor, ok
}
