package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// GetUserIDFromContext extracts the user ID from JWT claims in the context.
// Returns uuid.Nil and false if not authenticated or the subject is malformed.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return uuid.Nil, false
	}
	id, err := claims.UserID()
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// RequireUserIDFromContext is GetUserIDFromContext for callers that cannot
// proceed without a user.
func RequireUserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	id, ok := GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, fmt.Errorf("valid user ID not found in context")
	}
	return id, nil
}

// GetUsernameFromContext returns the username carried in the token, if any.
func GetUsernameFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return ""
	}
	return claims.Username
}
