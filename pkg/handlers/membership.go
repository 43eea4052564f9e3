package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/apperrors"
	"github.com/scriptsentries/clearance-engine/pkg/auth"
	"github.com/scriptsentries/clearance-engine/pkg/clearance"
	"github.com/scriptsentries/clearance-engine/pkg/services"
)

// Middleware wraps a handler.
type Middleware func(http.HandlerFunc) http.HandlerFunc

// NewMembershipMiddleware resolves the caller's role in the {pid} project and
// stores the resulting actor in the request context. Non-members get 403.
// It must run inside RequireAuth and the database scope.
func NewMembershipMiddleware(access services.AccessService, logger *zap.Logger) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			projectID, ok := ParseProjectID(w, r, logger)
			if !ok {
				return
			}

			userID, ok := auth.GetUserIDFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", logger)
				return
			}

			actor, err := access.ResolveActor(r.Context(), projectID, userID)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotMember) {
					writeError(w, http.StatusForbidden, "not_member", "You are not a member of this project", logger)
					return
				}
				writeServiceError(w, err, "resolve_membership", logger)
				return
			}

			next(w, r.WithContext(auth.WithActor(r.Context(), actor)))
		}
	}
}

// requireActor returns the actor stored by the membership middleware.
func requireActor(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (clearance.Actor, bool) {
	actor, ok := auth.GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", logger)
		return clearance.Actor{}, false
	}
	return actor, true
}
