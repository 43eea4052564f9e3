package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/clearance"
)

// Middleware provides HTTP authentication middleware.
// It is thin and delegates token handling to AuthService.
type Middleware struct {
	authService AuthService
	logger      *zap.Logger
}

// NewMiddleware creates a new auth middleware with the given AuthService.
func NewMiddleware(authService AuthService, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		logger:      logger,
	}
}

// RequireAuth validates the bearer token and stores claims and token in the context.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, token, err := m.authService.ValidateRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		ctx = context.WithValue(ctx, TokenKey, token)
		next(w, r.WithContext(ctx))
	}
}

// RequireCapability rejects requests whose project actor lacks capability.
// It must run after the membership middleware has stored the actor.
func RequireCapability(capability clearance.Capability) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}

			if err := clearance.CheckCapability(actor.Role, capability); err != nil {
				writeError(w, http.StatusForbidden, "forbidden", DeniedMessage(capability))
				return
			}

			next(w, r)
		}
	}
}

// DeniedMessage is the user-facing explanation for a missing capability.
func DeniedMessage(capability clearance.Capability) string {
	switch capability {
	case clearance.CapUploadScript:
		return "Only Attorneys and Analysts can upload scripts"
	case clearance.CapEditRiskStatus:
		return "Only Attorneys and Analysts can change status"
	case clearance.CapEditRiskAnnotations:
		return "Viewers cannot edit comments or restrictions"
	case clearance.CapRenameVersion:
		return "Only Attorneys and Main Production Contacts can rename versions"
	case clearance.CapDeleteScript:
		return "Only Attorneys and Analysts can delete scripts"
	case clearance.CapDeleteProject:
		return "Only Attorneys can delete projects"
	case clearance.CapManageMembers, clearance.CapAddViewerMember:
		return "Only Attorneys and Analysts can manage members"
	default:
		return "Insufficient permissions"
	}
}

func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
