package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/analysis"
	"github.com/scriptsentries/clearance-engine/pkg/apperrors"
	"github.com/scriptsentries/clearance-engine/pkg/auth"
	"github.com/scriptsentries/clearance-engine/pkg/clearance"
)

// ApiResponse is the envelope for successful JSON responses.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeData wraps data in a successful ApiResponse.
func writeData(w http.ResponseWriter, statusCode int, data any, logger *zap.Logger) {
	if err := WriteJSON(w, statusCode, ApiResponse{Success: true, Data: data}); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, statusCode int, errorCode, message string, logger *zap.Logger) {
	if err := ErrorResponse(w, statusCode, errorCode, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// decodeBody decodes a JSON request body, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", logger)
		return false
	}
	return true
}

// writeServiceError maps a service error onto an HTTP status and error code.
// Unrecognized errors are logged and reported as 500 with a generic message.
func writeServiceError(w http.ResponseWriter, err error, operation string, logger *zap.Logger) {
	var denied *clearance.DeniedError
	var transition *clearance.TransitionError

	switch {
	case errors.As(err, &denied):
		writeError(w, http.StatusForbidden, "forbidden", auth.DeniedMessage(denied.Capability), logger)
	case errors.As(err, &transition) && errors.Is(err, clearance.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "forbidden", auth.DeniedMessage(clearance.CapEditRiskStatus), logger)
	case errors.Is(err, clearance.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "forbidden", "Insufficient permissions", logger)
	case errors.Is(err, clearance.ErrInvalidStatus):
		logger.Error("Value outside a closed set", zap.String("operation", operation), zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid_status", err.Error(), logger)
	case errors.Is(err, apperrors.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Resource not found", logger)
	case errors.Is(err, apperrors.ErrNotMember):
		writeError(w, http.StatusNotFound, "not_member", "User is not a member of this project", logger)
	case errors.Is(err, apperrors.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error(), logger)
	case errors.Is(err, apperrors.ErrCreatorProtected):
		writeError(w, http.StatusBadRequest, "creator_protected", "The project creator's membership cannot be changed", logger)
	case errors.Is(err, apperrors.ErrUnsafeContent):
		writeError(w, http.StatusBadRequest, "unsafe_content", err.Error(), logger)
	case errors.Is(err, apperrors.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error(), logger)
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", logger)
	case errors.Is(err, analysis.ErrUnreadablePDF):
		writeError(w, http.StatusUnprocessableEntity, "unreadable_pdf", "The uploaded file could not be read as a PDF", logger)
	default:
		logger.Error("Request failed", zap.String("operation", operation), zap.Error(err))
		writeError(w, http.StatusInternalServerError, operation+"_failed", "Internal server error", logger)
	}
}
