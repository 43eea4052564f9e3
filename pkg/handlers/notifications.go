package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/auth"
	"github.com/scriptsentries/clearance-engine/pkg/services"
)

// UnreadCountResponse is returned by GET /api/notifications/unread-count.
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// NotificationsHandler serves the caller's mention notifications.
type NotificationsHandler struct {
	notificationService services.NotificationService
	logger              *zap.Logger
}

// NewNotificationsHandler creates a new notifications handler.
func NewNotificationsHandler(notificationService services.NotificationService, logger *zap.Logger) *NotificationsHandler {
	return &NotificationsHandler{notificationService: notificationService, logger: logger}
}

// RegisterRoutes registers the notifications handler's routes on the given mux.
func (h *NotificationsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope Middleware) {
	mux.HandleFunc("GET /api/notifications", authMiddleware.RequireAuth(scope(h.List)))
	mux.HandleFunc("GET /api/notifications/unread-count", authMiddleware.RequireAuth(scope(h.UnreadCount)))
	mux.HandleFunc("POST /api/notifications/read-all", authMiddleware.RequireAuth(scope(h.MarkAllRead)))
}

// List handles GET /api/notifications
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", h.logger)
		return
	}

	notifications, err := h.notificationService.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "list_notifications", h.logger)
		return
	}

	writeData(w, http.StatusOK, notifications, h.logger)
}

// UnreadCount handles GET /api/notifications/unread-count
func (h *NotificationsHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", h.logger)
		return
	}

	count, err := h.notificationService.UnreadCount(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "unread_notifications", h.logger)
		return
	}

	writeData(w, http.StatusOK, UnreadCountResponse{Count: count}, h.logger)
}

// MarkAllRead handles POST /api/notifications/read-all
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", h.logger)
		return
	}

	if err := h.notificationService.MarkAllRead(r.Context(), userID); err != nil {
		writeServiceError(w, err, "mark_notifications_read", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
