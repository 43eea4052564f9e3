package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/auth"
	"github.com/scriptsentries/clearance-engine/pkg/services"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AuthHandler serves sign-up, sign-in and user lookup.
type AuthHandler struct {
	accounts services.AccountService
	users    services.UserService
	logger   *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(accounts services.AccountService, users services.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, users: users, logger: logger}
}

// RegisterRoutes registers the auth handler's routes on the given mux.
// Credential endpoints are rate limited per client IP.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, limit, scope Middleware) {
	mux.HandleFunc("POST /api/auth/register", limit(scope(h.Register)))
	mux.HandleFunc("POST /api/auth/login", limit(scope(h.Login)))
	mux.HandleFunc("GET /api/auth/me", authMiddleware.RequireAuth(h.Me))
	mux.HandleFunc("GET /api/users/search", authMiddleware.RequireAuth(scope(h.SearchUsers)))
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	session, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "register", h.logger)
		return
	}

	writeData(w, http.StatusCreated, session, h.logger)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	session, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, "login", h.logger)
		return
	}

	writeData(w, http.StatusOK, session, h.logger)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaims(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", h.logger)
		return
	}

	writeData(w, http.StatusOK, MeResponse{
		UserID:   claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
	}, h.logger)
}

// SearchUsers handles GET /api/users/search?q=
func (h *AuthHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err, "search_users", h.logger)
		return
	}

	writeData(w, http.StatusOK, users, h.logger)
}
