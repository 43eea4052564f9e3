package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/auth"
	"github.com/scriptsentries/clearance-engine/pkg/clearance"
	"github.com/scriptsentries/clearance-engine/pkg/services"
)

// UpdateMemberRequest is the body of PATCH /api/projects/{pid}/members/{uid}.
type UpdateMemberRequest struct {
	Role clearance.Role `json:"role"`
}

// MembersHandler manages project membership.
type MembersHandler struct {
	memberService services.MemberService
	logger        *zap.Logger
}

// NewMembersHandler creates a new members handler.
func NewMembersHandler(memberService services.MemberService, logger *zap.Logger) *MembersHandler {
	return &MembersHandler{memberService: memberService, logger: logger}
}

// RegisterRoutes registers the members handler's routes on the given mux.
func (h *MembersHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope, membership Middleware) {
	wrap := func(next http.HandlerFunc) http.HandlerFunc {
		return authMiddleware.RequireAuth(scope(membership(next)))
	}
	mux.HandleFunc("GET /api/projects/{pid}/members", wrap(h.List))
	mux.HandleFunc("POST /api/projects/{pid}/members", wrap(h.Add))
	mux.HandleFunc("PATCH /api/projects/{pid}/members/{uid}", wrap(h.UpdateRole))
	mux.HandleFunc("DELETE /api/projects/{pid}/members/{uid}", wrap(h.Remove))
}

// List handles GET /api/projects/{pid}/members
func (h *MembersHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	members, err := h.memberService.List(r.Context(), actor, projectID)
	if err != nil {
		writeServiceError(w, err, "list_members", h.logger)
		return
	}

	writeData(w, http.StatusOK, members, h.logger)
}

// Add handles POST /api/projects/{pid}/members
// Returns the updated member list.
func (h *MembersHandler) Add(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	var invite services.MemberInvite
	if !decodeBody(w, r, &invite, h.logger) {
		return
	}

	members, err := h.memberService.Add(r.Context(), actor, projectID, invite)
	if err != nil {
		writeServiceError(w, err, "add_member", h.logger)
		return
	}

	writeData(w, http.StatusCreated, members, h.logger)
}

// UpdateRole handles PATCH /api/projects/{pid}/members/{uid}
func (h *MembersHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	userID, ok := ParseUserID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateMemberRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	members, err := h.memberService.UpdateRole(r.Context(), actor, projectID, userID, req.Role)
	if err != nil {
		writeServiceError(w, err, "update_member", h.logger)
		return
	}

	writeData(w, http.StatusOK, members, h.logger)
}

// Remove handles DELETE /api/projects/{pid}/members/{uid}
func (h *MembersHandler) Remove(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	userID, ok := ParseUserID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.memberService.Remove(r.Context(), actor, projectID, userID); err != nil {
		writeServiceError(w, err, "remove_member", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
