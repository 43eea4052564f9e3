package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/auth"
	"github.com/scriptsentries/clearance-engine/pkg/models"
	"github.com/scriptsentries/clearance-engine/pkg/services"
)

// AddCommentRequest is the body of POST .../risks/{rid}/comments.
type AddCommentRequest struct {
	Text string `json:"text"`
}

// RisksHandler serves risk flags and their discussion threads.
type RisksHandler struct {
	riskService    services.RiskService
	commentService services.CommentService
	logger         *zap.Logger
}

// NewRisksHandler creates a new risks handler.
func NewRisksHandler(riskService services.RiskService, commentService services.CommentService, logger *zap.Logger) *RisksHandler {
	return &RisksHandler{
		riskService:    riskService,
		commentService: commentService,
		logger:         logger,
	}
}

// RegisterRoutes registers the risks handler's routes on the given mux.
func (h *RisksHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope, membership Middleware) {
	wrap := func(next http.HandlerFunc) http.HandlerFunc {
		return authMiddleware.RequireAuth(scope(membership(next)))
	}
	mux.HandleFunc("GET /api/projects/{pid}/risks/{rid}", wrap(h.Get))
	mux.HandleFunc("PATCH /api/projects/{pid}/risks/{rid}", wrap(h.Update))
	mux.HandleFunc("GET /api/projects/{pid}/risks/{rid}/comments", wrap(h.ListComments))
	mux.HandleFunc("POST /api/projects/{pid}/risks/{rid}/comments", wrap(h.AddComment))
}

// Get handles GET /api/projects/{pid}/risks/{rid}
func (h *RisksHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, riskID, ok := ParseProjectAndRiskIDs(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	risk, err := h.riskService.Get(r.Context(), actor, projectID, riskID)
	if err != nil {
		writeServiceError(w, err, "get_risk", h.logger)
		return
	}

	writeData(w, http.StatusOK, risk, h.logger)
}

// Update handles PATCH /api/projects/{pid}/risks/{rid}
// Accepts any of status, comments, restrictions and isRedacted.
func (h *RisksHandler) Update(w http.ResponseWriter, r *http.Request) {
	projectID, riskID, ok := ParseProjectAndRiskIDs(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	var update models.RiskFlagUpdate
	if !decodeBody(w, r, &update, h.logger) {
		return
	}

	risk, err := h.riskService.Update(r.Context(), actor, projectID, riskID, update)
	if err != nil {
		writeServiceError(w, err, "update_risk", h.logger)
		return
	}

	writeData(w, http.StatusOK, risk, h.logger)
}

// ListComments handles GET /api/projects/{pid}/risks/{rid}/comments
func (h *RisksHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	projectID, riskID, ok := ParseProjectAndRiskIDs(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	comments, err := h.commentService.List(r.Context(), actor, projectID, riskID)
	if err != nil {
		writeServiceError(w, err, "list_comments", h.logger)
		return
	}

	writeData(w, http.StatusOK, comments, h.logger)
}

// AddComment handles POST /api/projects/{pid}/risks/{rid}/comments
func (h *RisksHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	projectID, riskID, ok := ParseProjectAndRiskIDs(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	var req AddCommentRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	comment, err := h.commentService.Add(r.Context(), actor, projectID, riskID, req.Text)
	if err != nil {
		writeServiceError(w, err, "add_comment", h.logger)
		return
	}

	writeData(w, http.StatusCreated, comment, h.logger)
}
