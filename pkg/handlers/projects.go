package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/auth"
	"github.com/scriptsentries/clearance-engine/pkg/models"
	"github.com/scriptsentries/clearance-engine/pkg/services"
)

// ProjectsHandler handles project-related HTTP requests.
type ProjectsHandler struct {
	projectService services.ProjectService
	accessService  services.AccessService
	logger         *zap.Logger
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(projectService services.ProjectService, accessService services.AccessService, logger *zap.Logger) *ProjectsHandler {
	return &ProjectsHandler{
		projectService: projectService,
		accessService:  accessService,
		logger:         logger,
	}
}

// RegisterRoutes registers the projects handler's routes on the given mux.
func (h *ProjectsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope, membership Middleware) {
	mux.HandleFunc("GET /api/projects", authMiddleware.RequireAuth(scope(h.List)))
	mux.HandleFunc("POST /api/projects", authMiddleware.RequireAuth(scope(h.Create)))

	mux.HandleFunc("GET /api/projects/{pid}", authMiddleware.RequireAuth(scope(membership(h.Get))))
	mux.HandleFunc("PATCH /api/projects/{pid}", authMiddleware.RequireAuth(scope(membership(h.Update))))
	mux.HandleFunc("DELETE /api/projects/{pid}", authMiddleware.RequireAuth(scope(membership(h.Delete))))
	mux.HandleFunc("GET /api/projects/{pid}/timeline", authMiddleware.RequireAuth(scope(membership(h.Timeline))))
	mux.HandleFunc("GET /api/projects/{pid}/access", authMiddleware.RequireAuth(scope(membership(h.Access))))
}

// List handles GET /api/projects
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", h.logger)
		return
	}

	projects, err := h.projectService.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "list_projects", h.logger)
		return
	}

	writeData(w, http.StatusOK, projects, h.logger)
}

// Create handles POST /api/projects
// The caller becomes the project's ATTORNEY.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", h.logger)
		return
	}

	var req services.CreateProjectRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	project, err := h.projectService.Create(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err, "create_project", h.logger)
		return
	}

	writeData(w, http.StatusCreated, project, h.logger)
}

// Get handles GET /api/projects/{pid}
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	project, err := h.projectService.Get(r.Context(), actor, projectID)
	if err != nil {
		writeServiceError(w, err, "get_project", h.logger)
		return
	}

	writeData(w, http.StatusOK, project, h.logger)
}

// Update handles PATCH /api/projects/{pid}
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	var update models.ProjectDetailsUpdate
	if !decodeBody(w, r, &update, h.logger) {
		return
	}

	project, err := h.projectService.Update(r.Context(), actor, projectID, update)
	if err != nil {
		writeServiceError(w, err, "update_project", h.logger)
		return
	}

	writeData(w, http.StatusOK, project, h.logger)
}

// Delete handles DELETE /api/projects/{pid}
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.projectService.Delete(r.Context(), actor, projectID); err != nil {
		writeServiceError(w, err, "delete_project", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Timeline handles GET /api/projects/{pid}/timeline
func (h *ProjectsHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	timeline, err := h.projectService.Timeline(r.Context(), actor, projectID)
	if err != nil {
		writeServiceError(w, err, "project_timeline", h.logger)
		return
	}

	writeData(w, http.StatusOK, timeline, h.logger)
}

// Access handles GET /api/projects/{pid}/access
// Returns the caller's role and what it permits, for the client to shape its UI.
func (h *ProjectsHandler) Access(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.accessService.View(actor)
	if err != nil {
		writeServiceError(w, err, "project_access", h.logger)
		return
	}

	writeData(w, http.StatusOK, view, h.logger)
}
