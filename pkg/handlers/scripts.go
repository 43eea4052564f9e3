package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/auth"
	"github.com/scriptsentries/clearance-engine/pkg/clearance"
	"github.com/scriptsentries/clearance-engine/pkg/export"
	"github.com/scriptsentries/clearance-engine/pkg/models"
	"github.com/scriptsentries/clearance-engine/pkg/services"
)

// uploadMemory is how much of a multipart upload is buffered in memory
// before spilling to disk.
const uploadMemory = 8 << 20

// RenameScriptRequest is the body of PATCH /api/projects/{pid}/scripts/{sid}.
type RenameScriptRequest struct {
	VersionName string `json:"versionName"`
}

// ScriptsHandler serves script uploads, views and exports.
type ScriptsHandler struct {
	scriptService  services.ScriptService
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewScriptsHandler creates a new scripts handler. Uploads larger than
// maxUploadBytes are rejected with 413.
func NewScriptsHandler(scriptService services.ScriptService, maxUploadBytes int64, logger *zap.Logger) *ScriptsHandler {
	return &ScriptsHandler{
		scriptService:  scriptService,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// RegisterRoutes registers the scripts handler's routes on the given mux.
func (h *ScriptsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope, membership Middleware) {
	wrap := func(next http.HandlerFunc) http.HandlerFunc {
		return authMiddleware.RequireAuth(scope(membership(next)))
	}
	mux.HandleFunc("POST /api/projects/{pid}/scripts", wrap(auth.RequireCapability(clearance.CapUploadScript)(h.Upload)))
	mux.HandleFunc("GET /api/projects/{pid}/scripts/{sid}", wrap(h.Get))
	mux.HandleFunc("PATCH /api/projects/{pid}/scripts/{sid}", wrap(h.Rename))
	mux.HandleFunc("DELETE /api/projects/{pid}/scripts/{sid}", wrap(h.Delete))
	mux.HandleFunc("GET /api/projects/{pid}/scripts/{sid}/export", wrap(h.Export))
}

// Upload handles POST /api/projects/{pid}/scripts
// Expects multipart form data with a "file" part and an optional "versionName".
// Analysis runs before the response is written.
func (h *ScriptsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large",
				fmt.Sprintf("Uploads are limited to %d MB", h.maxUploadBytes>>20), h.logger)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_upload", "Expected multipart form data", h.logger)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.Error("Failed to remove multipart temp files", zap.Error(err))
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_file", "A PDF file is required", h.logger)
		return
	}
	defer file.Close()

	detail, err := h.scriptService.Upload(r.Context(), actor, projectID, services.UploadRequest{
		Filename:    header.Filename,
		VersionName: r.FormValue("versionName"),
		Content:     file,
	})
	if err != nil {
		writeServiceError(w, err, "upload_script", h.logger)
		return
	}

	writeData(w, http.StatusCreated, detail, h.logger)
}

// Get handles GET /api/projects/{pid}/scripts/{sid}
// Optional query filters: severity, status, category.
func (h *ScriptsHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, scriptID, ok := ParseProjectAndScriptIDs(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	filter, err := parseRiskFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_filter", err.Error(), h.logger)
		return
	}

	detail, err := h.scriptService.Get(r.Context(), actor, projectID, scriptID, filter)
	if err != nil {
		writeServiceError(w, err, "get_script", h.logger)
		return
	}

	writeData(w, http.StatusOK, detail, h.logger)
}

// Rename handles PATCH /api/projects/{pid}/scripts/{sid}
func (h *ScriptsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	projectID, scriptID, ok := ParseProjectAndScriptIDs(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	var req RenameScriptRequest
	if !decodeBody(w, r, &req, h.logger) {
		return
	}

	script, err := h.scriptService.Rename(r.Context(), actor, projectID, scriptID, req.VersionName)
	if err != nil {
		writeServiceError(w, err, "rename_script", h.logger)
		return
	}

	writeData(w, http.StatusOK, script, h.logger)
}

// Delete handles DELETE /api/projects/{pid}/scripts/{sid}
func (h *ScriptsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	projectID, scriptID, ok := ParseProjectAndScriptIDs(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.scriptService.Delete(r.Context(), actor, projectID, scriptID); err != nil {
		writeServiceError(w, err, "delete_script", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /api/projects/{pid}/scripts/{sid}/export
// Streams the clearance report as an .xlsx attachment.
func (h *ScriptsHandler) Export(w http.ResponseWriter, r *http.Request) {
	projectID, scriptID, ok := ParseProjectAndScriptIDs(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	file, err := h.scriptService.Export(r.Context(), actor, projectID, scriptID)
	if err != nil {
		writeServiceError(w, err, "export_script", h.logger)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(file.Content.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := file.Content.WriteTo(w); err != nil {
		h.logger.Error("Failed to write export", zap.String("script_id", scriptID.String()), zap.Error(err))
	}
}

// parseRiskFilter reads the severity, status and category query parameters.
// Values must match exactly; unknown values are rejected rather than ignored.
func parseRiskFilter(r *http.Request) (models.RiskFilter, error) {
	q := r.URL.Query()
	var f models.RiskFilter

	if v := strings.TrimSpace(q.Get("severity")); v != "" {
		s := models.Severity(strings.ToUpper(v))
		if s.Rank() > models.SeverityLow.Rank() {
			return f, fmt.Errorf("unknown severity %q", v)
		}
		f.Severity = s
	}

	if v := strings.TrimSpace(q.Get("status")); v != "" {
		st, err := clearance.ParseStatus(strings.ToUpper(v))
		if err != nil {
			return f, fmt.Errorf("unknown status %q", v)
		}
		f.Status = st
	}

	if v := strings.TrimSpace(q.Get("category")); v != "" {
		c := models.RiskCategory(strings.ToUpper(v))
		if !slices.Contains(models.RiskCategories, c) {
			return f, fmt.Errorf("unknown category %q", v)
		}
		f.Category = c
	}

	return f, nil
}
