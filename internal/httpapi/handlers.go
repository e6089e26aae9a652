package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"qualitygate/internal/analysis/session"
	"qualitygate/internal/qgerrors"
	"qualitygate/internal/types"
)

// runAnalysisRequest mirrors the inbound run-analysis command. ProjectPath
// may be omitted if ProjectID is already a registered project; it is then
// resolved from the project registry.
type runAnalysisRequest struct {
	ProjectID     string        `json:"project_id"`
	ProjectPath   string        `json:"project_path"`
	Mode          types.RunMode `json:"mode"`
	SelectedTools []string      `json:"selected_tools"`
}

type stopRequest struct {
	ProjectID string `json:"project_id"`
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.ListTools())
}

func (s *Server) handleRunAnalysis(w http.ResponseWriter, r *http.Request) {
	var req runAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, qgerrors.InvalidInputf("malformed request body: %v", err))
		return
	}
	if req.ProjectID == "" {
		writeError(w, qgerrors.InvalidInputf("project_id is required"))
		return
	}
	if req.Mode == "" {
		req.Mode = types.ModeFull
	}

	projectPath := req.ProjectPath
	if projectPath == "" {
		if s.projects == nil {
			writeError(w, qgerrors.NotFoundf("project %q is not registered", req.ProjectID))
			return
		}
		p, err := s.projects.Get(req.ProjectID)
		if err != nil {
			writeError(w, err)
			return
		}
		projectPath = p.Path
	} else if s.projects != nil {
		_ = s.projects.Save(&types.Project{
			ID:       req.ProjectID,
			Path:     projectPath,
			LastUsed: time.Now(),
		})
	}

	resp, err := s.controller.Start(r.Context(), session.StartRequest{
		SessionID:     req.ProjectID,
		ProjectPath:   projectPath,
		Mode:          req.Mode,
		SelectedTools: req.SelectedTools,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, qgerrors.InvalidInputf("malformed request body: %v", err))
		return
	}
	if req.ProjectID == "" {
		writeError(w, qgerrors.InvalidInputf("project_id is required"))
		return
	}
	resp := s.controller.Stop(r.Context(), req.ProjectID)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("project_id")
	if projectID == "" {
		writeError(w, qgerrors.InvalidInputf("project_id path segment is required"))
		return
	}
	s.ws.ServeSession(w, r, projectID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a qgerrors.Kind to its HTTP status and writes a small
// JSON error body. Kinds that never reach the transport (ToolFailure,
// ToolSkipped, Cancelled) fall through to 500, matching "everything else
// that reaches the transport -> 500".
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch qgerrors.KindOf(err) {
	case qgerrors.InvalidInput:
		status = http.StatusBadRequest
	case qgerrors.NotFound:
		status = http.StatusNotFound
	case qgerrors.Conflict:
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": strings.TrimSpace(err.Error())})
}
