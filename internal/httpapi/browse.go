package httpapi

import (
	"net/http"
	"os"
	"path/filepath"

	"qualitygate/internal/qgerrors"
	"qualitygate/internal/validation"
)

// browseEntry describes one immediate subdirectory of a browsed path.
type browseEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type browseResponse struct {
	Path    string        `json:"path"`
	Entries []browseEntry `json:"entries"`
}

// handleBrowse lists the immediate subdirectories of ?path=, so a UI can
// let a user pick a project root. Read-only: it never follows a request
// outside the directory it is asked to list.
func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, qgerrors.InvalidInputf("path query parameter is required"))
		return
	}
	if !filepath.IsAbs(path) {
		writeError(w, qgerrors.InvalidInputf("path must be absolute"))
		return
	}
	if err := validation.ValidatePath(path); err != nil {
		writeError(w, err)
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		writeError(w, qgerrors.NotFoundf("path %q does not exist", path))
		return
	}
	if !info.IsDir() {
		writeError(w, qgerrors.InvalidInputf("path %q is not a directory", path))
		return
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		writeError(w, qgerrors.Internalf("read directory %q: %v", path, err))
		return
	}

	out := make([]browseEntry, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		out = append(out, browseEntry{Name: e.Name(), Path: filepath.Join(path, e.Name())})
	}
	writeJSON(w, http.StatusOK, browseResponse{Path: path, Entries: out})
}
