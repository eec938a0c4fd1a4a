package assetstore

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
)

// Handler serves stored assets at /{folder}/{file}.
type Handler struct {
	dir string
}

// NewHandler serves the files of l.
func NewHandler(l *Local) *Handler {
	return &Handler{dir: l.Dir()}
}

// ServeFile handles GET /assets/{folder}/{file}.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	folder := chi.URLParam(r, "folder")
	file := chi.URLParam(r, "file")
	if !safeSegment(folder) || !safeSegment(file) {
		http.Error(w, "invalid asset path", http.StatusBadRequest)
		return
	}
	abs := filepath.Join(h.dir, folder, file)
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, abs)
}
