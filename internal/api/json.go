package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/citypages/internal/apperr"
	"github.com/starford/citypages/internal/assetstore"
	"github.com/starford/citypages/internal/category"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Message: msg}
}

// writeError maps err onto a status and message. Internal detail is attached
// only when verbose is set.
func (h *Handler) writeError(w http.ResponseWriter, cat category.Category, err error) {
	var (
		status int
		msg    string
	)
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status, msg = http.StatusBadRequest, detail(err, apperr.ErrValidation)
	case errors.Is(err, apperr.ErrConflict):
		status, msg = http.StatusBadRequest, cat.Title+" city already exists"
	case errors.Is(err, apperr.ErrNotFound):
		status, msg = http.StatusNotFound, cat.Title+" city not found"
	case errors.Is(err, assetstore.ErrTimeout):
		status, msg = http.StatusRequestTimeout, "Image upload timed out"
	case errors.Is(err, assetstore.ErrInvalidFile):
		status, msg = http.StatusInternalServerError, "Image upload failed"
	case errors.Is(err, apperr.ErrFilesystem):
		status, msg = http.StatusInternalServerError, "Failed to update the "+cat.Key+" city page"
	default:
		status, msg = http.StatusInternalServerError, "Internal server error"
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", slog.String("category", cat.Key), slog.String("error", err.Error()))
	}

	body := errorBody(msg)
	if h.verbose {
		body.Error = err.Error()
	}
	writeJSON(w, status, body)
}

// detail returns the text following sentinel in err, e.g. "name is required"
// for "validation failed: name is required".
func detail(err, sentinel error) string {
	text := err.Error()
	if _, after, ok := strings.Cut(text, sentinel.Error()+": "); ok && after != "" {
		return after
	}
	return text
}
