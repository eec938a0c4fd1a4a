package api

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/citypages/internal/apperr"
	"github.com/starford/citypages/internal/assetstore"
	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/provision"
	"github.com/starford/citypages/internal/reconcile"
	"github.com/starford/citypages/internal/routetable"
)

const maxUploadBytes = 20 << 20 // 20 MB

// Handler holds API route handlers.
type Handler struct {
	svc     *provision.Service
	assets  assetstore.Store
	verbose bool
	logger  *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: d.Service, assets: d.Assets, verbose: d.Verbose, logger: logger}
}

// cityHandler serves the routes of one category.
type cityHandler struct {
	*Handler
	cat category.Category
}

func (h *Handler) forCategory(cat category.Category) *cityHandler {
	return &cityHandler{Handler: h, cat: cat}
}

// ListActive handles GET /api/{c}-cities.
//
//	@Summary	List active cities of a category
//	@Tags		cities
//	@Produce	json
//	@Success	200	{array}	models.City
//	@Router		/{category}-cities [get]
func (h *cityHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	cities, err := h.svc.ListActive(r.Context(), h.cat)
	if err != nil {
		h.writeError(w, h.cat, err)
		return
	}
	writeJSON(w, http.StatusOK, cities)
}

// GetPublic handles GET /api/{c}-cities/{slug}. Inactive cities are not found.
//
//	@Summary	Get an active city by slug
//	@Tags		cities
//	@Produce	json
//	@Param		slug	path		string	true	"Full slug, bare name segment or city name"
//	@Success	200		{object}	models.City
//	@Failure	404		{object}	errResponse
//	@Router		/{category}-cities/{slug} [get]
func (h *cityHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetPublic(r.Context(), h.cat, chi.URLParam(r, "slug"))
	if err != nil {
		h.writeError(w, h.cat, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// ListAll handles GET /api/admin/{c}-cities.
func (h *cityHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	cities, err := h.svc.ListAll(r.Context(), h.cat)
	if err != nil {
		h.writeError(w, h.cat, err)
		return
	}
	writeJSON(w, http.StatusOK, cities)
}

// GetAdmin handles GET /api/admin/{c}-cities/by-slug/{slug}.
func (h *cityHandler) GetAdmin(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetAdmin(r.Context(), h.cat, chi.URLParam(r, "slug"))
	if err != nil {
		h.writeError(w, h.cat, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GetByID handles GET /api/admin/{c}-cities/{id}.
func (h *cityHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetByID(r.Context(), h.cat, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, h.cat, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Routes handles GET /api/admin/{c}-cities/routes. The body is a bare array
// so client routers can consume it directly.
func (h *cityHandler) Routes(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Routes(r.Context(), h.cat)
	if err != nil {
		h.writeError(w, h.cat, err)
		return
	}
	if entries == nil {
		entries = []routetable.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Create handles POST /api/admin/{c}-cities.
//
//	@Summary	Create a city and generate its page
//	@Tags		cities
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		name			formData	string	true	"City name"
//	@Param		categoryTypes	formData	string	false	"JSON array of sub-offerings"
//	@Param		serviceAreas	formData	string	false	"JSON array of area names"
//	@Param		image			formData	file	false	"City image (jpg, png)"
//	@Success	201				{object}	CreateCityResponse
//	@Failure	400				{object}	errResponse
//	@Security	BearerAuth
//	@Router		/admin/{category}-cities [post]
func (h *cityHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := h.parseInput(r)
	if err != nil {
		h.writeError(w, h.cat, err)
		return
	}
	res, err := h.svc.Create(r.Context(), h.cat, in)
	if err != nil {
		h.writeError(w, h.cat, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateCityResponse{
		Message:  h.cat.Title + " city page created successfully",
		City:     res.City,
		PagePath: res.PagePath,
		Routes:   res.Routes,
		Warnings: res.Warnings,
	})
}

// Update handles PUT /api/admin/{c}-cities/{id}. Absent fields are left
// unchanged.
//
//	@Summary	Update a city
//	@Tags		cities
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		id	path		string	true	"City id"
//	@Success	200	{object}	UpdateCityResponse
//	@Failure	400	{object}	errResponse
//	@Failure	404	{object}	errResponse
//	@Security	BearerAuth
//	@Router		/admin/{category}-cities/{id} [put]
func (h *cityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// Fail fast so a missing city never triggers an image upload.
	if _, err := h.svc.GetByID(r.Context(), h.cat, id); err != nil {
		h.writeError(w, h.cat, err)
		return
	}
	in, err := h.parseInput(r)
	if err != nil {
		h.writeError(w, h.cat, err)
		return
	}
	res, err := h.svc.Update(r.Context(), h.cat, id, in)
	if err != nil {
		h.writeError(w, h.cat, err)
		return
	}
	writeJSON(w, http.StatusOK, UpdateCityResponse{
		Message:  h.cat.Title + " city updated successfully",
		City:     res.City,
		PagePath: res.PagePath,
		Renamed:  res.Renamed,
		Warnings: res.Warnings,
	})
}

// Delete handles DELETE /api/admin/{c}-cities/{id}.
func (h *cityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), h.cat, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, h.cat, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: h.cat.Title + " city deleted successfully"})
}

// Reconcile handles POST /api/admin/reconcile.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rep, err := reconcile.Sync(r.Context(), h.svc, category.All(), h.logger)
	if err != nil {
		h.logger.Error("reconcile failed", slog.String("error", err.Error()))
		body := errorBody("Reconcile failed")
		if h.verbose {
			body.Error = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, body)
		return
	}
	writeJSON(w, http.StatusOK, ReconcileResponse{Report: rep})
}

// parseInput reads a multipart or urlencoded form into a provision.Input.
// Only fields present in the form are set. An uploaded image file is stored
// first and its URL takes precedence over an "image" text field.
func (h *cityHandler) parseInput(r *http.Request) (provision.Input, error) {
	var in provision.Input

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return in, fmt.Errorf("%w: invalid multipart form", apperr.ErrValidation)
		}
	} else if err := r.ParseForm(); err != nil {
		return in, fmt.Errorf("%w: invalid form body", apperr.ErrValidation)
	}

	field := func(keys ...string) *string {
		for _, k := range keys {
			if vs, ok := r.PostForm[k]; ok && len(vs) > 0 {
				v := vs[0]
				return &v
			}
		}
		return nil
	}

	in.Name = field("name")
	in.Description = field("description")
	in.Content = field("content")
	in.Image = field("image")
	in.CategoryTypes = field(h.cat.TypesField, "categoryTypes")
	in.ServiceAreas = field("serviceAreas")
	in.SEOTitle = field("seoTitle")
	in.SEODescription = field("seoDescription")
	in.MetaKeywords = field("metaKeywords")

	if raw := field("isActive"); raw != nil {
		b, err := strconv.ParseBool(strings.TrimSpace(*raw))
		if err != nil {
			return in, fmt.Errorf("%w: isActive must be true or false", apperr.ErrValidation)
		}
		in.IsActive = &b
	}

	if r.MultipartForm != nil && len(r.MultipartForm.File["image"]) > 0 {
		url, err := h.uploadImage(r)
		if err != nil {
			return in, err
		}
		in.Image = &url
	}
	return in, nil
}

func (h *cityHandler) uploadImage(r *http.Request) (string, error) {
	if h.assets == nil {
		return "", fmt.Errorf("%w: image uploads are not configured", apperr.ErrValidation)
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return "", fmt.Errorf("%w: unreadable image upload", apperr.ErrValidation)
	}
	defer file.Close()

	url, err := h.assets.Put(r.Context(), h.cat.AssetFolder, header.Filename, file)
	if err != nil {
		if !errors.Is(err, assetstore.ErrTimeout) && !errors.Is(err, assetstore.ErrInvalidFile) {
			err = fmt.Errorf("%w: %v", assetstore.ErrInvalidFile, err)
		}
		return "", err
	}
	h.logger.Info("city image stored", slog.String("category", h.cat.Key), slog.String("url", url))
	return url, nil
}
