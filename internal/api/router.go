package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/citypages/internal/assetstore"
	"github.com/starford/citypages/internal/auth"
	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/provision"
)

// Deps are the collaborators of the API.
type Deps struct {
	Service  *provision.Service
	Verifier *auth.Verifier
	// Assets receives uploaded city images. Optional: without it image
	// files are rejected and only image URLs are accepted.
	Assets assetstore.Store
	// Events, if non-nil, is mounted at GET /events.
	Events http.Handler
	// Verbose adds internal error detail to error responses.
	Verbose bool
	Logger  *slog.Logger
}

// NewRouter creates a chi router with all API routes mounted. Public reads
// are open; everything under /admin requires admin credentials.
func NewRouter(d Deps) chi.Router {
	h := NewHandler(d)

	r := chi.NewRouter()
	r.Use(limitBody(maxUploadBytes))

	for _, cat := range category.All() {
		ch := h.forCategory(cat)
		r.Get("/"+cat.Collection, ch.ListActive)
		r.Get("/"+cat.Collection+"/{slug}", ch.GetPublic)
	}

	r.Route("/admin", func(r chi.Router) {
		r.Use(d.Verifier.RequireAdmin)
		r.Use(noStore)

		for _, cat := range category.All() {
			ch := h.forCategory(cat)
			r.Route("/"+cat.Collection, func(r chi.Router) {
				r.Get("/", ch.ListAll)
				r.Post("/", ch.Create)
				r.Get("/routes", ch.Routes)
				r.Get("/by-slug/{slug}", ch.GetAdmin)
				r.Get("/{id}", ch.GetByID)
				r.Put("/{id}", ch.Update)
				r.Delete("/{id}", ch.Delete)
			})
		}
		r.Post("/reconcile", h.Reconcile)
	})

	if d.Events != nil {
		r.With(d.Verifier.RequireAdmin).Get("/events", d.Events.ServeHTTP)
	}

	return r
}
