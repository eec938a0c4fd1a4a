// Package provision coordinates the city registry and the page files on disk.
//
// Create, update and delete run as sagas: each step that changes state has a
// compensating action, and the record's provision state tracks how far the
// page write got. A record left "pending" or "failed" is repaired by the
// reconciler.
package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/citypages/internal/apperr"
	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/metrics"
	"github.com/starford/citypages/internal/models"
	"github.com/starford/citypages/internal/naming"
	"github.com/starford/citypages/internal/pagegen"
	"github.com/starford/citypages/internal/registry"
	"github.com/starford/citypages/internal/routetable"
	"github.com/starford/citypages/internal/slug"
	"github.com/starford/citypages/internal/sse"
	"github.com/starford/citypages/internal/storage"
)

// Publisher receives city change notifications.
type Publisher interface {
	PublishCityEvent(kind string, ev sse.CityEvent)
}

// CreateResult is returned by Create.
type CreateResult struct {
	City     *models.City      `json:"city"`
	PagePath string            `json:"pagePath"`
	Routes   models.RouteHints `json:"routes"`
	Warnings []string          `json:"warnings,omitempty"`
}

// UpdateResult is returned by Update.
type UpdateResult struct {
	City     *models.City `json:"city"`
	PagePath string       `json:"pagePath"`
	Renamed  bool         `json:"renamed"`
	Warnings []string     `json:"warnings,omitempty"`
}

// Service provisions city pages for every category.
type Service struct {
	backend registry.Backend
	store   storage.Provider
	events  Publisher
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the event sink.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a provisioning service.
func NewService(backend registry.Backend, store storage.Provider, opts ...Option) *Service {
	s := &Service{
		backend: backend,
		store:   store,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the registry of cat to read-only callers.
func (s *Service) Registry(cat category.Category) registry.Registry {
	return s.backend.Registry(cat)
}

// Store exposes the page store.
func (s *Service) Store() storage.Provider {
	return s.store
}

// ListActive returns the active cities of cat, newest first.
func (s *Service) ListActive(ctx context.Context, cat category.Category) ([]models.City, error) {
	return s.backend.Registry(cat).ListActive(ctx)
}

// ListAll returns every city of cat, newest first.
func (s *Service) ListAll(ctx context.Context, cat category.Category) ([]models.City, error) {
	return s.backend.Registry(cat).ListAll(ctx)
}

// GetPublic resolves a slug for anonymous callers; inactive cities are not found.
func (s *Service) GetPublic(ctx context.Context, cat category.Category, slug string) (*models.City, error) {
	return s.backend.Registry(cat).FindBySlug(ctx, slug, false)
}

// GetAdmin resolves a slug including inactive cities.
func (s *Service) GetAdmin(ctx context.Context, cat category.Category, slug string) (*models.City, error) {
	return s.backend.Registry(cat).FindBySlug(ctx, slug, true)
}

// GetByID returns a city in any state.
func (s *Service) GetByID(ctx context.Context, cat category.Category, id string) (*models.City, error) {
	return s.backend.Registry(cat).FindByID(ctx, id)
}

// Routes projects the active cities of cat into route entries.
func (s *Service) Routes(ctx context.Context, cat category.Category) ([]routetable.Entry, error) {
	return routetable.Project(ctx, s.backend.Registry(cat), cat, s.logger)
}

// PagePath returns where the page of c lives relative to the pages root.
func PagePath(c *models.City, cat category.Category) string {
	return path.Join(cat.Dir, c.Component+pagegen.Ext)
}

// identity is the derived naming of a city.
type identity struct {
	name      string
	slug      string
	component string
}

func deriveIdentity(raw string, cat category.Category) (identity, error) {
	name, err := naming.Normalize(raw)
	if err != nil {
		return identity{}, err
	}
	full, err := slug.Full(name, cat)
	if err != nil {
		return identity{}, err
	}
	comp, err := pagegen.ComponentName(name, cat)
	if err != nil {
		return identity{}, err
	}
	return identity{name: name, slug: full, component: comp}, nil
}

func (s *Service) observe(cat category.Category, op string, start time.Time, outcome *string) {
	metrics.ProvisionDuration.WithLabelValues(cat.Key, op).Observe(time.Since(start).Seconds())
	metrics.ProvisionOperations.WithLabelValues(cat.Key, op, *outcome).Inc()
}

func rejectedOr(err error, fallback string) string {
	if errors.Is(err, apperr.ErrValidation) || errors.Is(err, apperr.ErrConflict) || errors.Is(err, apperr.ErrNotFound) {
		return metrics.OutcomeRejected
	}
	return fallback
}

// Create validates and persists a new city, then writes its page. If the page
// cannot be written the record is removed again.
func (s *Service) Create(ctx context.Context, cat category.Category, in Input) (res *CreateResult, err error) {
	outcome := metrics.OutcomeOK
	defer s.observe(cat, "create", time.Now(), &outcome)
	defer func() {
		if err != nil && outcome == metrics.OutcomeOK {
			outcome = rejectedOr(err, metrics.OutcomeFailed)
		}
	}()

	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: city name is required", apperr.ErrValidation)
	}
	id, err := deriveIdentity(*in.Name, cat)
	if err != nil {
		return nil, err
	}

	rec := &models.City{
		Name:          id.name,
		Slug:          id.slug,
		Component:     id.component,
		IsActive:      true,
		CategoryTypes: []models.CategoryType{},
		ServiceAreas:  []string{},
	}
	warnings := s.apply(rec, in, cat, true)
	title, desc, kw := cat.SEO(id.name)
	if rec.SEOTitle == "" {
		rec.SEOTitle = title
	}
	if rec.SEODescription == "" {
		rec.SEODescription = desc
	}
	if rec.MetaKeywords == "" {
		rec.MetaKeywords = kw
	}
	rec.ProvisionState = models.ProvisionPending

	content, err := pagegen.Render(id.name, cat, id.slug)
	if err != nil {
		return nil, err
	}
	reg := s.backend.Registry(cat)
	pagePath := PagePath(rec, cat)
	sg := newSaga(cat, "create", s.logger)

	if err := sg.run(ctx, step{
		name: "persist",
		do:   func(ctx context.Context) error { return reg.Create(ctx, rec) },
		undo: func(ctx context.Context) error { return reg.Delete(ctx, rec.ID) },
	}); err != nil {
		return nil, unwrapStep(err)
	}

	if err := sg.run(ctx, step{
		name: "write-page",
		do:   func(context.Context) error { return s.store.Write(pagePath, content) },
		undo: func(context.Context) error { return s.store.Delete(pagePath) },
	}); err != nil {
		outcome = metrics.OutcomeCompensated
		if cerr := sg.compensate(ctx); cerr != nil {
			outcome = metrics.OutcomeFailed
			s.markFailed(ctx, reg, cat, rec.ID)
		}
		return nil, fmt.Errorf("%w: write %s: %v", apperr.ErrFilesystem, pagePath, unwrapStep(err))
	}
	metrics.PagesWritten.WithLabelValues(cat.Key).Inc()

	s.markReady(ctx, reg, cat, rec)
	s.refreshManifest(ctx, cat)
	s.publish(sse.KindCreated, cat, rec)

	s.logger.Info("city provisioned",
		slog.String("category", cat.Key),
		slog.String("id", rec.ID),
		slog.String("slug", rec.Slug),
		slog.String("page", pagePath))

	short := slug.Short(rec.Name)
	return &CreateResult{
		City:     rec,
		PagePath: pagePath,
		Routes: models.RouteHints{
			FullSlug:  cat.PublicPath(rec.Slug),
			ShortSlug: cat.PublicPath(short),
		},
		Warnings: warnings,
	}, nil
}

// Update applies the supplied fields to a city. A changed name re-derives the
// slug and moves the page file; other fields never touch the file system.
func (s *Service) Update(ctx context.Context, cat category.Category, cityID string, in Input) (res *UpdateResult, err error) {
	outcome := metrics.OutcomeOK
	defer s.observe(cat, "update", time.Now(), &outcome)
	defer func() {
		if err != nil && outcome == metrics.OutcomeOK {
			outcome = rejectedOr(err, metrics.OutcomeFailed)
		}
	}()

	reg := s.backend.Registry(cat)
	cur, err := reg.FindByID(ctx, cityID)
	if err != nil {
		return nil, err
	}
	prev := *cur
	next := *cur

	renamed := false
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, fmt.Errorf("%w: city name cannot be empty", apperr.ErrValidation)
		}
		id, err := deriveIdentity(*in.Name, cat)
		if err != nil {
			return nil, err
		}
		if id.name != cur.Name {
			next.Name, next.Slug, next.Component = id.name, id.slug, id.component
			renamed = true
		}
	}
	warnings := s.apply(&next, in, cat, false)

	oldPath := PagePath(&prev, cat)
	newPath := PagePath(&next, cat)
	var content []byte
	if renamed {
		next.ProvisionState = models.ProvisionPending
		if content, err = pagegen.Render(next.Name, cat, next.Slug); err != nil {
			return nil, err
		}
	}

	sg := newSaga(cat, "update", s.logger)
	if err := sg.run(ctx, step{
		name: "persist",
		do:   func(ctx context.Context) error { return reg.Update(ctx, &next) },
		undo: func(ctx context.Context) error {
			restored := prev
			return reg.Update(ctx, &restored)
		},
	}); err != nil {
		return nil, unwrapStep(err)
	}

	if renamed {
		undoWrite := func(context.Context) error { return s.store.Delete(newPath) }
		if newPath == oldPath {
			// Same file, different name: restore the previous rendering.
			undoWrite = func(context.Context) error {
				old, err := pagegen.Render(prev.Name, cat, prev.Slug)
				if err != nil {
					return err
				}
				return s.store.Write(oldPath, old)
			}
		}
		if err := sg.run(ctx, step{
			name: "write-page",
			do:   func(context.Context) error { return s.store.Write(newPath, content) },
			undo: undoWrite,
		}); err != nil {
			outcome = metrics.OutcomeCompensated
			if cerr := sg.compensate(ctx); cerr != nil {
				outcome = metrics.OutcomeFailed
				s.markFailed(ctx, reg, cat, next.ID)
			}
			return nil, fmt.Errorf("%w: write %s: %v", apperr.ErrFilesystem, newPath, unwrapStep(err))
		}
		metrics.PagesWritten.WithLabelValues(cat.Key).Inc()

		if newPath != oldPath {
			if err := s.store.Delete(oldPath); err != nil {
				// The stale page is an orphan now; the reconciler removes it.
				s.logger.Warn("old page not removed",
					slog.String("category", cat.Key),
					slog.String("page", oldPath),
					slog.String("error", err.Error()))
			}
		}
		s.markReady(ctx, reg, cat, &next)
	}

	s.refreshManifest(ctx, cat)
	s.publish(sse.KindUpdated, cat, &next)

	s.logger.Info("city updated",
		slog.String("category", cat.Key),
		slog.String("id", next.ID),
		slog.String("slug", next.Slug),
		slog.Bool("renamed", renamed))

	return &UpdateResult{City: &next, PagePath: newPath, Renamed: renamed, Warnings: warnings}, nil
}

// Delete removes a city's page and then its record. If the page cannot be
// removed the record is kept so both stay consistent.
func (s *Service) Delete(ctx context.Context, cat category.Category, cityID string) (err error) {
	outcome := metrics.OutcomeOK
	defer s.observe(cat, "delete", time.Now(), &outcome)
	defer func() {
		if err != nil {
			outcome = rejectedOr(err, metrics.OutcomeFailed)
		}
	}()

	reg := s.backend.Registry(cat)
	cur, err := reg.FindByID(ctx, cityID)
	if err != nil {
		return err
	}

	pagePath := PagePath(cur, cat)
	if err := s.store.Delete(pagePath); err != nil {
		return fmt.Errorf("%w: remove %s: %v", apperr.ErrFilesystem, pagePath, err)
	}
	if err := reg.Delete(ctx, cur.ID); err != nil {
		// The page is gone but the record stays; the reconciler rewrites it.
		return err
	}

	s.refreshManifest(ctx, cat)
	s.publish(sse.KindDeleted, cat, cur)

	s.logger.Info("city deleted",
		slog.String("category", cat.Key),
		slog.String("id", cur.ID),
		slog.String("slug", cur.Slug))
	return nil
}

// apply copies the optional fields of in onto rec. On create a malformed
// JSON list becomes empty; on update the stored value is kept. Both cases
// are logged and reported.
func (s *Service) apply(rec *models.City, in Input, cat category.Category, creating bool) []string {
	var warnings []string
	fallback := "kept existing value"
	if creating {
		fallback = "using empty list"
	}

	if in.Description != nil {
		rec.Description = *in.Description
	}
	if in.Content != nil {
		rec.Content = *in.Content
	}
	if in.Image != nil {
		img := *in.Image
		rec.Image = &img
	}
	if in.IsActive != nil {
		rec.IsActive = *in.IsActive
	}
	if in.SEOTitle != nil {
		rec.SEOTitle = *in.SEOTitle
	}
	if in.SEODescription != nil {
		rec.SEODescription = *in.SEODescription
	}
	if in.MetaKeywords != nil {
		rec.MetaKeywords = *in.MetaKeywords
	}

	if present(in.CategoryTypes) {
		types, itemWarnings, ok := parseCategoryTypes(*in.CategoryTypes, cat)
		warnings = append(warnings, itemWarnings...)
		if ok {
			rec.CategoryTypes = types
		} else {
			warnings = append(warnings, fmt.Sprintf("%s: malformed JSON, %s", cat.TypesField, fallback))
		}
	}
	if present(in.ServiceAreas) {
		if areas, ok := parseServiceAreas(*in.ServiceAreas); ok {
			rec.ServiceAreas = areas
		} else {
			warnings = append(warnings, fmt.Sprintf("serviceAreas: malformed JSON, %s", fallback))
		}
	}

	for _, w := range warnings {
		s.logger.Warn("lenient field parsing",
			slog.String("category", cat.Key),
			slog.String("city", rec.Name),
			slog.String("detail", w))
	}
	return warnings
}

func (s *Service) markReady(ctx context.Context, reg registry.Registry, cat category.Category, rec *models.City) {
	if err := reg.SetProvisionState(context.WithoutCancel(ctx), rec.ID, models.ProvisionReady); err != nil {
		s.logger.Warn("provision state not recorded",
			slog.String("category", cat.Key),
			slog.String("id", rec.ID),
			slog.String("error", err.Error()))
		return
	}
	rec.ProvisionState = models.ProvisionReady
}

func (s *Service) markFailed(ctx context.Context, reg registry.Registry, cat category.Category, id string) {
	if err := reg.SetProvisionState(context.WithoutCancel(ctx), id, models.ProvisionFailed); err != nil {
		s.logger.Error("city left in unknown provision state",
			slog.String("category", cat.Key),
			slog.String("id", id),
			slog.String("error", err.Error()))
	}
}

// RefreshManifest regenerates the route manifest of cat.
func (s *Service) RefreshManifest(ctx context.Context, cat category.Category) error {
	entries, err := s.Routes(ctx, cat)
	if err != nil {
		return err
	}
	data, err := pagegen.RenderManifest(cat, routetable.Manifest(entries))
	if err != nil {
		return err
	}
	return s.store.Write(pagegen.ManifestPath(cat), data)
}

func (s *Service) refreshManifest(ctx context.Context, cat category.Category) {
	if err := s.RefreshManifest(ctx, cat); err != nil {
		s.logger.Warn("route manifest not refreshed",
			slog.String("category", cat.Key),
			slog.String("error", err.Error()))
	}
}

func (s *Service) publish(kind string, cat category.Category, rec *models.City) {
	if s.events == nil {
		return
	}
	s.events.PublishCityEvent(kind, sse.CityEvent{Category: cat.Key, ID: rec.ID, Slug: rec.Slug})
}

// unwrapStep drops the step-name prefix added by saga.run while keeping the
// error chain.
func unwrapStep(err error) error {
	if u := errors.Unwrap(err); u != nil {
		return u
	}
	return err
}
