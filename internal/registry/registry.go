// Package registry persists city records, one logical collection per category.
//
// Uniqueness of name, slug and component identifier within a category is
// enforced by the storage engine at insert/update time and surfaced as
// apperr.ErrConflict. No read-then-write checks are made.
package registry

import (
	"context"
	"strings"

	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/models"
	"github.com/starford/citypages/internal/slug"
)

// Registry is the record store of one category.
type Registry interface {
	// ListActive returns active records, newest first.
	ListActive(ctx context.Context) ([]models.City, error)
	// ListAll returns every record, newest first.
	ListAll(ctx context.Context) ([]models.City, error)
	// FindBySlug resolves a full slug, a bare clean segment, a legacy slug
	// or a plain city name. Inactive records are only returned when
	// includeInactive is set.
	FindBySlug(ctx context.Context, s string, includeInactive bool) (*models.City, error)
	// FindByID returns a record in any state.
	FindByID(ctx context.Context, id string) (*models.City, error)
	// Create inserts c, assigning ID and timestamps.
	Create(ctx context.Context, c *models.City) error
	// Update replaces the mutable fields of the record with c.ID.
	Update(ctx context.Context, c *models.City) error
	// SetProvisionState records the provisioning phase of a record.
	SetProvisionState(ctx context.Context, id, state string) error
	// Delete removes the record with id.
	Delete(ctx context.Context, id string) error
}

// Backend hands out per-category registries over one connection.
type Backend interface {
	Registry(cat category.Category) Registry
	Close() error
}

// lookup holds the candidates FindBySlug tries, in order.
type lookup struct {
	slugs []string
	names []string
}

// resolve expands a requested slug into exact-slug candidates followed by
// case-insensitive name candidates: "indore" is tried as the slug
// "taxi-service-in-indore" and then as the name "indore"; "new-delhi" also
// as the name "new delhi".
func resolve(s string, cat category.Category) lookup {
	var l lookup
	l.slugs = appendUnique(l.slugs, s)

	bare := slug.StripPrefix(s, cat)
	if bare == "" {
		return l
	}
	l.slugs = appendUnique(l.slugs, cat.SlugPrefix+bare)
	l.names = appendUnique(l.names, bare)
	l.names = appendUnique(l.names, strings.ReplaceAll(bare, "-", " "))
	return l
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func nonNil(list []models.City) []models.City {
	if list == nil {
		return []models.City{}
	}
	return list
}
