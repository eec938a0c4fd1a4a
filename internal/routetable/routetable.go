// Package routetable projects active city records into the route entries the
// frontend registers. It is recomputed on every call and never cached.
package routetable

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/models"
	"github.com/starford/citypages/internal/pagegen"
	"github.com/starford/citypages/internal/slug"
)

// Lister is the part of a registry the projector reads.
type Lister interface {
	ListActive(ctx context.Context) ([]models.City, error)
}

// Entry is the routing tuple of one active city.
type Entry struct {
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	ShortSlug     string `json:"shortSlug"`
	ComponentName string `json:"componentName"`
	FullPath      string `json:"fullPath"`
	ShortPath     string `json:"shortPath"`
	// ShortSlugShared marks a short slug that more than one active city
	// truncates to. Which one a router picks is left to the router.
	ShortSlugShared bool `json:"shortSlugShared,omitempty"`
}

// Project returns one entry per active record of cat, newest first.
func Project(ctx context.Context, l Lister, cat category.Category, logger *slog.Logger) ([]Entry, error) {
	cities, err := l.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("routetable: list %s: %w", cat, err)
	}

	entries := make([]Entry, 0, len(cities))
	seen := make(map[string]int, len(cities))
	for _, c := range cities {
		comp := c.Component
		if comp == "" {
			if comp, err = pagegen.ComponentName(c.Name, cat); err != nil {
				logger.Warn("skipping city without a usable component name",
					slog.String("category", cat.Key), slog.String("id", c.ID), slog.String("error", err.Error()))
				continue
			}
		}
		short := slug.Short(c.Name)
		entries = append(entries, Entry{
			Name:          c.Name,
			Slug:          c.Slug,
			ShortSlug:     short,
			ComponentName: comp,
			FullPath:      cat.PublicPath(c.Slug),
			ShortPath:     cat.PublicPath(short),
		})
		seen[short]++
	}

	for i := range entries {
		if seen[entries[i].ShortSlug] > 1 {
			entries[i].ShortSlugShared = true
		}
	}
	for short, n := range seen {
		if n > 1 {
			logger.Warn("short slug shared by several cities",
				slog.String("category", cat.Key), slog.String("short_slug", short), slog.Int("cities", n))
		}
	}
	return entries, nil
}

// Manifest converts entries into route manifest rows.
func Manifest(entries []Entry) []pagegen.ManifestEntry {
	out := make([]pagegen.ManifestEntry, len(entries))
	for i, e := range entries {
		out[i] = pagegen.ManifestEntry{
			ComponentName: e.ComponentName,
			FullPath:      e.FullPath,
			ShortPath:     e.ShortPath,
		}
	}
	return out
}
