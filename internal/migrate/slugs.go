// Package migrate rewrites city records stored under retired slug schemes.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/citypages/internal/apperr"
	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/pagegen"
	"github.com/starford/citypages/internal/provision"
	"github.com/starford/citypages/internal/slug"
)

// Summary reports the outcome of a migration run.
type Summary struct {
	Total    int `json:"total"`
	Migrated int `json:"migrated"`
	Skipped  int `json:"skipped"`
}

// Options tune a migration run.
type Options struct {
	// DryRun reports what would change without writing anything.
	DryRun bool
}

// Slugs moves every record of cat whose slug is in the legacy scheme to the
// current one and regenerates its page. Records already on the current
// scheme, and records whose new slug belongs to another city, are skipped.
func Slugs(ctx context.Context, svc *provision.Service, cat category.Category, opts Options, logger *slog.Logger) (Summary, error) {
	var sum Summary
	if !cat.HasLegacyScheme() {
		return sum, nil
	}

	reg := svc.Registry(cat)
	records, err := reg.ListAll(ctx)
	if err != nil {
		return sum, fmt.Errorf("migrate %s: %w", cat, err)
	}
	sum.Total = len(records)

	owners := make(map[string]string, len(records))
	for _, c := range records {
		owners[c.Slug] = c.ID
	}

	changed := false
	for i := range records {
		c := records[i]
		if !slug.IsLegacy(c.Slug, cat) {
			sum.Skipped++
			continue
		}
		newSlug, err := slug.Full(c.Name, cat)
		if err != nil {
			logger.Warn("migrate: cannot derive slug",
				slog.String("id", c.ID), slog.String("name", c.Name), slog.String("error", err.Error()))
			sum.Skipped++
			continue
		}
		if owner, taken := owners[newSlug]; taken && owner != c.ID {
			logger.Warn("migrate: new slug already owned by another city",
				slog.String("id", c.ID), slog.String("slug", newSlug), slog.String("owner", owner))
			sum.Skipped++
			continue
		}

		logger.Info("migrate: slug",
			slog.String("name", c.Name),
			slog.String("old", c.Slug),
			slog.String("new", newSlug),
			slog.Bool("dry_run", opts.DryRun))
		if opts.DryRun {
			sum.Migrated++
			continue
		}

		oldSlug := c.Slug
		c.Slug = newSlug
		if err := reg.Update(ctx, &c); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				sum.Skipped++
				continue
			}
			return sum, fmt.Errorf("migrate %s: update %s: %w", cat, c.ID, err)
		}
		delete(owners, oldSlug)
		owners[newSlug] = c.ID

		page, err := pagegen.Render(c.Name, cat, c.Slug)
		if err == nil {
			err = svc.Store().Write(provision.PagePath(&c, cat), page)
		}
		if err != nil {
			// The record is migrated; the reconciler rewrites the page.
			logger.Warn("migrate: page not regenerated",
				slog.String("id", c.ID), slog.String("error", err.Error()))
		}
		sum.Migrated++
		changed = true
	}

	if changed {
		if err := svc.RefreshManifest(ctx, cat); err != nil {
			logger.Warn("migrate: manifest not refreshed", slog.String("error", err.Error()))
		}
	}
	return sum, nil
}
