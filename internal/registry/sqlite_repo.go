package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/citypages/internal/apperr"
	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/models"
)

type sqliteRegistry struct {
	*SQLite
	cat category.Category
}

func (r *sqliteRegistry) list(ctx context.Context, activeOnly bool) ([]models.City, error) {
	q := `SELECT ` + cityColumns + ` FROM cities WHERE category = ?`
	if activeOnly {
		q += ` AND is_active = 1`
	}
	q += ` ORDER BY created_at DESC, rowid DESC`

	var rows []cityRow
	if err := r.db.SelectContext(ctx, &rows, q, r.cat.Key); err != nil {
		return nil, fmt.Errorf("registry: list %s: %w", r.cat, err)
	}
	out := make([]models.City, 0, len(rows))
	for _, row := range rows {
		c, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *sqliteRegistry) ListActive(ctx context.Context) ([]models.City, error) {
	return r.list(ctx, true)
}

func (r *sqliteRegistry) ListAll(ctx context.Context) ([]models.City, error) {
	return r.list(ctx, false)
}

// getOne runs a single-row query scoped to the category. sql.ErrNoRows is
// returned unwrapped so callers can fall through to the next candidate.
func (r *sqliteRegistry) getOne(ctx context.Context, where string, includeInactive bool, args ...any) (*models.City, error) {
	q := `SELECT ` + cityColumns + ` FROM cities WHERE category = ? AND ` + where
	if !includeInactive {
		q += ` AND is_active = 1`
	}
	q += ` LIMIT 1`

	var row cityRow
	if err := r.db.GetContext(ctx, &row, q, append([]any{r.cat.Key}, args...)...); err != nil {
		return nil, err
	}
	c, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *sqliteRegistry) FindBySlug(ctx context.Context, s string, includeInactive bool) (*models.City, error) {
	l := resolve(s, r.cat)
	for _, cand := range l.slugs {
		c, err := r.getOne(ctx, `slug = ?`, includeInactive, cand)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("registry: find %s by slug: %w", r.cat, err)
		}
	}
	for _, cand := range l.names {
		c, err := r.getOne(ctx, `name = ? COLLATE NOCASE`, includeInactive, cand)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("registry: find %s by name: %w", r.cat, err)
		}
	}
	return nil, fmt.Errorf("%w: %s city %q", apperr.ErrNotFound, r.cat.Title, s)
}

func (r *sqliteRegistry) FindByID(ctx context.Context, id string) (*models.City, error) {
	c, err := r.getOne(ctx, `id = ?`, true, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s city %s", apperr.ErrNotFound, r.cat.Title, id)
	}
	if err != nil {
		return nil, fmt.Errorf("registry: find %s by id: %w", r.cat, err)
	}
	return c, nil
}

func (r *sqliteRegistry) Create(ctx context.Context, c *models.City) error {
	now := r.now()
	c.ID = uuid.NewString()
	c.Category = r.cat.Key
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.ProvisionState == "" {
		c.ProvisionState = models.ProvisionPending
	}

	row, err := toRow(c)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO cities (`+cityColumns+`)
		VALUES (:id, :category, :name, :slug, :component, :description, :content, :image,
			:category_types, :service_areas, :is_active, :seo_title, :seo_description, :meta_keywords,
			:provision_state, :created_at, :updated_at)
	`, row)
	if err != nil {
		return fmt.Errorf("registry: create %s city: %w", r.cat, mapWriteErr(err))
	}
	return nil
}

func (r *sqliteRegistry) Update(ctx context.Context, c *models.City) error {
	c.UpdatedAt = r.now()
	row, err := toRow(c)
	if err != nil {
		return err
	}
	row.Category = r.cat.Key

	res, err := r.db.NamedExecContext(ctx, `
		UPDATE cities SET
			name            = :name,
			slug            = :slug,
			component       = :component,
			description     = :description,
			content         = :content,
			image           = :image,
			category_types  = :category_types,
			service_areas   = :service_areas,
			is_active       = :is_active,
			seo_title       = :seo_title,
			seo_description = :seo_description,
			meta_keywords   = :meta_keywords,
			provision_state = :provision_state,
			updated_at      = :updated_at
		WHERE id = :id AND category = :category
	`, row)
	if err != nil {
		return fmt.Errorf("registry: update %s city: %w", r.cat, mapWriteErr(err))
	}
	return r.expectOne(res, c.ID)
}

func (r *sqliteRegistry) SetProvisionState(ctx context.Context, id, state string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cities SET provision_state = ? WHERE id = ? AND category = ?`,
		state, id, r.cat.Key)
	if err != nil {
		return fmt.Errorf("registry: set provision state: %w", err)
	}
	return r.expectOne(res, id)
}

func (r *sqliteRegistry) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cities WHERE id = ? AND category = ?`, id, r.cat.Key)
	if err != nil {
		return fmt.Errorf("registry: delete %s city: %w", r.cat, err)
	}
	return r.expectOne(res, id)
}

func (r *sqliteRegistry) expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("registry: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s city %s", apperr.ErrNotFound, r.cat.Title, id)
	}
	return nil
}
