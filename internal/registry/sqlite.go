package registry

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/starford/citypages/internal/apperr"
	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cities (
	id              TEXT PRIMARY KEY,
	category        TEXT NOT NULL,
	name            TEXT NOT NULL,
	slug            TEXT NOT NULL,
	component       TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	content         TEXT NOT NULL DEFAULT '',
	image           TEXT,
	category_types  TEXT NOT NULL DEFAULT '[]',
	service_areas   TEXT NOT NULL DEFAULT '[]',
	is_active       INTEGER NOT NULL DEFAULT 1,
	seo_title       TEXT NOT NULL DEFAULT '',
	seo_description TEXT NOT NULL DEFAULT '',
	meta_keywords   TEXT NOT NULL DEFAULT '',
	provision_state TEXT NOT NULL DEFAULT 'pending',
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL,
	UNIQUE(category, name COLLATE NOCASE),
	UNIQUE(category, slug),
	UNIQUE(category, component)
);

CREATE INDEX IF NOT EXISTS idx_cities_category_created ON cities(category, created_at DESC);
`

const cityColumns = `id, category, name, slug, component, description, content, image,
	category_types, service_areas, is_active, seo_title, seo_description, meta_keywords,
	provision_state, created_at, updated_at`

// SQLite is the default Backend.
type SQLite struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ Backend = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database file and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("registry: open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: ping: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: apply schema: %w", err)
	}
	return NewSQLite(db), nil
}

// NewSQLite wraps an existing connection without touching the schema.
func NewSQLite(db *sqlx.DB) *SQLite {
	return &SQLite{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Registry returns the registry of cat.
func (s *SQLite) Registry(cat category.Category) Registry {
	return &sqliteRegistry{SQLite: s, cat: cat}
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// cityRow is the table shape of a city.
type cityRow struct {
	ID             string         `db:"id"`
	Category       string         `db:"category"`
	Name           string         `db:"name"`
	Slug           string         `db:"slug"`
	Component      string         `db:"component"`
	Description    string         `db:"description"`
	Content        string         `db:"content"`
	Image          sql.NullString `db:"image"`
	CategoryTypes  string         `db:"category_types"`
	ServiceAreas   string         `db:"service_areas"`
	IsActive       bool           `db:"is_active"`
	SEOTitle       string         `db:"seo_title"`
	SEODescription string         `db:"seo_description"`
	MetaKeywords   string         `db:"meta_keywords"`
	ProvisionState string         `db:"provision_state"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func toRow(c *models.City) (cityRow, error) {
	types := c.CategoryTypes
	if types == nil {
		types = []models.CategoryType{}
	}
	typesJSON, err := json.Marshal(types)
	if err != nil {
		return cityRow{}, fmt.Errorf("registry: encode category types: %w", err)
	}
	areas := c.ServiceAreas
	if areas == nil {
		areas = []string{}
	}
	areasJSON, err := json.Marshal(areas)
	if err != nil {
		return cityRow{}, fmt.Errorf("registry: encode service areas: %w", err)
	}
	row := cityRow{
		ID:             c.ID,
		Category:       c.Category,
		Name:           c.Name,
		Slug:           c.Slug,
		Component:      c.Component,
		Description:    c.Description,
		Content:        c.Content,
		CategoryTypes:  string(typesJSON),
		ServiceAreas:   string(areasJSON),
		IsActive:       c.IsActive,
		SEOTitle:       c.SEOTitle,
		SEODescription: c.SEODescription,
		MetaKeywords:   c.MetaKeywords,
		ProvisionState: c.ProvisionState,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.Image != nil {
		row.Image = sql.NullString{String: *c.Image, Valid: true}
	}
	return row, nil
}

func (r cityRow) toModel() (models.City, error) {
	c := models.City{
		ID:             r.ID,
		Category:       r.Category,
		Name:           r.Name,
		Slug:           r.Slug,
		Component:      r.Component,
		Description:    r.Description,
		Content:        r.Content,
		IsActive:       r.IsActive,
		SEOTitle:       r.SEOTitle,
		SEODescription: r.SEODescription,
		MetaKeywords:   r.MetaKeywords,
		ProvisionState: r.ProvisionState,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.Image.Valid {
		img := r.Image.String
		c.Image = &img
	}
	if err := json.Unmarshal([]byte(r.CategoryTypes), &c.CategoryTypes); err != nil {
		return c, fmt.Errorf("registry: decode category types of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.ServiceAreas), &c.ServiceAreas); err != nil {
		return c, fmt.Errorf("registry: decode service areas of %s: %w", r.ID, err)
	}
	return c, nil
}

// mapWriteErr translates constraint violations into apperr.ErrConflict.
func mapWriteErr(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %s", apperr.ErrConflict, conflictField(se.Error()))
	}
	return err
}

func conflictField(msg string) string {
	for _, f := range []string{"slug", "component", "name", "id"} {
		if strings.Contains(msg, "cities."+f) {
			return "a city with the same " + f
		}
	}
	return "duplicate city"
}
