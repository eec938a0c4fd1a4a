package migrate

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/models"
	"github.com/starford/citypages/internal/provision"
	"github.com/starford/citypages/internal/slug"
	"github.com/starford/citypages/internal/testutil"
)

func seed(t *testing.T, svc *provision.Service, name, s, component string) *models.City {
	t.Helper()
	c := &models.City{
		Name:           name,
		Slug:           s,
		Component:      component,
		IsActive:       true,
		ProvisionState: models.ProvisionReady,
	}
	if err := svc.Registry(category.Bike).Create(context.Background(), c); err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
	return c
}

func TestSlugsMigratesLegacyRecords(t *testing.T) {
	db := testutil.TestBackend(t)
	root, store := testutil.TestPages(t)
	svc := provision.NewService(db, store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	goa := seed(t, svc, "Goa", slug.Legacy("Goa"), "GoaBikesPage")
	seed(t, svc, "Manali", "bike-rent-in-manali", "ManaliBikesPage")
	pune := seed(t, svc, "Pune", slug.Legacy("Pune"), "PuneBikesPage")
	seed(t, svc, "Poona", "bike-rent-in-pune", "PoonaBikesPage")

	sum, err := Slugs(ctx, svc, category.Bike, Options{}, logger)
	if err != nil {
		t.Fatalf("Slugs: %v", err)
	}
	if sum != (Summary{Total: 4, Migrated: 1, Skipped: 3}) {
		t.Errorf("summary = %+v", sum)
	}

	got, _ := svc.GetByID(ctx, category.Bike, goa.ID)
	if got.Slug != "bike-rent-in-goa" {
		t.Errorf("goa slug = %q", got.Slug)
	}
	page, err := os.ReadFile(filepath.Join(root, "bike-cities-pages", "GoaBikesPage.jsx"))
	if err != nil || !strings.Contains(string(page), "slug: bike-rent-in-goa") {
		t.Errorf("page not regenerated: %v", err)
	}

	kept, _ := svc.GetByID(ctx, category.Bike, pune.ID)
	if kept.Slug != "pune-rent-bike-in-pune" {
		t.Errorf("conflicting record migrated: %q", kept.Slug)
	}

	again, _ := Slugs(ctx, svc, category.Bike, Options{}, logger)
	if again.Migrated != 0 {
		t.Errorf("second run migrated %d", again.Migrated)
	}
}

func TestSlugsDryRunWritesNothing(t *testing.T) {
	db := testutil.TestBackend(t)
	root, store := testutil.TestPages(t)
	svc := provision.NewService(db, store)
	ctx := context.Background()

	goa := seed(t, svc, "Goa", slug.Legacy("Goa"), "GoaBikesPage")

	sum, err := Slugs(ctx, svc, category.Bike, Options{DryRun: true}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Slugs: %v", err)
	}
	if sum.Migrated != 1 {
		t.Errorf("summary = %+v", sum)
	}
	got, _ := svc.GetByID(ctx, category.Bike, goa.ID)
	if got.Slug != "goa-rent-bike-in-goa" {
		t.Errorf("dry run changed slug to %q", got.Slug)
	}
	if _, err := os.Stat(filepath.Join(root, "bike-cities-pages")); !os.IsNotExist(err) {
		t.Error("dry run touched the pages root")
	}
}

func TestSlugsIgnoresCategoriesWithoutLegacyScheme(t *testing.T) {
	db := testutil.TestBackend(t)
	_, store := testutil.TestPages(t)
	svc := provision.NewService(db, store)

	sum, err := Slugs(context.Background(), svc, category.Taxi, Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil || sum != (Summary{}) {
		t.Errorf("Slugs(taxi) = %+v, %v", sum, err)
	}
}
