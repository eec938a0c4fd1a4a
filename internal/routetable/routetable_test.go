package routetable

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/starford/citypages/internal/category"
	"github.com/starford/citypages/internal/models"
)

type fakeLister struct {
	cities []models.City
	err    error
	calls  int
}

func (f *fakeLister) ListActive(context.Context) ([]models.City, error) {
	f.calls++
	return f.cities, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProject(t *testing.T) {
	l := &fakeLister{cities: []models.City{
		{Name: "Mumbai", Slug: "taxi-service-in-mumbai", Component: "MumbaiTaxiPage"},
		{Name: "Pune", Slug: "taxi-service-in-pune", Component: "PuneTaxiPage"},
	}}
	entries, err := Project(context.Background(), l, category.Taxi, discard())
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d", len(entries))
	}
	want := Entry{
		Name:          "Pune",
		Slug:          "taxi-service-in-pune",
		ShortSlug:     "pune",
		ComponentName: "PuneTaxiPage",
		FullPath:      "/taxi/taxi-service-in-pune",
		ShortPath:     "/taxi/pune",
	}
	if entries[1] != want {
		t.Errorf("entry = %+v, want %+v", entries[1], want)
	}
	if entries[0].Name != "Mumbai" {
		t.Errorf("order not preserved: %+v", entries)
	}
}

func TestProjectIsNotCached(t *testing.T) {
	l := &fakeLister{cities: []models.City{{Name: "Pune", Slug: "taxi-service-in-pune", Component: "PuneTaxiPage"}}}
	_, _ = Project(context.Background(), l, category.Taxi, discard())
	l.cities = nil
	entries, _ := Project(context.Background(), l, category.Taxi, discard())
	if len(entries) != 0 || l.calls != 2 {
		t.Errorf("entries = %v after %d calls", entries, l.calls)
	}
}

func TestProjectMarksSharedShortSlugs(t *testing.T) {
	l := &fakeLister{cities: []models.City{
		{Name: "Visakhapatnam", Slug: "tour-packages-in-visakhapatnam", Component: "VisakhapatnamTourPage"},
		{Name: "Visakhapatnam east", Slug: "tour-packages-in-visakhapatnam-east", Component: "VisakhapatnameastTourPage"},
		{Name: "Agra", Slug: "tour-packages-in-agra", Component: "AgraTourPage"},
	}}
	entries, err := Project(context.Background(), l, category.Tour, discard())
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if !entries[0].ShortSlugShared || !entries[1].ShortSlugShared || entries[2].ShortSlugShared {
		t.Errorf("shared flags = %v %v %v", entries[0].ShortSlugShared, entries[1].ShortSlugShared, entries[2].ShortSlugShared)
	}
}

func TestProjectDerivesMissingComponent(t *testing.T) {
	l := &fakeLister{cities: []models.City{
		{Name: "Goa", Slug: "bike-rent-in-goa"},
		{ID: "bad", Name: "123", Slug: "bike-rent-in-123"},
	}}
	entries, err := Project(context.Background(), l, category.Bike, discard())
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(entries) != 1 || entries[0].ComponentName != "GoaBikesPage" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestProjectError(t *testing.T) {
	boom := errors.New("db down")
	_, err := Project(context.Background(), &fakeLister{err: boom}, category.Taxi, discard())
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestManifest(t *testing.T) {
	rows := Manifest([]Entry{{ComponentName: "PuneTaxiPage", FullPath: "/taxi/taxi-service-in-pune", ShortPath: "/taxi/pune"}})
	if len(rows) != 1 || rows[0].ComponentName != "PuneTaxiPage" || rows[0].ShortPath != "/taxi/pune" {
		t.Errorf("rows = %+v", rows)
	}
}
