package slug

import (
	"errors"
	"testing"

	"github.com/starford/citypages/internal/apperr"
	"github.com/starford/citypages/internal/category"
)

func TestFull(t *testing.T) {
	tests := []struct {
		name string
		cat  category.Category
		want string
	}{
		{"Pune", category.Taxi, "taxi-service-in-pune"},
		{"Delhi!", category.Taxi, "taxi-service-in-delhi"},
		{"New delhi", category.Tour, "tour-packages-in-new-delhi"},
		{"  Navi   mumbai  ", category.Bike, "bike-rent-in-navi-mumbai"},
		{"St. john's", category.Taxi, "taxi-service-in-st-john-s"},
		{"Zürich", category.Tour, "tour-packages-in-z-rich"},
		{"--goa--", category.Bike, "bike-rent-in-goa"},
	}
	for _, tt := range tests {
		got, err := Full(tt.name, tt.cat)
		if err != nil {
			t.Fatalf("Full(%q): %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("Full(%q, %s) = %q, want %q", tt.name, tt.cat, got, tt.want)
		}
	}
}

func TestFullRejectsEmptySegment(t *testing.T) {
	for _, name := range []string{"###", "", "   ", "---", "ñ"} {
		_, err := Full(name, category.Taxi)
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Full(%q) err = %v, want ErrValidation", name, err)
		}
	}
}

func TestFullDeterministic(t *testing.T) {
	for _, cat := range category.All() {
		a, _ := Full("Visakhapatnam", cat)
		b, _ := Full("Visakhapatnam", cat)
		if a != b {
			t.Errorf("%s: %q != %q", cat, a, b)
		}
	}
}

func TestShort(t *testing.T) {
	tests := map[string]string{
		"Indore":        "indore",
		"Visakhapatnam": "visakhapat",
		"New delhi":     "newdelhi",
		"St. john's":    "stjohns",
		"A1 b2 c3 d4 e": "a1b2c3d4e",
		"###":           "",
	}
	for in, want := range tests {
		if got := Short(in); got != want {
			t.Errorf("Short(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLegacy(t *testing.T) {
	got := Legacy("Goa")
	if got != "goa-rent-bike-in-goa" {
		t.Fatalf("Legacy = %q", got)
	}
	if !IsLegacy(got, category.Bike) {
		t.Error("expected legacy slug to be detected")
	}
	if IsLegacy("bike-rent-in-goa", category.Bike) {
		t.Error("current slug must not be legacy")
	}
	if IsLegacy(got, category.Taxi) {
		t.Error("taxi has no legacy scheme")
	}
}

func TestStripPrefix(t *testing.T) {
	tests := []struct {
		in   string
		cat  category.Category
		want string
	}{
		{"taxi-service-in-pune", category.Taxi, "pune"},
		{"indore", category.Taxi, "indore"},
		{"goa-rent-bike-in-goa", category.Bike, "goa"},
		{"bike-rent-in-new-delhi", category.Bike, "new-delhi"},
		{"tour-packages-in-agra", category.Taxi, "tour-packages-in-agra"},
	}
	for _, tt := range tests {
		if got := StripPrefix(tt.in, tt.cat); got != tt.want {
			t.Errorf("StripPrefix(%q, %s) = %q, want %q", tt.in, tt.cat, got, tt.want)
		}
	}
}
