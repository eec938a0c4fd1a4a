// Package category describes the three listing verticals that own city pages.
//
// Every piece of provisioning code is written once and parameterized by a
// Category value; nothing else in the tree switches on the vertical.
package category

import (
	"fmt"
	"strings"

	"github.com/starford/citypages/internal/apperr"
)

// Category is the descriptor of one vertical.
type Category struct {
	// Key is the short identifier: "bike", "taxi" or "tour".
	Key string
	// Title is the display form used in messages.
	Title string
	// SlugPrefix is prepended to the clean name segment.
	SlugPrefix string
	// LegacyInfix identifies slugs of the retired {clean}-rent-bike-in-{clean}
	// scheme. Empty for categories that never had one.
	LegacyInfix string
	// FileSuffix is appended to the component identifier.
	FileSuffix string
	// Dir is the page directory relative to the pages root.
	Dir string
	// Collection names the HTTP resource and the Mongo collection.
	Collection string
	// RoutePrefix is the public route under which city pages are served.
	RoutePrefix string
	// TypesField is the category-specific form field for sub-offerings.
	TypesField string
	// AssetFolder is the asset store folder for city images.
	AssetFolder string

	seoTitle       string
	seoDescription string
	seoKeywords    string
	// distanceFare marks categories whose sub-offerings are priced per km.
	distanceFare bool
}

var (
	Bike = Category{
		Key:            "bike",
		Title:          "Bike",
		SlugPrefix:     "bike-rent-in-",
		LegacyInfix:    "-rent-bike-in-",
		FileSuffix:     "BikesPage",
		Dir:            "bike-cities-pages",
		Collection:     "bike-cities",
		RoutePrefix:    "/bike",
		TypesField:     "bikeTypes",
		AssetFolder:    "bike_rent_city_pages",
		seoTitle:       "Bike Rent in %s",
		seoDescription: "Rent bikes in %s at affordable prices. Scooters, motorbikes, and daily or weekly plans.",
		seoKeywords:    "bike rent %[1]s, bike rental %[1]s, scooty rent %[1]s, %[1]s bike rental",
	}
	Taxi = Category{
		Key:            "taxi",
		Title:          "Taxi",
		SlugPrefix:     "taxi-service-in-",
		FileSuffix:     "TaxiPage",
		Dir:            "taxi-cities-pages",
		Collection:     "taxi-cities",
		RoutePrefix:    "/taxi",
		TypesField:     "taxiTypes",
		AssetFolder:    "bike_rent_taxi_cities",
		seoTitle:       "Taxi Service in %s",
		seoDescription: "Book reliable taxi services in %s. Professional drivers, comfortable vehicles, and transparent pricing.",
		seoKeywords:    "taxi service %[1]s, cab booking %[1]s, taxi rental %[1]s, %[1]s taxi service",
		distanceFare:   true,
	}
	Tour = Category{
		Key:            "tour",
		Title:          "Tour",
		SlugPrefix:     "tour-packages-in-",
		FileSuffix:     "TourPage",
		Dir:            "tour-cities-pages",
		Collection:     "tour-cities",
		RoutePrefix:    "/tour",
		TypesField:     "tourTypes",
		AssetFolder:    "bike_rent_tour_cities",
		seoTitle:       "Tour Packages in %s",
		seoDescription: "Explore amazing tour packages in %s. Discover local attractions, cultural experiences, and adventure tours.",
		seoKeywords:    "tour packages %[1]s, %[1]s tours, travel %[1]s, %[1]s tourism",
	}
)

// All returns every category in a stable order.
func All() []Category {
	return []Category{Bike, Taxi, Tour}
}

// Parse resolves a key ("taxi") or collection name ("taxi-cities").
func Parse(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range All() {
		if s == c.Key || s == c.Collection {
			return c, nil
		}
	}
	return Category{}, fmt.Errorf("%w: unknown category %q", apperr.ErrValidation, s)
}

// MustParse is Parse for compile-time constants.
func MustParse(s string) Category {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// HasLegacyScheme reports whether slugs of this category may still be in a
// retired format.
func (c Category) HasLegacyScheme() bool {
	return c.LegacyInfix != ""
}

// DistanceFare reports whether sub-offerings carry a per-km price rather than
// a duration.
func (c Category) DistanceFare() bool {
	return c.distanceFare
}

// SEO returns the default title, description and keywords for a city.
func (c Category) SEO(name string) (title, description, keywords string) {
	return fmt.Sprintf(c.seoTitle, name),
		fmt.Sprintf(c.seoDescription, name),
		fmt.Sprintf(c.seoKeywords, name)
}

// PublicPath returns the public route for a slug, e.g. /taxi/taxi-service-in-pune.
func (c Category) PublicPath(slug string) string {
	return c.RoutePrefix + "/" + slug
}

// EndpointPath is the public API path a generated page fetches its data from.
func (c Category) EndpointPath(slug string) string {
	return "/api/" + c.Collection + "/" + slug
}

func (c Category) String() string {
	return c.Key
}
