// Package models defines the domain types for citypages.
package models

import "time"

// Provision states recorded on a city while its page is being written.
const (
	ProvisionPending = "pending"
	ProvisionReady   = "ready"
	ProvisionFailed  = "failed"
)

// City is one persisted city record of a category.
type City struct {
	ID             string         `json:"_id" bson:"_id"`
	Category       string         `json:"category" bson:"category"`
	Name           string         `json:"name" bson:"name"`
	Slug           string         `json:"slug" bson:"slug"`
	Component      string         `json:"componentName" bson:"component"`
	Description    string         `json:"description" bson:"description"`
	Content        string         `json:"content" bson:"content"`
	Image          *string        `json:"image" bson:"image,omitempty"`
	CategoryTypes  []CategoryType `json:"categoryTypes" bson:"categoryTypes"`
	ServiceAreas   []string       `json:"serviceAreas" bson:"serviceAreas"`
	IsActive       bool           `json:"isActive" bson:"isActive"`
	SEOTitle       string         `json:"seoTitle" bson:"seoTitle"`
	SEODescription string         `json:"seoDescription" bson:"seoDescription"`
	MetaKeywords   string         `json:"metaKeywords" bson:"metaKeywords"`
	ProvisionState string         `json:"provisionState" bson:"provisionState"`
	CreatedAt      time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// CategoryType is a sub-offering of a city: a taxi fare class, a tour
// package class, a bike model.
type CategoryType struct {
	Label       string  `json:"type" bson:"type" validate:"required,max=100"`
	Description string  `json:"description" bson:"description"`
	BasePrice   float64 `json:"basePrice" bson:"basePrice" validate:"gte=0"`
	PricePerKm  float64 `json:"pricePerKm,omitempty" bson:"pricePerKm,omitempty" validate:"gte=0"`
	Duration    string  `json:"duration,omitempty" bson:"duration,omitempty"`
	IsAvailable bool    `json:"isAvailable" bson:"isAvailable"`
}

// RouteHints are the public paths a freshly provisioned city answers on.
type RouteHints struct {
	FullSlug  string `json:"fullSlug"`
	ShortSlug string `json:"shortSlug"`
}
