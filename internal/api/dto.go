package api

import (
	"github.com/starford/citypages/internal/models"
	"github.com/starford/citypages/internal/reconcile"
)

// CreateCityResponse is returned after a city page is provisioned.
type CreateCityResponse struct {
	Message  string            `json:"message" example:"Taxi city page created successfully" validate:"required"`
	City     *models.City      `json:"city" validate:"required"`
	PagePath string            `json:"pagePath" example:"taxi-cities-pages/PuneTaxiPage.jsx" validate:"required"`
	Routes   models.RouteHints `json:"routes" validate:"required"`
	Warnings []string          `json:"warnings,omitempty"`
}

// UpdateCityResponse is returned after a city is updated.
type UpdateCityResponse struct {
	Message  string       `json:"message" example:"Taxi city updated successfully" validate:"required"`
	City     *models.City `json:"city" validate:"required"`
	PagePath string       `json:"pagePath" example:"taxi-cities-pages/PuneTaxiPage.jsx"`
	Renamed  bool         `json:"renamed"`
	Warnings []string     `json:"warnings,omitempty"`
}

// MessageResponse carries a plain confirmation.
type MessageResponse struct {
	Message string `json:"message" example:"Taxi city deleted successfully" validate:"required"`
}

// ReconcileResponse wraps a reconcile pass.
type ReconcileResponse struct {
	Report reconcile.Report `json:"report" validate:"required"`
}
