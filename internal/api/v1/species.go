// internal/api/v1/species.go
package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/taxonomy"
)

// SpeciesListResponse is the body of GET /api/v1/species
type SpeciesListResponse struct {
	Count   int                `json:"count"`
	Species []taxonomy.Species `json:"species"`
}

// StationListResponse is the body of GET /api/v1/stations
type StationListResponse struct {
	Count    int                `json:"count"`
	Stations []taxonomy.Station `json:"stations"`
}

// ListSpecies returns the registry, optionally filtered by ?category=
func (c *Controller) ListSpecies(ctx echo.Context) error {
	registry := c.Pipeline.Registry()

	list := registry.All()
	if raw := strings.TrimSpace(ctx.QueryParam("category")); raw != "" {
		category := taxonomy.Category(strings.ToLower(raw))
		if !category.Valid() {
			return c.HandleError(ctx, errors.InputError("api",
				fmt.Sprintf("unknown category %q (expected mammal, bird or reptile)", raw)),
				"Invalid category")
		}
		list = registry.ByCategory(category)
	}

	return ctx.JSON(http.StatusOK, SpeciesListResponse{Count: len(list), Species: list})
}

// GetSpecies resolves :id the same way model tokens are resolved, so common
// and scientific names work too
func (c *Controller) GetSpecies(ctx echo.Context) error {
	token := ctx.Param("id")
	sp, ok := c.Pipeline.Registry().Resolve(token)
	if !ok {
		return c.HandleError(ctx, errors.Newf("species %q not found", token).
			Component("api").
			Category(errors.CategoryNotFound).
			Context("species", token).
			Build(), "Species not found")
	}
	return ctx.JSON(http.StatusOK, sp)
}

// ListStations returns the known camera stations
func (c *Controller) ListStations(ctx echo.Context) error {
	stations := []taxonomy.Station{}
	if s := c.Pipeline.Stations(); s != nil {
		stations = s.All()
	}
	return ctx.JSON(http.StatusOK, StationListResponse{Count: len(stations), Stations: stations})
}
