package geocoding

import (
	"context"

	"github.com/UnknownOlympus/waypoint/internal/models"
)

// Provider is an interface that defines forward and reverse geocoding.
// Geocode resolves an address to the coordinates of its best match.
// ReverseGeocode resolves coordinates to address candidates ordered from the
// most specific to the least specific.
type Provider interface {
	Geocode(ctx context.Context, address string) (*models.Coordinate, error)
	ReverseGeocode(ctx context.Context, coord models.Coordinate) ([]models.GeocodeResult, error)
}

// Predictor returns human-readable place descriptions for partial input.
type Predictor interface {
	Predict(ctx context.Context, input string) ([]string, error)
}
