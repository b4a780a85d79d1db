package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/waypoint/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes. It is used to interact with the
// Google Maps geocoding and places services.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	log    *slog.Logger    // log is the logger for logging operations
}

// GoogleAPIClient is the subset of *maps.Client used by GoogleProvider.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
	PlaceAutocomplete(ctx context.Context, r *maps.PlaceAutocompleteRequest) (maps.AutocompleteResponse, error)
}

// ErrEmptyResponse is returned when the Google Maps API responds with an empty result.
var ErrEmptyResponse = errors.New("get empty response from Google Maps API")

// NewGoogleProvider wraps an already configured Google Maps client.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// Geocode takes a context and an address string as input, and returns the geographical coordinates
// of the provided address using the Google Maps Geocoding API.
// If the address cannot be geocoded or if the response is empty, it returns an appropriate error.
func (gp *GoogleProvider) Geocode(ctx context.Context, address string) (*models.Coordinate, error) {
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "address", address)

	req := maps.GeocodingRequest{Address: address}
	geocodeResponse, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}

	if len(geocodeResponse) == 0 {
		return nil, ErrEmptyResponse
	}
	coords := geocodeResponse[0].Geometry.Location

	return &models.Coordinate{Longitude: coords.Lng, Latitude: coords.Lat}, nil
}

// ReverseGeocode returns the address candidates Google Maps knows for the point,
// in the order the API ranks them.
func (gp *GoogleProvider) ReverseGeocode(ctx context.Context, coord models.Coordinate) ([]models.GeocodeResult, error) {
	gp.log.DebugContext(ctx, "Reverse geocoding using Google Maps", "lat", coord.Latitude, "lng", coord.Longitude)

	req := maps.GeocodingRequest{LatLng: &maps.LatLng{Lat: coord.Latitude, Lng: coord.Longitude}}
	geocodeResponse, err := gp.client.ReverseGeocode(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to reverse geocode coordinates: %w", err)
	}

	if len(geocodeResponse) == 0 {
		return nil, ErrEmptyResponse
	}

	results := make([]models.GeocodeResult, 0, len(geocodeResponse))
	for _, res := range geocodeResponse {
		results = append(results, fromGoogleResult(res))
	}

	return results, nil
}

// Predict returns place descriptions from the Places Autocomplete API.
func (gp *GoogleProvider) Predict(ctx context.Context, input string) ([]string, error) {
	gp.log.DebugContext(ctx, "Requesting place predictions from Google Maps", "input", input)

	req := maps.PlaceAutocompleteRequest{Input: input}
	resp, err := gp.client.PlaceAutocomplete(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to get place predictions: %w", err)
	}

	descriptions := make([]string, 0, len(resp.Predictions))
	for _, prediction := range resp.Predictions {
		descriptions = append(descriptions, prediction.Description)
	}

	return descriptions, nil
}

func fromGoogleResult(res maps.GeocodingResult) models.GeocodeResult {
	components := make([]models.AddressComponent, 0, len(res.AddressComponents))
	for _, ac := range res.AddressComponents {
		components = append(components, models.AddressComponent{
			LongName:  ac.LongName,
			ShortName: ac.ShortName,
			Types:     ac.Types,
		})
	}

	return models.GeocodeResult{
		PlaceID:           res.PlaceID,
		FormattedAddress:  res.FormattedAddress,
		Location:          models.Coordinate{Latitude: res.Geometry.Location.Lat, Longitude: res.Geometry.Location.Lng},
		AddressComponents: components,
	}
}
