package geocoding_test

import (
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/waypoint/internal/geocoding"
	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/UnknownOlympus/waypoint/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func TestGeocode(t *testing.T) {
	mockClient := mocks.NewGoogleAPIClient(t)
	provider := geocoding.NewGoogleProvider(mockClient, slog.Default())
	ctx := t.Context()

	t.Run("api returns error", func(t *testing.T) {
		address := "some invalid place"
		req := &maps.GeocodingRequest{Address: address}

		mockClient.On("Geocode", ctx, req).Return(nil, assert.AnError).Once()

		_, err := provider.Geocode(ctx, address)

		require.Error(t, err)
		require.ErrorIs(t, err, assert.AnError)
		mockClient.AssertExpectations(t)
	})

	t.Run("api return empty response", func(t *testing.T) {
		address := "some invalid place"
		req := &maps.GeocodingRequest{Address: address}

		mockClient.On("Geocode", ctx, req).Return(nil, nil).Once()

		coords, err := provider.Geocode(ctx, address)

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrEmptyResponse)
		mockClient.AssertExpectations(t)
	})

	t.Run("successfull geocoding", func(t *testing.T) {
		address := "Shaniwar Wada, Pune"
		req := &maps.GeocodingRequest{Address: address}
		mockReponse := []maps.GeocodingResult{
			{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 18.5195, Lng: 73.8553}}},
		}

		mockClient.On("Geocode", ctx, req).Return(mockReponse, nil).Once()

		coords, err := provider.Geocode(ctx, address)

		require.NoError(t, err)
		require.NotNil(t, coords)
		require.InEpsilon(t, 18.5195, coords.Latitude, 0.0001)
		require.InEpsilon(t, 73.8553, coords.Longitude, 0.0001)
		mockClient.AssertExpectations(t)
	})
}

func TestReverseGeocode(t *testing.T) {
	mockClient := mocks.NewGoogleAPIClient(t)
	provider := geocoding.NewGoogleProvider(mockClient, slog.Default())
	ctx := t.Context()
	coord := models.Coordinate{Latitude: 18.5204, Longitude: 73.8567}
	req := &maps.GeocodingRequest{LatLng: &maps.LatLng{Lat: 18.5204, Lng: 73.8567}}

	t.Run("api returns error", func(t *testing.T) {
		mockClient.On("ReverseGeocode", ctx, req).Return(nil, assert.AnError).Once()

		results, err := provider.ReverseGeocode(ctx, coord)

		require.Nil(t, results)
		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to reverse geocode coordinates")
	})

	t.Run("api returns empty response", func(t *testing.T) {
		mockClient.On("ReverseGeocode", ctx, req).Return([]maps.GeocodingResult{}, nil).Once()

		results, err := provider.ReverseGeocode(ctx, coord)

		require.Nil(t, results)
		require.ErrorIs(t, err, geocoding.ErrEmptyResponse)
	})

	t.Run("results keep api order and components", func(t *testing.T) {
		mockResponse := []maps.GeocodingResult{
			{
				PlaceID:          "place-1",
				FormattedAddress: "Camp, Pune, Maharashtra 411001, India",
				Geometry:         maps.AddressGeometry{Location: maps.LatLng{Lat: 18.5204, Lng: 73.8567}},
				AddressComponents: []maps.AddressComponent{
					{LongName: "Pune", ShortName: "Pune", Types: []string{"locality", "political"}},
					{LongName: "411001", ShortName: "411001", Types: []string{"postal_code"}},
				},
			},
			{PlaceID: "place-2", FormattedAddress: "Pune, Maharashtra, India"},
		}
		mockClient.On("ReverseGeocode", ctx, req).Return(mockResponse, nil).Once()

		results, err := provider.ReverseGeocode(ctx, coord)

		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "place-1", results[0].PlaceID)
		assert.Equal(t, "Camp, Pune, Maharashtra 411001, India", results[0].FormattedAddress)
		assert.Equal(t, coord, results[0].Location)
		assert.Equal(t, []models.AddressComponent{
			{LongName: "Pune", ShortName: "Pune", Types: []string{"locality", "political"}},
			{LongName: "411001", ShortName: "411001", Types: []string{"postal_code"}},
		}, results[0].AddressComponents)
		assert.Equal(t, "place-2", results[1].PlaceID)
		assert.Empty(t, results[1].AddressComponents)
	})
}

func TestPredict(t *testing.T) {
	mockClient := mocks.NewGoogleAPIClient(t)
	provider := geocoding.NewGoogleProvider(mockClient, slog.Default())
	ctx := t.Context()

	t.Run("api returns error", func(t *testing.T) {
		req := &maps.PlaceAutocompleteRequest{Input: "pun"}
		mockClient.On("PlaceAutocomplete", ctx, req).Return(maps.AutocompleteResponse{}, assert.AnError).Once()

		predictions, err := provider.Predict(ctx, "pun")

		require.Nil(t, predictions)
		require.ErrorIs(t, err, assert.AnError)
	})

	t.Run("descriptions in api order", func(t *testing.T) {
		req := &maps.PlaceAutocompleteRequest{Input: "pune"}
		resp := maps.AutocompleteResponse{Predictions: []maps.AutocompletePrediction{
			{Description: "Pune, Maharashtra, India"},
			{Description: "Pune Railway Station, Agarkar Nagar, Pune"},
		}}
		mockClient.On("PlaceAutocomplete", ctx, req).Return(resp, nil).Once()

		predictions, err := provider.Predict(ctx, "pune")

		require.NoError(t, err)
		assert.Equal(t, []string{"Pune, Maharashtra, India", "Pune Railway Station, Agarkar Nagar, Pune"}, predictions)
	})

	t.Run("no predictions", func(t *testing.T) {
		req := &maps.PlaceAutocompleteRequest{Input: "zzzz"}
		mockClient.On("PlaceAutocomplete", ctx, req).Return(maps.AutocompleteResponse{}, nil).Once()

		predictions, err := provider.Predict(ctx, "zzzz")

		require.NoError(t, err)
		assert.Empty(t, predictions)
	})
}
