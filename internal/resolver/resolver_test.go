package resolver_test

import (
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/waypoint/internal/address"
	"github.com/UnknownOlympus/waypoint/internal/metrics"
	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/UnknownOlympus/waypoint/internal/resolver"
	"github.com/UnknownOlympus/waypoint/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const shaniwarWada = "Shaniwar Wada, Pune"

var (
	wadaCoord  = models.Coordinate{Latitude: 18.5195, Longitude: 73.8553}
	wadaResult = models.GeocodeResult{
		FormattedAddress: "Shaniwar Peth, Pune, Maharashtra 411030, India",
		Location:         wadaCoord,
		AddressComponents: []models.AddressComponent{
			{LongName: "Pune", Types: []string{"locality", "political"}},
			{LongName: "Maharashtra", Types: []string{"administrative_area_level_1", "political"}},
			{LongName: "411030", Types: []string{"postal_code"}},
			{LongName: "India", Types: []string{"country", "political"}},
		},
	}
)

func newResolver(t *testing.T) (*resolver.Resolver, *mocks.Provider, *metrics.Metrics) {
	t.Helper()
	provider := mocks.NewProvider(t)
	appMetrics := metrics.NewMetrics(prometheus.NewRegistry())

	return resolver.New(slog.Default(), provider, "stub", appMetrics), provider, appMetrics
}

func TestResolver_Forward(t *testing.T) {
	t.Parallel()

	t.Run("returns first match coordinate", func(t *testing.T) {
		t.Parallel()
		res, provider, appMetrics := newResolver(t)
		ctx := t.Context()
		provider.On("Geocode", ctx, shaniwarWada).Return(&wadaCoord, nil).Once()

		coord, err := res.Forward(ctx, shaniwarWada)

		require.NoError(t, err)
		assert.Equal(t, wadaCoord, coord)
		assert.InDelta(t, 1, testutil.ToFloat64(
			appMetrics.ProviderRequests.WithLabelValues("stub", resolver.OpForward, "success")), 0)
	})

	t.Run("is idempotent against a deterministic provider", func(t *testing.T) {
		t.Parallel()
		res, provider, _ := newResolver(t)
		ctx := t.Context()
		provider.On("Geocode", ctx, shaniwarWada).Return(&wadaCoord, nil).Twice()

		first, err := res.Forward(ctx, shaniwarWada)
		require.NoError(t, err)
		second, err := res.Forward(ctx, shaniwarWada)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		provider.AssertNumberOfCalls(t, "Geocode", 2)
	})

	t.Run("provider error becomes resolution error", func(t *testing.T) {
		t.Parallel()
		res, provider, appMetrics := newResolver(t)
		ctx := t.Context()
		provider.On("Geocode", ctx, "nowhere").Return(nil, assert.AnError).Once()

		_, err := res.Forward(ctx, "nowhere")

		require.ErrorIs(t, err, resolver.ErrResolution)
		require.ErrorIs(t, err, assert.AnError)

		var resErr *resolver.ResolutionError
		require.ErrorAs(t, err, &resErr)
		assert.Equal(t, resolver.OpForward, resErr.Op)
		assert.Equal(t, "nowhere", resErr.Input)
		assert.InDelta(t, 1, testutil.ToFloat64(appMetrics.APIErrors), 0)
	})

	t.Run("nil coordinate without error", func(t *testing.T) {
		t.Parallel()
		res, provider, _ := newResolver(t)
		ctx := t.Context()
		provider.On("Geocode", ctx, "void").Return(nil, nil).Once()

		_, err := res.Forward(ctx, "void")

		require.ErrorIs(t, err, resolver.ErrResolution)
		require.ErrorIs(t, err, resolver.ErrNoResults)
	})

	t.Run("empty address skips the provider", func(t *testing.T) {
		t.Parallel()
		res, provider, _ := newResolver(t)

		_, err := res.Forward(t.Context(), "")

		require.ErrorIs(t, err, resolver.ErrEmptyAddress)
		provider.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
	})
}

func TestResolver_Reverse(t *testing.T) {
	t.Parallel()

	t.Run("returns provider results in order", func(t *testing.T) {
		t.Parallel()
		res, provider, _ := newResolver(t)
		ctx := t.Context()
		broader := models.GeocodeResult{FormattedAddress: "Pune, Maharashtra, India"}
		provider.On("ReverseGeocode", ctx, wadaCoord).
			Return([]models.GeocodeResult{wadaResult, broader}, nil).Once()

		results, err := res.Reverse(ctx, wadaCoord)

		require.NoError(t, err)
		assert.Equal(t, []models.GeocodeResult{wadaResult, broader}, results)
	})

	t.Run("zero results", func(t *testing.T) {
		t.Parallel()
		res, provider, appMetrics := newResolver(t)
		ctx := t.Context()
		provider.On("ReverseGeocode", ctx, wadaCoord).Return([]models.GeocodeResult{}, nil).Once()

		results, err := res.Reverse(ctx, wadaCoord)

		require.Nil(t, results)
		require.ErrorIs(t, err, resolver.ErrResolution)
		require.ErrorIs(t, err, resolver.ErrNoResults)
		assert.InDelta(t, 1, testutil.ToFloat64(
			appMetrics.ProviderRequests.WithLabelValues("stub", resolver.OpReverse, "failure")), 0)
	})

	t.Run("provider error", func(t *testing.T) {
		t.Parallel()
		res, provider, _ := newResolver(t)
		ctx := t.Context()
		provider.On("ReverseGeocode", ctx, wadaCoord).Return(nil, assert.AnError).Once()

		_, err := res.Reverse(ctx, wadaCoord)

		require.ErrorIs(t, err, resolver.ErrResolution)
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "reverse geocoding")
	})

	t.Run("invalid coordinate skips the provider", func(t *testing.T) {
		t.Parallel()
		res, provider, _ := newResolver(t)

		_, err := res.Reverse(t.Context(), models.Coordinate{Latitude: 91})

		require.ErrorIs(t, err, resolver.ErrResolution)
		require.ErrorIs(t, err, models.ErrInvalidCoordinate)
		provider.AssertNotCalled(t, "ReverseGeocode", mock.Anything, mock.Anything)
	})
}

func TestResolver_RoundTrip(t *testing.T) {
	t.Parallel()
	res, provider, _ := newResolver(t)
	ctx := t.Context()
	provider.On("Geocode", ctx, shaniwarWada).Return(&wadaCoord, nil)
	provider.On("ReverseGeocode", ctx, wadaCoord).Return([]models.GeocodeResult{wadaResult}, nil)

	for range 2 {
		coord, err := res.Forward(ctx, shaniwarWada)
		require.NoError(t, err)

		results, err := res.Reverse(ctx, coord)
		require.NoError(t, err)

		addr, ok := address.Normalize(results)
		require.True(t, ok)
		assert.Equal(t, "Shaniwar Peth, Pune, Maharashtra 411030, India", addr.FormattedAddress)
		assert.Equal(t, "411030", addr.PostalCode)
	}
}
