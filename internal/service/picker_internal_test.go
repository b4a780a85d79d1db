package service

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/UnknownOlympus/waypoint/internal/debounce"
	"github.com/UnknownOlympus/waypoint/internal/mapcenter"
	"github.com/UnknownOlympus/waypoint/internal/metrics"
	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/UnknownOlympus/waypoint/internal/resolver"
	"github.com/UnknownOlympus/waypoint/internal/search"
	"github.com/UnknownOlympus/waypoint/internal/settings"
	"github.com/UnknownOlympus/waypoint/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var start = models.Coordinate{Latitude: 29.57428043673804, Longitude: 74.34091367876584}

type session struct {
	service   *PickerService
	provider  *mocks.Provider
	predictor *mocks.Predictor
	sink      *mocks.Sink
	store     *settings.Store
	metrics   *metrics.Metrics
}

func newSession(t *testing.T, prefix string) session {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	appMetrics := metrics.NewMetrics(prometheus.NewRegistry())
	provider := mocks.NewProvider(t)
	predictor := mocks.NewPredictor(t)
	sink := mocks.NewSink(t)

	store, err := settings.Open(afero.NewMemMapFs(), "/cfg/waypoint/session.yaml", logger)
	require.NoError(t, err)

	res := resolver.New(logger, provider, "stub", appMetrics)
	centerCtrl, err := mapcenter.New(logger, res, appMetrics, start, mapcenter.WithSink(sink))
	require.NoError(t, err)

	svc := NewPickerService(
		logger,
		appMetrics,
		debounce.New(10*time.Millisecond),
		search.New(logger, appMetrics),
		centerCtrl,
		predictor,
		store,
		prefix,
	)
	t.Cleanup(svc.Close)

	return session{
		service:   svc,
		provider:  provider,
		predictor: predictor,
		sink:      sink,
		store:     store,
		metrics:   appMetrics,
	}
}

func TestPickerService_Search(t *testing.T) {
	t.Run("typing before map ready yields nothing", func(t *testing.T) {
		s := newSession(t, "")
		ctx := t.Context()

		lookup := s.service.InputChanged(ctx, "Pun")
		require.NotNil(t, lookup)

		assert.Eventually(t, lookup.Fired, time.Second, 5*time.Millisecond)
		s.service.Close()
		assert.Empty(t, s.service.Suggestions())
		s.predictor.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
	})

	t.Run("rapid typing searches once with the last value", func(t *testing.T) {
		s := newSession(t, "")
		ctx := t.Context()
		require.True(t, s.service.MapReady(ctx))
		s.predictor.On("Predict", ctx, "Pune").Return([]string{"Pune, Maharashtra, India", "Pune Station"}, nil).Once()

		for _, text := range []string{"P", "Pu", "Pun", "Pune"} {
			s.service.InputChanged(ctx, text)
		}

		assert.Eventually(t, func() bool {
			return len(s.service.Suggestions()) == 2
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, "Pune, Maharashtra, India", s.service.Suggestions()[0].Label)
		assert.InDelta(t, 4, testutil.ToFloat64(s.metrics.DebouncedInputs), 0)
	})

	t.Run("empty input keeps the pending search", func(t *testing.T) {
		s := newSession(t, "")
		ctx := t.Context()
		require.True(t, s.service.MapReady(ctx))
		s.predictor.On("Predict", ctx, "Goa").Return([]string{"Goa, India"}, nil).Once()

		require.NotNil(t, s.service.InputChanged(ctx, "Goa"))
		assert.Nil(t, s.service.InputChanged(ctx, ""))

		assert.Eventually(t, func() bool {
			return len(s.service.Suggestions()) == 1
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, []models.SuggestionOption{{Label: "Goa, India"}}, s.service.Suggestions())
	})

	t.Run("without predictor suggestions stay disabled", func(t *testing.T) {
		s := newSession(t, "")
		s.service.predictor = nil

		assert.False(t, s.service.MapReady(t.Context()))
	})
}

func TestPickerService_SelectAndSubmit(t *testing.T) {
	pune := models.Coordinate{Latitude: 18.5204, Longitude: 73.8567}
	puneResult := models.GeocodeResult{
		FormattedAddress: "Camp, Pune, Maharashtra 411001, India",
		AddressComponents: []models.AddressComponent{
			{LongName: "Pune", Types: []string{"locality", "political"}},
			{LongName: "Maharashtra", Types: []string{"administrative_area_level_1"}},
			{LongName: "411001", Types: []string{"postal_code"}},
			{LongName: "India", Types: []string{"country"}},
		},
	}

	t.Run("select applies prefix and recenters", func(t *testing.T) {
		s := newSession(t, "India, ")
		ctx := t.Context()
		s.provider.On("Geocode", ctx, "India, Pune").Return(&pune, nil).Once()

		require.NoError(t, s.service.Select(ctx, "Pune"))

		assert.Equal(t, pune, s.service.Center())
		s.sink.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
	})

	t.Run("empty selection is ignored", func(t *testing.T) {
		s := newSession(t, "India, ")

		require.NoError(t, s.service.Select(t.Context(), ""))
		s.provider.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
	})

	t.Run("drag then submit emits record", func(t *testing.T) {
		s := newSession(t, "")
		ctx := t.Context()
		s.provider.On("ReverseGeocode", ctx, pune).Return([]models.GeocodeResult{puneResult}, nil).Once()
		s.sink.On("Emit", ctx, mock.AnythingOfType("models.LocationRecord")).Once()

		require.NoError(t, s.service.DragEnd(ctx, pune))
		record, err := s.service.Submit(ctx)

		require.NoError(t, err)
		assert.Equal(t, pune, record.Coordinate)
		assert.Equal(t, "411001", record.Address.PostalCode)
		assert.Equal(t, mapcenter.Idle, s.service.State())
	})

	t.Run("submit without postal code emits nothing", func(t *testing.T) {
		s := newSession(t, "")
		ctx := t.Context()
		s.provider.On("ReverseGeocode", ctx, start).Return([]models.GeocodeResult{{
			FormattedAddress: "Rajasthan, India",
			AddressComponents: []models.AddressComponent{
				{LongName: "Rajasthan", Types: []string{"administrative_area_level_1"}},
			},
		}}, nil).Once()

		_, err := s.service.Submit(ctx)

		require.ErrorIs(t, err, models.ErrUnusableAddress)
		s.sink.AssertNotCalled(t, "Emit", mock.Anything, mock.Anything)
	})
}

func TestPickerService_SetAPIKey(t *testing.T) {
	t.Run("key is persisted", func(t *testing.T) {
		s := newSession(t, "")

		require.NoError(t, s.service.SetAPIKey(t.Context(), "AIza-new"))

		assert.Equal(t, "AIza-new", s.store.APIKey())
	})

	t.Run("no store", func(t *testing.T) {
		s := newSession(t, "")
		s.service.store = nil

		require.ErrorIs(t, s.service.SetAPIKey(t.Context(), "key"), ErrNoSettings)
	})
}
