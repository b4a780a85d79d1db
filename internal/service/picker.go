package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/UnknownOlympus/waypoint/internal/debounce"
	"github.com/UnknownOlympus/waypoint/internal/geocoding"
	"github.com/UnknownOlympus/waypoint/internal/mapcenter"
	"github.com/UnknownOlympus/waypoint/internal/metrics"
	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/UnknownOlympus/waypoint/internal/search"
	"github.com/UnknownOlympus/waypoint/internal/settings"
)

// ErrNoSettings is returned by SetAPIKey when the session has no settings store.
var ErrNoSettings = errors.New("settings store is not configured")

// PickerService turns user events (typing, selecting a suggestion, dragging the
// map, submitting) into calls on the search and map-center controllers.
type PickerService struct {
	log           *slog.Logger          // Logger for logging session activities
	metrics       *metrics.Metrics      // Metrics for tracking session activity
	debouncer     *debounce.Debouncer   // Debouncer in front of the place search
	search        *search.Controller    // Autocomplete suggestions
	center        *mapcenter.Controller // Map center and submit workflow
	predictor     geocoding.Predictor   // Autocomplete service installed on map ready, may be nil
	store         *settings.Store       // Persisted API key, may be nil
	addressPrefix string                // Address prefix for more accurate geocoding (indicating country, city, etc.)

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup // debounced searches in flight
}

// NewPickerService creates a new instance of PickerService. The predictor is
// not handed to the search controller until MapReady is called.
func NewPickerService(
	log *slog.Logger,
	metrics *metrics.Metrics,
	debouncer *debounce.Debouncer,
	searchCtrl *search.Controller,
	centerCtrl *mapcenter.Controller,
	predictor geocoding.Predictor,
	store *settings.Store,
	addressPrefix string,
) *PickerService {
	return &PickerService{
		log:           log,
		metrics:       metrics,
		debouncer:     debouncer,
		search:        searchCtrl,
		center:        centerCtrl,
		predictor:     predictor,
		store:         store,
		addressPrefix: addressPrefix,
	}
}

// MapReady installs the autocomplete service. It reports whether suggestions
// are available for this session.
func (ps *PickerService) MapReady(ctx context.Context) bool {
	if ps.predictor == nil {
		ps.log.WarnContext(ctx, "Provider has no autocomplete, suggestions are disabled")
		return false
	}
	if ps.search.Init(ps.predictor) {
		ps.log.InfoContext(ctx, "Autocomplete service initialized")
	}

	return ps.search.Ready()
}

// InputChanged schedules a place search for text. Earlier input that has not
// been searched yet is dropped. Empty text is ignored.
func (ps *PickerService) InputChanged(ctx context.Context, text string) *debounce.PendingLookup {
	if text == "" {
		return nil
	}
	ps.metrics.DebouncedInputs.Inc()

	lookup := ps.debouncer.Schedule(text, 0, func(query string) {
		ps.mu.Lock()
		if ps.closed {
			ps.mu.Unlock()
			return
		}
		ps.wg.Add(1)
		ps.mu.Unlock()
		defer ps.wg.Done()

		if err := ps.search.Search(ctx, query); err != nil {
			ps.log.DebugContext(ctx, "Search produced no suggestions", "query", query, "error", err)
		}
	})

	return lookup
}

// Select recenters the map on a suggestion label.
func (ps *PickerService) Select(ctx context.Context, label string) error {
	if label == "" {
		return nil
	}

	return ps.center.SelectPlace(ctx, ps.addressPrefix+label)
}

// DragEnd reports the center the map settled on after a pan.
func (ps *PickerService) DragEnd(ctx context.Context, coord models.Coordinate) error {
	return ps.center.DragEnd(ctx, coord)
}

// Submit resolves the current center into a LocationRecord.
func (ps *PickerService) Submit(ctx context.Context) (models.LocationRecord, error) {
	return ps.center.Submit(ctx)
}

// Suggestions returns the current suggestion list.
func (ps *PickerService) Suggestions() []models.SuggestionOption {
	return ps.search.Suggestions()
}

// Center returns the current map center.
func (ps *PickerService) Center() models.Coordinate {
	return ps.center.Center()
}

// State returns the map-center controller state.
func (ps *PickerService) State() mapcenter.State {
	return ps.center.State()
}

// SetAPIKey persists key. The running providers keep the key they were built
// with; the new one is used from the next start.
func (ps *PickerService) SetAPIKey(ctx context.Context, key string) error {
	if ps.store == nil {
		return ErrNoSettings
	}
	if err := ps.store.SetAPIKey(key); err != nil {
		ps.log.ErrorContext(ctx, "Failed to store API key", "error", err)
		return err
	}
	ps.log.InfoContext(ctx, "API key stored", "path", ps.store.Path())

	return nil
}

// Close drops the pending search and waits for a search that already fired.
func (ps *PickerService) Close() {
	ps.debouncer.Cancel()

	ps.mu.Lock()
	ps.closed = true
	ps.mu.Unlock()

	ps.wg.Wait()
}
