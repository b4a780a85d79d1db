package mapcenter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/UnknownOlympus/waypoint/internal/address"
	"github.com/UnknownOlympus/waypoint/internal/metrics"
	"github.com/UnknownOlympus/waypoint/internal/models"
)

// DefaultZoom is the zoom level the map opens with.
const DefaultZoom = 15

// ErrStaleSubmit is returned when a newer submit has already been emitted.
var ErrStaleSubmit = errors.New("a newer submit already completed")

// State of the controller.
type State int

const (
	// Idle means no submit-triggered lookup is outstanding.
	Idle State = iota
	// Resolving means at least one reverse lookup started by Submit is outstanding.
	Resolving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Resolving:
		return "resolving"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Resolver is the geocoding dependency of the controller.
type Resolver interface {
	Forward(ctx context.Context, addr string) (models.Coordinate, error)
	Reverse(ctx context.Context, coord models.Coordinate) ([]models.GeocodeResult, error)
}

// Sink receives every emitted LocationRecord.
type Sink interface {
	Emit(ctx context.Context, record models.LocationRecord)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, record models.LocationRecord)

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, record models.LocationRecord) {
	f(ctx, record)
}

// Controller owns the map center. Drags and place selections move it; Submit
// resolves it into a LocationRecord.
type Controller struct {
	log      *slog.Logger
	resolver Resolver
	metrics  *metrics.Metrics

	mu           sync.Mutex
	center       models.Coordinate
	zoom         int
	pending      int
	latest       *models.LocationRecord
	sink         Sink
	discardStale bool
	submits      uint64
	applied      uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithSink sets the receiver of emitted records.
func WithSink(sink Sink) Option {
	return func(c *Controller) {
		c.sink = sink
	}
}

// WithDiscardStale makes a submit that completes after a newer one drop its record.
func WithDiscardStale() Option {
	return func(c *Controller) {
		c.discardStale = true
	}
}

// WithZoom overrides DefaultZoom.
func WithZoom(zoom int) Option {
	return func(c *Controller) {
		c.zoom = zoom
	}
}

// New creates a Controller centered on initial.
func New(
	log *slog.Logger,
	resolver Resolver,
	metrics *metrics.Metrics,
	initial models.Coordinate,
	opts ...Option,
) (*Controller, error) {
	if err := initial.Validate(); err != nil {
		return nil, fmt.Errorf("initial center: %w", err)
	}

	c := &Controller{
		log:      log,
		resolver: resolver,
		metrics:  metrics,
		center:   initial,
		zoom:     DefaultZoom,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Center returns the current map center.
func (c *Controller) Center() models.Coordinate {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.center
}

// Zoom returns the map zoom level.
func (c *Controller) Zoom() int {
	return c.zoom
}

// State reports whether a submit is being resolved.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending > 0 {
		return Resolving
	}

	return Idle
}

// Latest returns the last emitted record.
func (c *Controller) Latest() (models.LocationRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.latest == nil {
		return models.LocationRecord{}, false
	}

	return *c.latest, true
}

// DragEnd stores the center reported by the map after a pan. No provider call
// is made. Out-of-range coordinates leave the center unchanged.
func (c *Controller) DragEnd(ctx context.Context, coord models.Coordinate) error {
	if err := coord.Validate(); err != nil {
		c.log.WarnContext(ctx, "Ignoring drag to invalid center", "error", err)
		return err
	}

	c.mu.Lock()
	c.center = coord
	c.mu.Unlock()

	c.log.DebugContext(ctx, "Map center moved", "lat", coord.Latitude, "lng", coord.Longitude)

	return nil
}

// SelectPlace forward-geocodes a chosen suggestion and recenters the map on it.
// It never emits a record.
func (c *Controller) SelectPlace(ctx context.Context, label string) error {
	if label == "" {
		return nil
	}

	coord, err := c.resolver.Forward(ctx, label)
	if err != nil {
		c.log.ErrorContext(ctx, "Failed to resolve selected place", "label", label, "error", err)
		return err
	}

	c.mu.Lock()
	c.center = coord
	c.mu.Unlock()

	c.log.DebugContext(ctx, "Map recentered on place", "label", label, "lat", coord.Latitude, "lng", coord.Longitude)

	return nil
}

// Submit reverse-geocodes the current center. A record is emitted only when the
// normalized address has a postal code. Concurrent submits are allowed.
func (c *Controller) Submit(ctx context.Context) (models.LocationRecord, error) {
	c.mu.Lock()
	center := c.center
	c.pending++
	c.submits++
	seq := c.submits
	c.mu.Unlock()

	c.metrics.PendingResolutions.Inc()
	defer func() {
		c.mu.Lock()
		c.pending--
		c.mu.Unlock()
		c.metrics.PendingResolutions.Dec()
	}()

	results, err := c.resolver.Reverse(ctx, center)
	if err != nil {
		c.metrics.Submits.WithLabelValues("failure").Inc()
		c.log.ErrorContext(ctx, "Reverse geocoding failed", "lat", center.Latitude, "lng", center.Longitude, "error", err)
		return models.LocationRecord{}, err
	}

	addr, ok := address.Normalize(results)
	if !ok {
		c.metrics.Submits.WithLabelValues("unusable").Inc()
		c.log.WarnContext(ctx, "Reverse geocoding returned no address components", "results", len(results))
		return models.LocationRecord{}, address.ErrNoUsableResult
	}
	if !addr.IsUsable() {
		c.metrics.Submits.WithLabelValues("unusable").Inc()
		c.log.WarnContext(ctx, "Address has no postal code, try another location",
			"formatted_address", addr.FormattedAddress)
		return models.LocationRecord{}, models.ErrUnusableAddress
	}

	record := models.LocationRecord{Coordinate: center, Address: addr}

	c.mu.Lock()
	if c.discardStale && seq < c.applied {
		c.mu.Unlock()
		c.metrics.Submits.WithLabelValues("stale").Inc()
		c.log.DebugContext(ctx, "Discarding stale submit", "seq", seq)
		return models.LocationRecord{}, ErrStaleSubmit
	}
	c.applied = seq
	c.latest = &record
	sink := c.sink
	c.mu.Unlock()

	c.metrics.Submits.WithLabelValues("emitted").Inc()
	c.log.InfoContext(ctx, "Location record emitted",
		"formatted_address", addr.FormattedAddress, "postal_code", addr.PostalCode)

	if sink != nil {
		sink.Emit(ctx, record)
	}

	return record, nil
}
