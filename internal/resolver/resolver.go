package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/waypoint/internal/geocoding"
	"github.com/UnknownOlympus/waypoint/internal/metrics"
	"github.com/UnknownOlympus/waypoint/internal/models"
)

// Operation names used in errors and metrics.
const (
	OpForward = "forward"
	OpReverse = "reverse"
)

var (
	// ErrResolution matches every *ResolutionError via errors.Is.
	ErrResolution = errors.New("geocode resolution failed")
	// ErrNoResults is the cause when a provider answers without any result.
	ErrNoResults = errors.New("no results")
	// ErrEmptyAddress is the cause when forward resolution is asked for "".
	ErrEmptyAddress = errors.New("empty address")
)

// ResolutionError reports a failed forward or reverse lookup.
type ResolutionError struct {
	Op    string // OpForward or OpReverse
	Input string // address text or "lat,lng"
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s geocoding of %q failed: %v", e.Op, e.Input, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrResolution) true for any ResolutionError.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolution
}

// Resolver converts between addresses and coordinates. Every call issues a
// fresh provider request: there is no caching and no retry.
type Resolver struct {
	log          *slog.Logger
	provider     geocoding.Provider
	providerName string
	metrics      *metrics.Metrics
}

// New creates a Resolver. providerName labels the metrics.
func New(log *slog.Logger, provider geocoding.Provider, providerName string, metrics *metrics.Metrics) *Resolver {
	return &Resolver{
		log:          log,
		provider:     provider,
		providerName: providerName,
		metrics:      metrics,
	}
}

// Forward resolves free text, such as a selected suggestion, to the coordinate
// of the provider's best match.
func (r *Resolver) Forward(ctx context.Context, addr string) (models.Coordinate, error) {
	if addr == "" {
		return models.Coordinate{}, &ResolutionError{Op: OpForward, Err: ErrEmptyAddress}
	}

	start := time.Now()
	coord, err := r.provider.Geocode(ctx, addr)
	r.observe(OpForward, start, err)

	if err != nil {
		return models.Coordinate{}, &ResolutionError{Op: OpForward, Input: addr, Err: err}
	}
	if coord == nil {
		return models.Coordinate{}, &ResolutionError{Op: OpForward, Input: addr, Err: ErrNoResults}
	}

	r.log.DebugContext(ctx, "Address resolved", "address", addr, "lat", coord.Latitude, "lng", coord.Longitude)

	return *coord, nil
}

// Reverse resolves a coordinate to raw geocode results, most specific first.
func (r *Resolver) Reverse(ctx context.Context, coord models.Coordinate) ([]models.GeocodeResult, error) {
	input := fmt.Sprintf("%f,%f", coord.Latitude, coord.Longitude)
	if err := coord.Validate(); err != nil {
		return nil, &ResolutionError{Op: OpReverse, Input: input, Err: err}
	}

	start := time.Now()
	results, err := r.provider.ReverseGeocode(ctx, coord)
	if err == nil && len(results) == 0 {
		err = ErrNoResults
	}
	r.observe(OpReverse, start, err)

	if err != nil {
		return nil, &ResolutionError{Op: OpReverse, Input: input, Err: err}
	}

	r.log.DebugContext(ctx, "Coordinate resolved", "lat", coord.Latitude, "lng", coord.Longitude, "results", len(results))

	return results, nil
}

func (r *Resolver) observe(op string, start time.Time, err error) {
	r.metrics.RequestSeconds.WithLabelValues(r.providerName, op).Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "failure"
		r.metrics.APIErrors.Inc()
	}
	r.metrics.ProviderRequests.WithLabelValues(r.providerName, op, status).Inc()
}
