package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/UnknownOlympus/waypoint/internal/geocoding"
	"github.com/UnknownOlympus/waypoint/internal/metrics"
	"github.com/UnknownOlympus/waypoint/internal/models"
)

var (
	// ErrPrediction matches every *PredictionError via errors.Is.
	ErrPrediction = errors.New("place prediction failed")
	// ErrNotReady is returned when Search runs before Init.
	ErrNotReady = errors.New("autocomplete service is not initialized")
)

// PredictionError reports an autocomplete request the service did not answer.
type PredictionError struct {
	Query string
	Err   error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("predictions for %q: %v", e.Query, e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrPrediction) true for any PredictionError.
func (e *PredictionError) Is(target error) bool {
	return target == ErrPrediction
}

// Controller keeps the autocomplete suggestions for the search box.
//
// Every successful search replaces the whole list. By default the search that
// completes last wins, even if it was issued earlier; WithDiscardStale drops
// completions older than the newest list already shown.
type Controller struct {
	log     *slog.Logger
	metrics *metrics.Metrics

	mu           sync.Mutex
	predictor    geocoding.Predictor
	suggestions  []models.SuggestionOption
	discardStale bool
	issued       uint64
	applied      uint64
	onChange     func([]models.SuggestionOption)
}

// Option configures a Controller.
type Option func(*Controller)

// WithDiscardStale enables sequence numbering of searches.
func WithDiscardStale() Option {
	return func(c *Controller) {
		c.discardStale = true
	}
}

// WithOnChange registers fn to receive every new suggestion list.
func WithOnChange(fn func([]models.SuggestionOption)) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// New creates a Controller without an autocomplete service; see Init.
func New(log *slog.Logger, metrics *metrics.Metrics, opts ...Option) *Controller {
	c := &Controller{log: log, metrics: metrics}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Init installs the autocomplete service. Only the first call has an effect;
// it reports whether predictor was installed.
func (c *Controller) Init(predictor geocoding.Predictor) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.predictor != nil || predictor == nil {
		return false
	}
	c.predictor = predictor

	return true
}

// Ready reports whether Init has installed a service.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.predictor != nil
}

// Search requests predictions for query and, on success, replaces the
// suggestion list. On failure the list is left untouched.
func (c *Controller) Search(ctx context.Context, query string) error {
	if query == "" {
		return nil
	}

	c.mu.Lock()
	predictor := c.predictor
	c.issued++
	seq := c.issued
	c.mu.Unlock()

	if predictor == nil {
		c.log.DebugContext(ctx, "Search dropped, autocomplete service not ready", "query", query)
		return ErrNotReady
	}

	predictions, err := predictor.Predict(ctx, query)
	if err != nil {
		c.metrics.Searches.WithLabelValues("failure").Inc()
		c.log.WarnContext(ctx, "Place predictions failed", "query", query, "error", err)
		return &PredictionError{Query: query, Err: err}
	}

	options := make([]models.SuggestionOption, 0, len(predictions))
	for _, description := range predictions {
		options = append(options, models.SuggestionOption{Label: description})
	}

	c.mu.Lock()
	if c.discardStale && seq < c.applied {
		c.mu.Unlock()
		c.metrics.Searches.WithLabelValues("stale").Inc()
		c.log.DebugContext(ctx, "Discarding stale predictions", "query", query, "seq", seq)
		return nil
	}
	c.applied = seq
	c.suggestions = options
	onChange := c.onChange
	c.mu.Unlock()

	c.metrics.Searches.WithLabelValues("success").Inc()
	c.log.DebugContext(ctx, "Suggestions updated", "query", query, "options", len(options))

	if onChange != nil {
		onChange(slices.Clone(options))
	}

	return nil
}

// Suggestions returns a copy of the current list.
func (c *Controller) Suggestions() []models.SuggestionOption {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.suggestions)
}
