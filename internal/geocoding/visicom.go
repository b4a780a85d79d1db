package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/waypoint/internal/address"
	"github.com/UnknownOlympus/waypoint/internal/models"
	"golang.org/x/time/rate"
)

// VisicomBaseURL -- Visicom API base URL.
const VisicomBaseURL = "https://api.visicom.ua/data-api/5.0/uk/geocode.json"

// VisicomProvider implements geocoding using Visicom API.
type VisicomProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the Visicom API
	apiKey  string        // API key with geocoding access
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Rate limiter
}

// Common errors for Visicom provider.
var (
	ErrVisicomEmptyResponse = errors.New("visicom API returned empty response")
	ErrVisicomEmptyAddress  = errors.New("visicom provider got empty address")
	ErrVisicomInvalidCoords = errors.New("visicom API returned invalid coordinates")
	ErrVisicomUnathorized   = errors.New("visicom API unathorized (invalid API key)")
)

// visicomFeature is a single GeoJSON feature, simplified for geocoding use-case.
type visicomFeature struct {
	Properties struct {
		Name       string `json:"name"`
		Street     string `json:"street"`
		Settlement string `json:"settlement"`
		Level1     string `json:"level1"`
		PostalCode string `json:"postal_code"`
		Country    string `json:"country"`
		CountryISO string `json:"country_code"`
		Address    string `json:"address"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat]
	} `json:"geo_centroid"`
}

// NewVisicomProvider creates a new Visicom geocoding provider.
func NewVisicomProvider(apiKey string, rateLimit int, log *slog.Logger) *VisicomProvider {
	const timeout = 10

	return NewVisicomProviderWithClient(
		&http.Client{Timeout: timeout * time.Second},
		apiKey,
		rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		log,
	)
}

// NewVisicomProviderWithClient allows injecting custom HTTP client.
func NewVisicomProviderWithClient(
	client HTTPClient,
	apiKey string,
	limiter *rate.Limiter,
	log *slog.Logger,
) *VisicomProvider {
	return &VisicomProvider{
		client:  client,
		baseURL: VisicomBaseURL,
		apiKey:  apiKey,
		log:     log,
		limiter: limiter,
	}
}

// Geocode converts address into geographic coordinates using Visicom API.
func (vp *VisicomProvider) Geocode(ctx context.Context, addr string) (*models.Coordinate, error) {
	vp.log.DebugContext(ctx, "Geocoding using Visicom", "address", addr)

	if addr == "" {
		return nil, ErrVisicomEmptyAddress
	}

	query := url.Values{}
	query.Set("text", addr)

	feature, err := vp.lookup(ctx, query)
	if err != nil {
		return nil, err
	}

	coord, err := feature.coordinate()
	if err != nil {
		return nil, err
	}

	vp.log.InfoContext(ctx, "Visicom found result", "address", addr, "lat", coord.Latitude, "lon", coord.Longitude)

	return coord, nil
}

// ReverseGeocode returns the nearest Visicom address to the point.
func (vp *VisicomProvider) ReverseGeocode(
	ctx context.Context,
	coord models.Coordinate,
) ([]models.GeocodeResult, error) {
	vp.log.DebugContext(ctx, "Reverse geocoding using Visicom", "lat", coord.Latitude, "lon", coord.Longitude)

	query := url.Values{}
	query.Set("near", strconv.FormatFloat(coord.Longitude, 'f', -1, 64)+","+
		strconv.FormatFloat(coord.Latitude, 'f', -1, 64))

	feature, err := vp.lookup(ctx, query)
	if err != nil {
		return nil, err
	}

	location, err := feature.coordinate()
	if err != nil {
		return nil, err
	}

	return []models.GeocodeResult{{
		FormattedAddress:  feature.formatted(),
		Location:          *location,
		AddressComponents: feature.components(),
	}}, nil
}

// lookup requests the single best feature matching query.
func (vp *VisicomProvider) lookup(ctx context.Context, query url.Values) (*visicomFeature, error) {
	if err := vp.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	reqURL, err := url.Parse(vp.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query.Set("limit", "1")
	query.Set("key", vp.apiKey)
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := vp.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// continue
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrVisicomUnathorized
	default:
		body, _ := io.ReadAll(resp.Body)
		vp.log.ErrorContext(ctx, "Visicom API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("visicom API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	vp.log.DebugContext(ctx, "Visicom raw response", "body", string(body))

	var feature visicomFeature
	if err = json.Unmarshal(body, &feature); err != nil {
		return nil, fmt.Errorf("failed to decode visicom response: %w", err)
	}

	return &feature, nil
}

func (f *visicomFeature) coordinate() (*models.Coordinate, error) {
	const coordsListLength = 2

	coords := f.Geometry.Coordinates
	if len(coords) == 0 {
		return nil, ErrVisicomEmptyResponse
	}
	if len(coords) != coordsListLength {
		return nil, ErrVisicomInvalidCoords
	}

	return &models.Coordinate{Latitude: coords[1], Longitude: coords[0]}, nil
}

func (f *visicomFeature) components() []models.AddressComponent {
	props := f.Properties
	parts := []struct{ value, tag string }{
		{props.Street, address.TypeRoute},
		{props.Settlement, address.TypeLocality},
		{props.Level1, address.TypeAdminLevel1},
		{props.PostalCode, address.TypePostalCode},
		{props.Country, address.TypeCountry},
	}

	components := make([]models.AddressComponent, 0, len(parts))
	for _, part := range parts {
		if part.value == "" {
			continue
		}
		short := part.value
		if part.tag == address.TypeCountry && props.CountryISO != "" {
			short = strings.ToUpper(props.CountryISO)
		}
		components = append(components, models.AddressComponent{
			LongName:  part.value,
			ShortName: short,
			Types:     []string{part.tag},
		})
	}

	return components
}

// formatted prefers the provider's own address line and otherwise joins the parts.
func (f *visicomFeature) formatted() string {
	if f.Properties.Address != "" {
		return f.Properties.Address
	}

	var parts []string
	for _, v := range []string{
		f.Properties.Name, f.Properties.Settlement, f.Properties.Level1, f.Properties.PostalCode, f.Properties.Country,
	} {
		if v != "" {
			parts = append(parts, v)
		}
	}

	return strings.Join(parts, ", ")
}
