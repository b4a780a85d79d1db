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

// NominatimBaseURL is the public OpenStreetMap Nominatim endpoint.
const NominatimBaseURL = "https://nominatim.openstreetmap.org"

const (
	nominatimUserAgent   = "Waypoint-Location-Picker/1.0 (https://github.com/UnknownOlympus/waypoint)"
	nominatimSuggestions = 5
)

// NominatimProvider implements Provider and Predictor using OpenStreetMap's Nominatim API.
// This is a free geocoding service with usage limits (1 request/second for fair use).
type NominatimProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the Nominatim API
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Keeps requests within the usage policy
	// userAgent is required by Nominatim usage policy
	userAgent string
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type nominatimAddress struct {
	HouseNumber string `json:"house_number"`
	Road        string `json:"road"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	State       string `json:"state"`
	Postcode    string `json:"postcode"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

// nominatimPlace represents a single place returned by /search and /reverse.
type nominatimPlace struct {
	PlaceID     int64            `json:"place_id"`
	Lat         string           `json:"lat"` // Latitude as string
	Lon         string           `json:"lon"` // Longitude as string
	DisplayName string           `json:"display_name"`
	Address     nominatimAddress `json:"address"`
	Error       string           `json:"error"` // Set by /reverse when nothing is found
}

// Common errors for Nominatim provider.
var (
	ErrNominatimEmptyResponse = errors.New("nominatim API returned empty response")
	ErrNominatimInvalidCoords = errors.New("nominatim API returned invalid coordinates")
)

// NewNominatimProvider creates a new Nominatim geocoding provider that issues at
// most rateLimit requests per second (1 when rateLimit is not positive).
func NewNominatimProvider(rateLimit int, log *slog.Logger) *NominatimProvider {
	const timeout = 10
	if rateLimit <= 0 {
		rateLimit = 1
	}

	provider := NewNominatimProviderWithClient(&http.Client{Timeout: timeout * time.Second}, log)
	provider.limiter = rate.NewLimiter(rate.Limit(rateLimit), 1)

	return provider
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client
// and no rate limiting. Useful for testing with mocked HTTP clients.
func NewNominatimProviderWithClient(client HTTPClient, log *slog.Logger) *NominatimProvider {
	return &NominatimProvider{
		client:  client,
		baseURL: NominatimBaseURL,
		log:     log,
		limiter: rate.NewLimiter(rate.Inf, 0),
		// User-Agent MUST include valid contact info per Nominatim usage policy:
		// https://operations.osmfoundation.org/policies/nominatim/
		userAgent: nominatimUserAgent,
	}
}

// Geocode converts an address to geographic coordinates using the Nominatim API.
//
// Uses a progressive fallback strategy for partial addresses:
// 1. Try the full address
// 2. Drop the last comma-separated component
// 3. Drop the last two components
// 4. Try the first component alone
func (np *NominatimProvider) Geocode(ctx context.Context, addr string) (*models.Coordinate, error) {
	np.log.DebugContext(ctx, "Geocoding using Nominatim", "address", addr)

	variations := addressFallbacks(addr)
	for idx, variation := range variations {
		places, err := np.search(ctx, variation, 1)
		if err != nil {
			return nil, err
		}
		if len(places) == 0 {
			np.log.DebugContext(ctx, "Address variation returned no results, trying fallback",
				"variation", variation,
				"fallback_level", idx)
			continue
		}

		if idx > 0 {
			np.log.InfoContext(ctx, "Geocoded using fallback address",
				"original", addr,
				"fallback", variation,
				"fallback_level", idx)
		}

		return places[0].coordinate()
	}

	np.log.WarnContext(ctx, "All address fallbacks exhausted", "address", addr, "variations_tried", len(variations))

	return nil, ErrNominatimEmptyResponse
}

// ReverseGeocode resolves a point with the /reverse endpoint. Nominatim returns a
// single place; its address details are mapped onto Google-style component tags.
func (np *NominatimProvider) ReverseGeocode(
	ctx context.Context,
	coord models.Coordinate,
) ([]models.GeocodeResult, error) {
	np.log.DebugContext(ctx, "Reverse geocoding using Nominatim", "lat", coord.Latitude, "lon", coord.Longitude)

	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(coord.Latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(coord.Longitude, 'f', -1, 64))
	query.Set("format", "json")
	query.Set("addressdetails", "1")

	var place nominatimPlace
	if err := np.get(ctx, "/reverse", query, &place); err != nil {
		return nil, err
	}

	if place.Error != "" || place.DisplayName == "" {
		np.log.DebugContext(ctx, "Nominatim reverse lookup found nothing", "error", place.Error)
		return nil, ErrNominatimEmptyResponse
	}

	location, err := place.coordinate()
	if err != nil {
		return nil, err
	}

	return []models.GeocodeResult{{
		PlaceID:           strconv.FormatInt(place.PlaceID, 10),
		FormattedAddress:  place.DisplayName,
		Location:          *location,
		AddressComponents: place.Address.components(),
	}}, nil
}

// Predict returns display names of the best matches for the partial input.
func (np *NominatimProvider) Predict(ctx context.Context, input string) ([]string, error) {
	places, err := np.search(ctx, input, nominatimSuggestions)
	if err != nil {
		return nil, err
	}

	descriptions := make([]string, 0, len(places))
	for _, place := range places {
		descriptions = append(descriptions, place.DisplayName)
	}

	return descriptions, nil
}

func (np *NominatimProvider) search(ctx context.Context, text string, limit int) ([]nominatimPlace, error) {
	query := url.Values{}
	query.Set("q", text)
	query.Set("format", "json")
	query.Set("limit", strconv.Itoa(limit))
	query.Set("addressdetails", "1")

	var places []nominatimPlace
	if err := np.get(ctx, "/search", query, &places); err != nil {
		return nil, err
	}

	return places, nil
}

// get performs a single rate-limited request and decodes the JSON body into out.
func (np *NominatimProvider) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := np.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	reqURL, err := url.Parse(np.baseURL + path)
	if err != nil {
		return fmt.Errorf("failed to parse base URL: %w", err)
	}
	reqURL.RawQuery = query.Encode()

	np.log.DebugContext(ctx, "Nominatim request URL", "url", reqURL.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", np.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := np.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("nominatim API returned status %d: %s", resp.StatusCode, string(body))
	}

	np.log.DebugContext(ctx, "Nominatim raw response", "body", string(body))

	if err = json.Unmarshal(body, out); err != nil {
		np.log.ErrorContext(ctx, "Failed to parse Nominatim response", "error", err, "body", string(body))
		return fmt.Errorf("failed to decode nominatim response: %w", err)
	}

	return nil
}

func (p nominatimPlace) coordinate() (*models.Coordinate, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid latitude: %s", ErrNominatimInvalidCoords, p.Lat)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid longitude: %s", ErrNominatimInvalidCoords, p.Lon)
	}

	return &models.Coordinate{Latitude: lat, Longitude: lon}, nil
}

// components lists the address parts from the most to the least specific.
func (a nominatimAddress) components() []models.AddressComponent {
	city := a.City
	if city == "" {
		city = a.Town
	}
	if city == "" {
		city = a.Village
	}

	parts := []struct {
		long, short, tag string
	}{
		{a.HouseNumber, a.HouseNumber, address.TypeStreetNumber},
		{a.Road, a.Road, address.TypeRoute},
		{city, city, address.TypeLocality},
		{a.State, a.State, address.TypeAdminLevel1},
		{a.Postcode, a.Postcode, address.TypePostalCode},
		{a.Country, strings.ToUpper(a.CountryCode), address.TypeCountry},
	}

	components := make([]models.AddressComponent, 0, len(parts))
	for _, part := range parts {
		if part.long == "" {
			continue
		}
		components = append(components, models.AddressComponent{
			LongName:  part.long,
			ShortName: part.short,
			Types:     []string{part.tag},
		})
	}

	return components
}

// addressFallbacks creates a list of progressively simpler address variations.
func addressFallbacks(addr string) []string {
	if addr == "" {
		return []string{""}
	}

	seen := make(map[string]bool)
	variations := []string{}
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			variations = append(variations, v)
		}
	}

	add(addr)

	parts := strings.Split(addr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if len(parts) > 1 {
		add(strings.Join(parts[:len(parts)-1], ", "))

		const lenComponents = 2
		if len(parts) > lenComponents {
			add(strings.Join(parts[:len(parts)-2], ", "))
		}

		add(parts[0])
	}

	return variations
}
