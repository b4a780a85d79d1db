package config

import (
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the location picker.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - Port: The port for the monitoring server, 0 disables it.
// - ProviderType: The type of geocoding provider to use (google, nominatim, visicom).
// - APIKey: Provider key from the environment; overrides the stored one when set.
// - RateLimit: Provider requests per second.
// - Debounce: Delay between the last keystroke and the place search.
// - SettingsFile: Path of the persisted settings, empty means the user config dir.
// - CenterLat, CenterLng: Initial map center.
// - DiscardStale: Drop out-of-order search and submit completions.
type Config struct {
	Env          string        // Env is the current environment: local, development, production.
	Port         int           // Port is the monitoring server port.
	ProviderType string        // ProviderType specifies which geocoding provider to use
	APIKey       string        // The API key for accessing the provider.
	RateLimit    int           // Provider requests per second.
	Debounce     time.Duration // Search debounce delay.
	SettingsFile string        // Persisted settings file.
	CenterLat    float64       // Initial map center latitude.
	CenterLng    float64       // Initial map center longitude.
	DiscardStale bool          // Attach sequence numbers to searches and submits.
	AddrPrefix   string        // Address prefix for more accurate geocoding
}

const envPrefix = "WAYPOINT"

// MustLoad reads the configuration from WAYPOINT_* environment variables, after
// loading a .env file if one is present. It panics on values that cannot be parsed.
func MustLoad() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetDefault("env", "production")
	v.SetDefault("health_port", "0")
	v.SetDefault("provider_type", "google") // Google matches the original map widget
	v.SetDefault("rate_limit", "10")
	v.SetDefault("debounce", "500ms")
	v.SetDefault("center_lat", "29.57428043673804")
	v.SetDefault("center_lng", "74.34091367876584")
	v.SetDefault("discard_stale", "false")

	debounce, err := time.ParseDuration(v.GetString("debounce"))
	if err != nil {
		panic("failed to parse debounce delay from configuration")
	}

	healthPort, err := strconv.Atoi(v.GetString("health_port"))
	if err != nil {
		panic("failed to parse port for monitoring server from configuration")
	}

	rateLimit, err := strconv.Atoi(v.GetString("rate_limit"))
	if err != nil {
		panic("failed to parse rate limit from configuration, must be an integer types")
	}

	centerLat, err := strconv.ParseFloat(v.GetString("center_lat"), 64)
	if err != nil {
		panic("failed to parse center latitude from configuration")
	}

	centerLng, err := strconv.ParseFloat(v.GetString("center_lng"), 64)
	if err != nil {
		panic("failed to parse center longitude from configuration")
	}

	discardStale, err := strconv.ParseBool(v.GetString("discard_stale"))
	if err != nil {
		panic("failed to parse discard_stale from configuration, must be a boolean")
	}

	return &Config{
		Env:          v.GetString("env"),
		Port:         healthPort,
		ProviderType: v.GetString("provider_type"),
		APIKey:       v.GetString("provider_key"),
		RateLimit:    rateLimit,
		Debounce:     debounce,
		SettingsFile: v.GetString("settings_file"),
		CenterLat:    centerLat,
		CenterLng:    centerLng,
		DiscardStale: discardStale,
		AddrPrefix:   v.GetString("address_prefix"),
	}
}
