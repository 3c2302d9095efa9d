package geolocation

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"googlemaps.github.io/maps"
)

// ProviderType represents the type of geolocation provider.
type ProviderType string

const (
	// ProviderTypeIPAPI represents the ipapi.co provider.
	ProviderTypeIPAPI ProviderType = "ipapi"
	// ProviderTypeIPAPICom represents the ip-api.com provider.
	ProviderTypeIPAPICom ProviderType = "ipapicom"
	// ProviderTypeGoogle represents the Google Geolocation API provider.
	ProviderTypeGoogle ProviderType = "google"
)

// ProviderConfig holds configuration for creating a geolocation provider.
type ProviderConfig struct {
	Type      ProviderType  // Type of provider to create
	APIKey    string        // API key (used by Google provider)
	RateLimit int           // Requests per second
	Timeout   time.Duration // Per-request timeout
	Logger    *slog.Logger  // Logger for the provider
}

// NewProvider creates a geolocation provider based on the provided configuration.
// Returns an error if the provider type is unsupported or if provider creation fails.
func NewProvider(config ProviderConfig) (Provider, error) {
	if config.RateLimit <= 0 {
		config.RateLimit = 1
	}

	switch config.Type {
	case ProviderTypeIPAPI:
		return NewIPAPIProvider(config.Timeout, config.RateLimit, config.Logger), nil
	case ProviderTypeIPAPICom:
		return NewIPAPIComProvider(config.Timeout, config.RateLimit, config.Logger), nil
	case ProviderTypeGoogle:
		return newGoogleProvider(config)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}

// newGoogleProvider creates a Google Maps geolocation provider.
func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Google provider")
	}

	client, err := maps.NewClient(maps.WithAPIKey(config.APIKey), maps.WithRateLimit(config.RateLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleProvider(client, config.Logger), nil
}
