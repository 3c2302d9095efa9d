// Package geolocation guesses a client's coarse position from its IP address using external providers.
package geolocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"

	"github.com/UnknownOlympus/paddos/internal/models"
)

// Provider is an interface that defines a method for locating an IP address.
// An empty ip asks the provider to locate the caller's own public address.
type Provider interface {
	Locate(ctx context.Context, ip string) (*models.Location, error)
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Common errors for geolocation providers.
var (
	ErrEmptyResponse      = errors.New("geolocation provider returned empty response")
	ErrInvalidCoords      = errors.New("geolocation provider returned invalid coordinates")
	ErrProviderStatus     = errors.New("geolocation provider returned unexpected status")
	ErrAllProvidersFailed = errors.New("location detection failed")
)

// Defaults for names a provider could not resolve.
const (
	unknownName = "Unknown"
	unknownCode = "XX"
)

const userAgent = "Paddos-Safety-Service/1.0 (https://github.com/UnknownOlympus/paddos)"

// getJSON performs a GET request and decodes a JSON body into out.
func getJSON(ctx context.Context, client HTTPClient, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute geolocation request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w %d: %s", ErrProviderStatus, resp.StatusCode, string(body))
	}

	if err = json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode geolocation response: %w", err)
	}

	return nil
}

// newLocation validates coordinates and fills unresolved names with defaults.
func newLocation(lat, lon float64, city, country, code string) (*models.Location, error) {
	if lat == 0 || lon == 0 {
		return nil, fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoords, lat, lon)
	}
	if !(models.Coordinates{Latitude: lat, Longitude: lon}).Valid() {
		return nil, fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoords, lat, lon)
	}

	return &models.Location{
		Latitude:    lat,
		Longitude:   lon,
		City:        orDefault(city, unknownName),
		Country:     orDefault(country, unknownName),
		CountryCode: orDefault(code, unknownCode),
	}, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}

// PublicIP returns ip if it is a routable public address and "" otherwise,
// so that providers fall back to locating the server's own address.
func PublicIP(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ""
	}
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsMulticast() {
		return ""
	}

	return addr.Unmap().String()
}
