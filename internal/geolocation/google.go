package geolocation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/UnknownOlympus/paddos/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider locates the server's own address with the Google Geolocation API
// and names it with a reverse geocoding lookup.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	log    *slog.Logger    // log is the logger for logging operations
}

type GoogleAPIClient interface {
	Geolocate(ctx context.Context, r *maps.GeolocationRequest) (*maps.GeolocationResult, error)
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// NewGoogleProvider creates a Google provider on top of the given client.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// Locate ignores ip: the Geolocation API can only consider the address of the calling server.
func (gp *GoogleProvider) Locate(ctx context.Context, _ string) (*models.Location, error) {
	gp.log.DebugContext(ctx, "Locating using Google Geolocation")

	result, err := gp.client.Geolocate(ctx, &maps.GeolocationRequest{ConsiderIP: true})
	if err != nil {
		return nil, fmt.Errorf("failed to geolocate: %w", err)
	}
	if result == nil {
		return nil, ErrEmptyResponse
	}

	lat, lon := result.Location.Lat, result.Location.Lng
	city, country, code := gp.describe(ctx, lat, lon)

	return newLocation(lat, lon, city, country, code)
}

// describe resolves the city and country of a point. Failures leave the names empty.
func (gp *GoogleProvider) describe(ctx context.Context, lat, lon float64) (string, string, string) {
	results, err := gp.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lon},
	})
	if err != nil {
		gp.log.WarnContext(ctx, "Reverse geocoding failed", "lat", lat, "lon", lon, "error", err)
		return "", "", ""
	}

	var city, country, code string
	for _, result := range results {
		for _, component := range result.AddressComponents {
			switch {
			case city == "" && slices.Contains(component.Types, "locality"):
				city = component.LongName
			case country == "" && slices.Contains(component.Types, "country"):
				country, code = component.LongName, component.ShortName
			}
		}
	}

	return city, country, code
}
