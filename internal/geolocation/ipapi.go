package geolocation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/UnknownOlympus/paddos/internal/models"
	"golang.org/x/time/rate"
)

// IPAPIBaseURL -- ipapi.co API base URL.
const IPAPIBaseURL = "https://ipapi.co"

// IPAPIProvider locates addresses using ipapi.co.
type IPAPIProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the ipapi.co API
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Rate limiter
}

type ipapiResponse struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	City        string  `json:"city"`
	CountryName string  `json:"country_name"`
	CountryCode string  `json:"country_code"`
	Error       bool    `json:"error"`
	Reason      string  `json:"reason"`
}

// NewIPAPIProvider creates a new ipapi.co provider.
func NewIPAPIProvider(timeout time.Duration, rateLimit int, log *slog.Logger) *IPAPIProvider {
	return NewIPAPIProviderWithClient(
		&http.Client{Timeout: timeout},
		rate.NewLimiter(rate.Limit(rateLimit), max(rateLimit, 1)),
		log,
	)
}

// NewIPAPIProviderWithClient allows injecting custom HTTP client.
func NewIPAPIProviderWithClient(client HTTPClient, limiter *rate.Limiter, log *slog.Logger) *IPAPIProvider {
	return &IPAPIProvider{client: client, baseURL: IPAPIBaseURL, log: log, limiter: limiter}
}

// Locate resolves ip, or the caller's own address when ip is empty.
func (p *IPAPIProvider) Locate(ctx context.Context, ip string) (*models.Location, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	reqURL := p.baseURL + "/json/"
	if ip != "" {
		reqURL = p.baseURL + "/" + url.PathEscape(ip) + "/json/"
	}
	p.log.DebugContext(ctx, "Locating using ipapi.co", "url", reqURL)

	var result ipapiResponse
	if err := getJSON(ctx, p.client, reqURL, &result); err != nil {
		return nil, err
	}
	if result.Error {
		return nil, fmt.Errorf("%w: %s", ErrEmptyResponse, result.Reason)
	}

	return newLocation(result.Latitude, result.Longitude, result.City, result.CountryName, result.CountryCode)
}
