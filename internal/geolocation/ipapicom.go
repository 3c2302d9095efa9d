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

// IPAPIComBaseURL -- ip-api.com API base URL. The free tier is HTTP only.
const IPAPIComBaseURL = "http://ip-api.com/json/"

// IPAPIComProvider locates addresses using ip-api.com.
type IPAPIComProvider struct {
	client  HTTPClient
	baseURL string
	log     *slog.Logger
	limiter *rate.Limiter
}

type ipapiComResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	City        string  `json:"city"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
}

// NewIPAPIComProvider creates a new ip-api.com provider.
func NewIPAPIComProvider(timeout time.Duration, rateLimit int, log *slog.Logger) *IPAPIComProvider {
	return NewIPAPIComProviderWithClient(
		&http.Client{Timeout: timeout},
		rate.NewLimiter(rate.Limit(rateLimit), max(rateLimit, 1)),
		log,
	)
}

// NewIPAPIComProviderWithClient allows injecting custom HTTP client.
func NewIPAPIComProviderWithClient(client HTTPClient, limiter *rate.Limiter, log *slog.Logger) *IPAPIComProvider {
	return &IPAPIComProvider{client: client, baseURL: IPAPIComBaseURL, log: log, limiter: limiter}
}

// Locate resolves ip, or the caller's own address when ip is empty.
func (p *IPAPIComProvider) Locate(ctx context.Context, ip string) (*models.Location, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	reqURL := p.baseURL + url.PathEscape(ip)
	p.log.DebugContext(ctx, "Locating using ip-api.com", "url", reqURL)

	var result ipapiComResponse
	if err := getJSON(ctx, p.client, reqURL, &result); err != nil {
		return nil, err
	}
	if result.Status != "" && result.Status != "success" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyResponse, result.Message)
	}

	return newLocation(result.Lat, result.Lon, result.City, result.Country, result.CountryCode)
}
