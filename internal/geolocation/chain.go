package geolocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/paddos/internal/metrics"
	"github.com/UnknownOlympus/paddos/internal/models"
)

// ChainEntry is a named provider inside a Chain.
type ChainEntry struct {
	Name     string
	Provider Provider
}

// Chain tries providers in priority order and returns the first successful answer.
type Chain struct {
	entries []ChainEntry
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewChain creates a chain over the given providers, highest priority first.
func NewChain(log *slog.Logger, metrics *metrics.Metrics, entries ...ChainEntry) *Chain {
	return &Chain{entries: entries, log: log, metrics: metrics}
}

// Locate resolves ip with the first provider that succeeds. Non-public addresses
// are replaced with "" so providers locate the server itself.
func (c *Chain) Locate(ctx context.Context, ip string) (*models.Location, error) {
	target := PublicIP(ip)
	errs := make([]error, 0, len(c.entries))

	for _, entry := range c.entries {
		location, err := entry.Provider.Locate(ctx, target)
		if err == nil {
			c.log.DebugContext(ctx, "Location detected", "provider", entry.Name,
				"city", location.City, "code", location.CountryCode)
			return location, nil
		}

		c.log.WarnContext(ctx, "Geolocation provider failed, trying next", "provider", entry.Name, "error", err)
		c.metrics.GeolocationErrors.WithLabelValues(entry.Name).Inc()
		errs = append(errs, fmt.Errorf("%s: %w", entry.Name, err))
	}

	if len(errs) == 0 {
		return nil, ErrAllProvidersFailed
	}

	return nil, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
}

// NewChainFromTypes builds providers for the given types in order.
func NewChainFromTypes(
	types []ProviderType,
	base ProviderConfig,
	log *slog.Logger,
	metrics *metrics.Metrics,
) (*Chain, error) {
	entries := make([]ChainEntry, 0, len(types))
	for _, providerType := range types {
		config := base
		config.Type = providerType
		provider, err := NewProvider(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s provider: %w", providerType, err)
		}
		entries = append(entries, ChainEntry{Name: string(providerType), Provider: provider})
	}

	return NewChain(log, metrics, entries...), nil
}
