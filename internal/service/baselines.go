package service

import (
	"context"
	"log/slog"

	"github.com/UnknownOlympus/paddos/internal/repository"
	"github.com/UnknownOlympus/paddos/internal/safety"
)

// LoadBaselines returns the built-in country table extended with the factors stored in repo.
// A nil repo or a failed read leaves the built-in table untouched.
func LoadBaselines(ctx context.Context, repo repository.Interface, log *slog.Logger) *safety.Baselines {
	baselines := safety.DefaultBaselines()
	if repo == nil {
		return baselines
	}

	overrides, err := repo.FetchCountryBaselines(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load country baselines, using built-in table", "error", err)
		return baselines
	}

	baselines = baselines.WithOverrides(overrides)
	log.InfoContext(ctx, "Country baselines loaded", "overrides", len(overrides), "countries", baselines.Len())

	return baselines
}
