package repository

import (
	"context"
	"fmt"
	"strings"
)

// FetchCountryBaselines reads the per-country safety factors stored in the database.
// Country codes are returned upper-cased.
func (r *Repository) FetchCountryBaselines(ctx context.Context) (map[string]float64, error) {
	query := `
		SELECT country_code, factor
		FROM public.country_baselines
		WHERE factor > 0
		ORDER BY country_code ASC;
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query country baselines: %w", err)
	}
	defer rows.Close()

	baselines := make(map[string]float64)
	for rows.Next() {
		var (
			code   string
			factor float64
		)
		if errScan := rows.Scan(&code, &factor); errScan != nil {
			return nil, fmt.Errorf("failed to scan country baseline: %w", errScan)
		}
		r.log.DebugContext(ctx, "Country baseline loaded", "code", code, "factor", factor)
		baselines[strings.ToUpper(code)] = factor
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return baselines, nil
}

// Ping reports whether the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
