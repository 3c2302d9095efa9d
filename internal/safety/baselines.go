package safety

import (
	"maps"
	"math"
	"strings"
)

// DefaultCountryCode is used when a request does not carry a country.
const DefaultCountryCode = "XX"

// DefaultFactor applies to every country missing from the baseline table.
const DefaultFactor = 1.00

// defaultBaselines holds per-country multipliers applied to the weighted score.
var defaultBaselines = map[string]float64{
	"NO": 1.18, "SE": 1.16, "DK": 1.16, "FI": 1.17, "CH": 1.15,
	"CA": 1.11, "DE": 1.10, "AU": 1.09, "GB": 1.08, "US": 1.04,
	"IN": 0.88, "BR": 0.89, "CN": 0.94, "MX": 0.84,
}

// Baselines is an immutable country code to factor lookup table.
type Baselines struct {
	factors map[string]float64
}

// DefaultBaselines returns the built-in country table.
func DefaultBaselines() *Baselines {
	return &Baselines{factors: maps.Clone(defaultBaselines)}
}

// WithOverrides returns a copy of the table where the given factors replace or extend the existing ones.
// Codes are upper-cased; non-finite and non-positive factors are skipped.
func (b *Baselines) WithOverrides(overrides map[string]float64) *Baselines {
	factors := maps.Clone(b.factors)
	for code, factor := range overrides {
		if math.IsNaN(factor) || math.IsInf(factor, 0) || factor <= 0 {
			continue
		}
		factors[normalizeCode(code)] = factor
	}

	return &Baselines{factors: factors}
}

// Factor returns the multiplier for the country code, DefaultFactor for unknown codes.
func (b *Baselines) Factor(code string) float64 {
	if factor, ok := b.factors[normalizeCode(code)]; ok {
		return factor
	}

	return DefaultFactor
}

// Len returns the number of countries with an explicit factor.
func (b *Baselines) Len() int {
	return len(b.factors)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
