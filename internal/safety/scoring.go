package safety

import (
	"fmt"

	"github.com/UnknownOlympus/paddos/internal/geo"
	"github.com/UnknownOlympus/paddos/internal/models"
)

// Component weights of the combined score. They sum to 1.
const (
	WeightTemporal       = 0.28
	WeightEmergency      = 0.27
	WeightDensity        = 0.25
	WeightInfrastructure = 0.20
)

// Report colors.
const (
	ColorGreen  = "#4CAF50"
	ColorAmber  = "#FFC107"
	ColorOrange = "#FF9800"
	ColorRed    = "#F44336"
	ColorGray   = "#999999"

	statusRed = "#f44336"
)

// trackedSources is the number of success flags behind the confidence value.
const trackedSources = 4

// maxConfidence is the confidence reported when every tracked source answered.
const maxConfidence = 85.0

// TemporalScore scores the hour of day and returns a human readable period label.
func TemporalScore(hour int) (float64, string) {
	switch {
	case hour >= 9 && hour <= 18:
		return 88, fmt.Sprintf("%d:00 - Low Risk", hour)
	case (hour >= 7 && hour < 9) || (hour > 18 && hour <= 20):
		return 62, fmt.Sprintf("%d:00 - Moderate Risk", hour)
	default:
		return 25, fmt.Sprintf("%d:00 - High Risk", hour)
	}
}

// EmergencyScore scores the distance to the closest hospital or police station.
func EmergencyScore(emergency []models.PlaceRecord) float64 {
	if len(emergency) == 0 {
		return 22
	}

	nearest := emergency[0].DistanceKm
	for _, place := range emergency[1:] {
		if place.DistanceKm < nearest {
			nearest = place.DistanceKm
		}
	}

	switch {
	case nearest <= 0.8:
		return 96
	case nearest <= 1.5:
		return 85
	case nearest <= 2.5:
		return 70
	case nearest <= 4.0:
		return 50
	default:
		return 30
	}
}

// DensityScore scores the number of shops and restaurants nearby, discounted late at night.
func DensityScore(activityCount, hour int) float64 {
	var score float64
	switch {
	case activityCount >= 60:
		score = 92
	case activityCount >= 40:
		score = 82
	case activityCount >= 25:
		score = 68
	case activityCount >= 12:
		score = 50
	default:
		score = 35
	}

	if hour < 6 || hour > 22 {
		score *= 0.7
	}

	return score
}

// InfrastructureScore scores street lighting and transit stops. Daylight hours use a flatter scale.
func InfrastructureScore(infraCount, hour int) float64 {
	if hour >= 6 && hour <= 19 {
		if infraCount >= 20 {
			return 80
		}
		return 65
	}

	switch {
	case infraCount >= 20:
		return 85
	case infraCount >= 10:
		return 60
	default:
		return 30
	}
}

// Combine returns the weighted sum of the breakdown components.
func Combine(breakdown models.ScoreBreakdown) float64 {
	return breakdown.TemporalRisk*WeightTemporal +
		breakdown.EmergencyProximity*WeightEmergency +
		breakdown.PopulationDensity*WeightDensity +
		breakdown.Infrastructure*WeightInfrastructure
}

// Adjust applies the country factor once and clamps the result to [0, 100].
func Adjust(raw, factor float64) float64 {
	return min(max(raw*factor, 0), 100)
}

// RatingFor maps a final score onto its rating band and color.
func RatingFor(score float64) (models.Rating, string) {
	switch {
	case score >= 75:
		return models.RatingSafe, ColorGreen
	case score >= 55:
		return models.RatingModerate, ColorAmber
	case score >= 35:
		return models.RatingCaution, ColorOrange
	default:
		return models.RatingHighRisk, ColorRed
	}
}

// Confidence is a data completeness proxy: the share of tracked sources that answered, scaled to 85.
func Confidence(successful int) float64 {
	return geo.Round(maxConfidence*float64(successful)/trackedSources, 1)
}
