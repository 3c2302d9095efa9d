// Package geo provides great-circle helpers used to post-filter amenity results.
package geo

import (
	"math"

	"github.com/UnknownOlympus/paddos/internal/models"
	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean Earth radius used for every distance in the service.
const EarthRadiusKm = 6371.0

// Distance returns the haversine great-circle distance between a and b in kilometers.
// Non-finite or out-of-range input yields +Inf instead of an error; callers drop such results.
func Distance(a, b models.Coordinates) float64 {
	if !a.Valid() || !b.Valid() {
		return math.Inf(1)
	}

	from := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	to := s2.LatLngFromDegrees(b.Latitude, b.Longitude)

	return from.Distance(to).Radians() * EarthRadiusKm
}

// Round rounds value to the given number of decimal places.
func Round(value float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(value*pow) / pow
}
