package amenity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/UnknownOlympus/paddos/internal/models"
)

// ErrUnknownCategory is returned when a category has no query mapping.
var ErrUnknownCategory = errors.New("unknown place category")

// category maps a place category onto Overpass filter statements and a default search radius.
type category struct {
	filters []string // Overpass statements without the around clause.
	radius  int      // Default search radius in meters.
}

// categories is the fixed category-to-query table.
var categories = map[models.PlaceCategory]category{
	models.CategoryHospital: {
		filters: []string{`node["amenity"="hospital"]`, `way["amenity"="hospital"]`},
		radius:  5000,
	},
	models.CategoryPolice: {
		filters: []string{`node["amenity"="police"]`, `way["amenity"="police"]`},
		radius:  5000,
	},
	models.CategoryBusStop: {
		filters: []string{`node["highway"="bus_stop"]`},
		radius:  1000,
	},
	models.CategoryTrain: {
		filters: []string{`node["railway"="station"]`},
		radius:  2000,
	},
	models.CategoryActivity: {
		filters: []string{`node["shop"]`, `node["amenity"="restaurant"]`},
		radius:  600,
	},
	models.CategoryInfrastructure: {
		filters: []string{`node["highway"="street_lamp"]`, `way["lit"="yes"]`},
		radius:  500,
	},
}

// DefaultRadius returns the default search radius in meters for the category, or 0 if it is unknown.
func DefaultRadius(cat models.PlaceCategory) int {
	return categories[cat].radius
}

// BuildQuery renders the Overpass QL query for places of the category within radius meters of center.
func BuildQuery(center models.Coordinates, cat models.PlaceCategory, radius int, timeoutSec int) (string, error) {
	def, ok := categories[cat]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}

	around := fmt.Sprintf("(around:%d,%s,%s);",
		radius,
		strconv.FormatFloat(center.Latitude, 'f', -1, 64),
		strconv.FormatFloat(center.Longitude, 'f', -1, 64),
	)

	var builder strings.Builder
	fmt.Fprintf(&builder, "[out:json][timeout:%d];(", timeoutSec)
	for _, filter := range def.filters {
		builder.WriteString(filter)
		builder.WriteString(around)
	}
	builder.WriteString(");out geom;")

	return builder.String(), nil
}

// fallbackName is used for places without a name tag, e.g. "bus_stop" becomes "Bus Stop".
func fallbackName(cat models.PlaceCategory) string {
	words := strings.Split(string(cat), "_")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}

	return strings.Join(words, " ")
}
