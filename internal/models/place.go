package models

// PlaceCategory is a kind of amenity the safety engine looks up around a point.
type PlaceCategory string

const (
	CategoryHospital       PlaceCategory = "hospital"
	CategoryPolice         PlaceCategory = "police"
	CategoryBusStop        PlaceCategory = "bus_stop"
	CategoryTrain          PlaceCategory = "train"
	CategoryActivity       PlaceCategory = "activity"
	CategoryInfrastructure PlaceCategory = "infrastructure"
)

// AllCategories lists every category in a stable order.
var AllCategories = []PlaceCategory{
	CategoryHospital,
	CategoryPolice,
	CategoryBusStop,
	CategoryTrain,
	CategoryActivity,
	CategoryInfrastructure,
}

// PlaceRecord is a single amenity found near a queried point.
type PlaceRecord struct {
	Name       string        `json:"name"`
	Category   PlaceCategory `json:"type"`
	DistanceKm float64       `json:"distance"` // DistanceKm is rounded to two decimals.
	Latitude   float64       `json:"latitude"`
	Longitude  float64       `json:"longitude"`
}
