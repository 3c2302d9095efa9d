package models

import "time"

// Rating labels a safety score band.
type Rating string

const (
	RatingSafe               Rating = "SAFE"
	RatingModerate           Rating = "MODERATE"
	RatingCaution            Rating = "CAUTION"
	RatingHighRisk           Rating = "HIGH RISK"
	RatingServiceUnavailable Rating = "SERVICE UNAVAILABLE"
	RatingError              Rating = "ERROR"
)

// Names of data sources reported in ServiceStatus.Unavailable.
const (
	SourceEmergencyServices = "emergency_services"
	SourceActivityData      = "activity_data"
	SourceInfrastructure    = "infrastructure"
	SourceAll               = "all"
)

// SafetyReport is the result of one safety computation. It is never mutated after it is built.
type SafetyReport struct {
	Score         float64        `json:"score"`
	Rating        Rating         `json:"rating"`
	Color         string         `json:"color"`
	Confidence    float64        `json:"confidence"`
	Timestamp     time.Time      `json:"timestamp"`
	Breakdown     ScoreBreakdown `json:"breakdown"`
	TimePeriod    string         `json:"time_period"`
	ServiceStatus ServiceStatus  `json:"service_status"`
	Nearest       NearestPlaces  `json:"nearest"`
	AllPlaces     PlaceLists     `json:"all_places"`
	Stats         Stats          `json:"stats"`
}

// ScoreBreakdown holds the four component scores, each in [0, 100].
type ScoreBreakdown struct {
	TemporalRisk       float64 `json:"temporal_risk"`
	EmergencyProximity float64 `json:"emergency_proximity"`
	PopulationDensity  float64 `json:"population_density"`
	Infrastructure     float64 `json:"infrastructure"`
}

// ServiceStatus describes which data sources contributed to a report.
type ServiceStatus struct {
	Overall     string   `json:"overall"`
	StatusColor string   `json:"status_color"`
	Unavailable []string `json:"unavailable"`
	Message     *string  `json:"message"`
}

// NearestPlaces keeps the closest record per category, nil when none was found.
type NearestPlaces struct {
	Hospital     *PlaceRecord `json:"hospital"`
	Police       *PlaceRecord `json:"police"`
	BusStop      *PlaceRecord `json:"bus_stop"`
	TrainStation *PlaceRecord `json:"train_station"`
}

// PlaceLists keeps the closest few records per category.
type PlaceLists struct {
	Hospitals      []PlaceRecord `json:"hospitals"`
	PoliceStations []PlaceRecord `json:"police_stations"`
	BusStops       []PlaceRecord `json:"bus_stops"`
	TrainStations  []PlaceRecord `json:"train_stations"`
}

// Stats summarises raw counts behind a report.
type Stats struct {
	ActivityCount       int     `json:"activity_count"`
	InfrastructureCount int     `json:"infrastructure_count"`
	EmergencyDensity    float64 `json:"emergency_services_density"`
}
