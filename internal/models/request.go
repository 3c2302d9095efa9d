package models

// SafetyRequest is a request to score a point. Missing coordinates stay nil.
type SafetyRequest struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	CountryCode string   `json:"country_code,omitempty"`
}
