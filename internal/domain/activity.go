package domain

import "time"

// Athlete is the provider-agnostic athlete profile
type Athlete struct {
	ID        string  `json:"id"`
	Username  string  `json:"username,omitempty"`
	FirstName string  `json:"first_name,omitempty"`
	LastName  string  `json:"last_name,omitempty"`
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	Weight    float64 `json:"weight,omitempty"`
	Provider  string  `json:"provider"`
}

// Activity is the shared activity record. This is the only cross-provider
// normalisation the gateway performs.
type Activity struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	SportType      string    `json:"sport_type"`
	StartDate      time.Time `json:"start_date"`
	DurationSec    int64     `json:"duration_seconds"`
	DistanceMeters float64   `json:"distance_meters,omitempty"`
	ElevationGain  float64   `json:"elevation_gain,omitempty"`
	AvgHeartRate   float64   `json:"average_heart_rate,omitempty"`
	MaxHeartRate   float64   `json:"max_heart_rate,omitempty"`
	Calories       float64   `json:"calories,omitempty"`
	Provider       string    `json:"provider"`
}

// Stats is an aggregate summary for an athlete
type Stats struct {
	TotalActivities int64   `json:"total_activities"`
	TotalDistance   float64 `json:"total_distance_meters"`
	TotalDuration   int64   `json:"total_duration_seconds"`
	TotalElevation  float64 `json:"total_elevation_gain"`
	Provider        string  `json:"provider"`
}
