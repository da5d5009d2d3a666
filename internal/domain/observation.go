package domain

import "time"

// Observation is one station's weather reading at one feed timestamp.
type Observation struct {
	Station        string    `json:"station"`
	WMOCode        string    `json:"wmoCode,omitempty"`
	AirTemperature float64   `json:"airTemperature"`
	WindSpeed      float64   `json:"windSpeed"`
	Phenomenon     string    `json:"phenomenon"`
	ObservedAt     time.Time `json:"observedAt"`
}
