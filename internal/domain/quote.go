package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is an itemized delivery fee. TotalFee is always the exact sum of the
// base fee and the three extra fees.
type Quote struct {
	City                      string          `json:"city"`
	VehicleType               string          `json:"vehicleType"`
	RegionalBaseFee           decimal.Decimal `json:"regionalBaseFee"`
	AirTemperatureExtraFee    decimal.Decimal `json:"airTemperatureExtraFee"`
	WindSpeedExtraFee         decimal.Decimal `json:"windSpeedExtraFee"`
	WeatherPhenomenonExtraFee decimal.Decimal `json:"weatherPhenomenonExtraFee"`
	TotalFee                  decimal.Decimal `json:"totalFee"`
	ObservedAt                time.Time       `json:"observedAt"`
}

// NewQuote assembles a quote and computes its total.
func NewQuote(city, vehicleType string, baseFee decimal.Decimal, s Surcharges, observedAt time.Time) Quote {
	return Quote{
		City:                      city,
		VehicleType:               vehicleType,
		RegionalBaseFee:           baseFee,
		AirTemperatureExtraFee:    s.AirTemperature,
		WindSpeedExtraFee:         s.WindSpeed,
		WeatherPhenomenonExtraFee: s.WeatherPhenomenon,
		TotalFee:                  baseFee.Add(s.Total()),
		ObservedAt:                observedAt,
	}
}

// MarshalJSON writes every fee as a JSON number.
func (q Quote) MarshalJSON() ([]byte, error) {
	type wire struct {
		City                      string      `json:"city"`
		VehicleType               string      `json:"vehicleType"`
		RegionalBaseFee           json.Number `json:"regionalBaseFee"`
		AirTemperatureExtraFee    json.Number `json:"airTemperatureExtraFee"`
		WindSpeedExtraFee         json.Number `json:"windSpeedExtraFee"`
		WeatherPhenomenonExtraFee json.Number `json:"weatherPhenomenonExtraFee"`
		TotalFee                  json.Number `json:"totalFee"`
		ObservedAt                time.Time   `json:"observedAt"`
	}
	return json.Marshal(wire{
		City:                      q.City,
		VehicleType:               q.VehicleType,
		RegionalBaseFee:           json.Number(q.RegionalBaseFee.String()),
		AirTemperatureExtraFee:    json.Number(q.AirTemperatureExtraFee.String()),
		WindSpeedExtraFee:         json.Number(q.WindSpeedExtraFee.String()),
		WeatherPhenomenonExtraFee: json.Number(q.WeatherPhenomenonExtraFee.String()),
		TotalFee:                  json.Number(q.TotalFee.String()),
		ObservedAt:                q.ObservedAt,
	})
}
