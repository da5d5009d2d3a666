package domain

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Tier pairs a numeric threshold with the extra fee it triggers.
type Tier struct {
	Threshold float64
	Fee       decimal.Decimal
}

// PhenomenonTier pairs a phenomenon substring with the extra fee it triggers.
type PhenomenonTier struct {
	Match string
	Fee   decimal.Decimal
}

// TemperatureRule charges the fee of the first tier whose threshold is above
// the air temperature.
type TemperatureRule struct {
	Vehicles []string
	Tiers    []Tier
}

// WindRule forbids the vehicle above Ceiling, otherwise charges the fee of
// the first tier whose threshold is below the wind speed.
type WindRule struct {
	Vehicles []string
	Ceiling  float64
	Tiers    []Tier
}

// PhenomenonRule forbids the vehicle when the phenomenon contains any of
// Forbidden, otherwise charges the fee of the first tier whose substring
// appears in the phenomenon.
type PhenomenonRule struct {
	Vehicles  []string
	Forbidden []string
	Tiers     []PhenomenonTier
}

// RuleSet holds the three extra fee tables. Tier order is significant.
type RuleSet struct {
	Temperature TemperatureRule
	Wind        WindRule
	Phenomenon  PhenomenonRule
}

// Surcharges is the per-category breakdown of extra fees for one observation.
type Surcharges struct {
	AirTemperature    decimal.Decimal
	WindSpeed         decimal.Decimal
	WeatherPhenomenon decimal.Decimal
}

// Total returns the sum of the three extra fees.
func (s Surcharges) Total() decimal.Decimal {
	return s.AirTemperature.Add(s.WindSpeed).Add(s.WeatherPhenomenon)
}

// TemperatureFee returns the air temperature extra fee.
func (r RuleSet) TemperatureFee(vehicleType string, obs Observation) decimal.Decimal {
	if !slices.Contains(r.Temperature.Vehicles, vehicleType) {
		return decimal.Zero
	}
	for _, tier := range r.Temperature.Tiers {
		if obs.AirTemperature < tier.Threshold {
			return tier.Fee
		}
	}
	return decimal.Zero
}

// WindFee returns the wind speed extra fee, or ErrForbiddenVehicleType when
// the wind exceeds the ceiling.
func (r RuleSet) WindFee(vehicleType string, obs Observation) (decimal.Decimal, error) {
	if !slices.Contains(r.Wind.Vehicles, vehicleType) {
		return decimal.Zero, nil
	}
	if obs.WindSpeed > r.Wind.Ceiling {
		return decimal.Zero, fmt.Errorf("%w: wind speed %.1f m/s exceeds %.1f m/s",
			ErrForbiddenVehicleType, obs.WindSpeed, r.Wind.Ceiling)
	}
	for _, tier := range r.Wind.Tiers {
		if obs.WindSpeed > tier.Threshold {
			return tier.Fee, nil
		}
	}
	return decimal.Zero, nil
}

// PhenomenonFee returns the weather phenomenon extra fee, or
// ErrForbiddenVehicleType when the phenomenon is forbidden. The forbidden
// check runs before any fee matching.
func (r RuleSet) PhenomenonFee(vehicleType string, obs Observation) (decimal.Decimal, error) {
	if !slices.Contains(r.Phenomenon.Vehicles, vehicleType) {
		return decimal.Zero, nil
	}
	text := strings.ToLower(obs.Phenomenon)
	for _, f := range r.Phenomenon.Forbidden {
		if strings.Contains(text, strings.ToLower(f)) {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrForbiddenVehicleType, obs.Phenomenon)
		}
	}
	for _, tier := range r.Phenomenon.Tiers {
		if strings.Contains(text, strings.ToLower(tier.Match)) {
			return tier.Fee, nil
		}
	}
	return decimal.Zero, nil
}

// Surcharges evaluates temperature, wind and phenomenon in that order and
// stops at the first forbidden outcome.
func (r RuleSet) Surcharges(vehicleType string, obs Observation) (Surcharges, error) {
	var s Surcharges
	s.AirTemperature = r.TemperatureFee(vehicleType, obs)

	wind, err := r.WindFee(vehicleType, obs)
	if err != nil {
		return Surcharges{}, err
	}
	s.WindSpeed = wind

	phenomenon, err := r.PhenomenonFee(vehicleType, obs)
	if err != nil {
		return Surcharges{}, err
	}
	s.WeatherPhenomenon = phenomenon
	return s, nil
}
