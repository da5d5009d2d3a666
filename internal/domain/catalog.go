package domain

import (
	"fmt"
	"slices"
	"sort"

	"github.com/shopspring/decimal"
)

// Catalog maps supported cities to their weather station and to the regional
// base fee of each vehicle type. It is built once at startup and never
// mutated.
type Catalog struct {
	stations     map[string]string
	baseFees     map[string]map[string]decimal.Decimal
	vehicleTypes []string
	stationSet   map[string]struct{}
}

// NewCatalog copies the given maps into an immutable Catalog.
func NewCatalog(stations map[string]string, baseFees map[string]map[string]decimal.Decimal, vehicleTypes []string) Catalog {
	c := Catalog{
		stations:     make(map[string]string, len(stations)),
		baseFees:     make(map[string]map[string]decimal.Decimal, len(baseFees)),
		vehicleTypes: slices.Clone(vehicleTypes),
		stationSet:   make(map[string]struct{}, len(stations)),
	}
	for city, station := range stations {
		c.stations[city] = station
		c.stationSet[station] = struct{}{}
	}
	for city, fees := range baseFees {
		inner := make(map[string]decimal.Decimal, len(fees))
		for vehicle, fee := range fees {
			inner[vehicle] = fee
		}
		c.baseFees[city] = inner
	}
	return c
}

// Validate reports whether a quote can be produced for the pair. A city must
// appear in both the station map and the base fee map; a city configured in
// only one of them is treated as unknown.
func (c Catalog) Validate(city, vehicleType string) error {
	_, hasStation := c.stations[city]
	fees, hasFees := c.baseFees[city]
	if !hasStation || !hasFees {
		return fmt.Errorf("%w: %s", ErrUnknownCity, city)
	}
	if _, ok := fees[vehicleType]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVehicleType, vehicleType)
	}
	return nil
}

// StationFor returns the station name associated with city.
func (c Catalog) StationFor(city string) (string, bool) {
	s, ok := c.stations[city]
	return s, ok
}

// BaseFee returns the regional base fee for the pair.
func (c Catalog) BaseFee(city, vehicleType string) (decimal.Decimal, bool) {
	fee, ok := c.baseFees[city][vehicleType]
	return fee, ok
}

// HasStation reports whether name is the station of any configured city.
func (c Catalog) HasStation(name string) bool {
	_, ok := c.stationSet[name]
	return ok
}

// Stations returns the distinct station names, sorted.
func (c Catalog) Stations() []string {
	out := make([]string, 0, len(c.stationSet))
	for s := range c.stationSet {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Cities returns the cities that pass validation, sorted.
func (c Catalog) Cities() []string {
	out := make([]string, 0, len(c.stations))
	for city := range c.stations {
		if _, ok := c.baseFees[city]; ok {
			out = append(out, city)
		}
	}
	sort.Strings(out)
	return out
}

// VehicleTypes returns the allowed vehicle types in configured order.
func (c Catalog) VehicleTypes() []string {
	return slices.Clone(c.vehicleTypes)
}

// Mismatches lists cities present in only one of the two maps. Such cities
// are rejected as unknown; callers surface them as configuration warnings.
func (c Catalog) Mismatches() []string {
	var out []string
	for city := range c.stations {
		if _, ok := c.baseFees[city]; !ok {
			out = append(out, city)
		}
	}
	for city := range c.baseFees {
		if _, ok := c.stations[city]; !ok {
			out = append(out, city)
		}
	}
	sort.Strings(out)
	return out
}
