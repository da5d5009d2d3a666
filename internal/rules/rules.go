// Package rules loads the city catalog and extra fee tables from YAML.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/delivery-fee-service/internal/domain"
)

//go:embed default.yaml
var defaultRules []byte

// amount is a decimal read from its literal YAML text so that 0.1 stays 0.1.
type amount struct {
	decimal.Decimal
}

func (a *amount) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: amount must be a scalar", value.Line)
	}
	d, err := decimal.NewFromString(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid amount %q", value.Line, value.Value)
	}
	a.Decimal = d
	return nil
}

type file struct {
	VehicleTypes []string                     `yaml:"vehicleTypes"`
	Stations     map[string]string            `yaml:"stations"`
	BaseFees     map[string]map[string]amount `yaml:"baseFees"`
	Temperature  thresholdTable               `yaml:"temperature"`
	Wind         windTable                    `yaml:"wind"`
	Phenomenon   phenomenonTable              `yaml:"phenomenon"`
}

type thresholdTable struct {
	Vehicles   []string  `yaml:"vehicles"`
	Thresholds []float64 `yaml:"thresholds"`
	Fees       []amount  `yaml:"fees"`
}

type windTable struct {
	thresholdTable `yaml:",inline"`
	Ceiling        *float64 `yaml:"ceiling"`
}

type phenomenonTable struct {
	Vehicles  []string `yaml:"vehicles"`
	Forbidden []string `yaml:"forbidden"`
	Types     []string `yaml:"types"`
	Fees      []amount `yaml:"fees"`
}

// Default returns the built-in Estonian configuration.
func Default() (domain.Catalog, domain.RuleSet, error) {
	return Parse(defaultRules)
}

// Load reads a rules file. An empty path selects the built-in default.
func Load(path string) (domain.Catalog, domain.RuleSet, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Catalog{}, domain.RuleSet{}, fmt.Errorf("read rules file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a rules document.
func Parse(data []byte) (domain.Catalog, domain.RuleSet, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.Catalog{}, domain.RuleSet{}, fmt.Errorf("decode rules: %w", err)
	}
	if err := f.validate(); err != nil {
		return domain.Catalog{}, domain.RuleSet{}, fmt.Errorf("invalid rules: %w", err)
	}
	return f.catalog(), f.ruleSet(), nil
}

func (f *file) validate() error {
	var errs []error
	if len(f.VehicleTypes) == 0 {
		errs = append(errs, errors.New("vehicleTypes is required"))
	}
	for city, station := range f.Stations {
		if city == "" || station == "" {
			errs = append(errs, fmt.Errorf("stations: empty city or station name (%q: %q)", city, station))
		}
	}
	for city, fees := range f.BaseFees {
		for vehicle, fee := range fees {
			if !slices.Contains(f.VehicleTypes, vehicle) {
				errs = append(errs, fmt.Errorf("baseFees.%s: unknown vehicle type %q", city, vehicle))
			}
			if fee.IsNegative() {
				errs = append(errs, fmt.Errorf("baseFees.%s.%s: negative fee %s", city, vehicle, fee))
			}
		}
	}

	errs = append(errs, f.checkTable("temperature", f.Temperature.Vehicles, len(f.Temperature.Thresholds), f.Temperature.Fees)...)
	errs = append(errs, f.checkTable("wind", f.Wind.Vehicles, len(f.Wind.Thresholds), f.Wind.Fees)...)
	errs = append(errs, f.checkTable("phenomenon", f.Phenomenon.Vehicles, len(f.Phenomenon.Types), f.Phenomenon.Fees)...)

	if f.Wind.Ceiling == nil {
		errs = append(errs, errors.New("wind.ceiling is required"))
	}
	for _, s := range append(slices.Clone(f.Phenomenon.Forbidden), f.Phenomenon.Types...) {
		if s == "" {
			errs = append(errs, errors.New("phenomenon: empty match string"))
			break
		}
	}
	return errors.Join(errs...)
}

func (f *file) checkTable(name string, vehicles []string, keys int, fees []amount) []error {
	var errs []error
	for _, v := range vehicles {
		if !slices.Contains(f.VehicleTypes, v) {
			errs = append(errs, fmt.Errorf("%s.vehicles: unknown vehicle type %q", name, v))
		}
	}
	if keys != len(fees) {
		errs = append(errs, fmt.Errorf("%s: %d thresholds but %d fees", name, keys, len(fees)))
	}
	for i, fee := range fees {
		if fee.IsNegative() {
			errs = append(errs, fmt.Errorf("%s.fees[%d]: negative fee %s", name, i, fee))
		}
	}
	return errs
}

func (f *file) catalog() domain.Catalog {
	baseFees := make(map[string]map[string]decimal.Decimal, len(f.BaseFees))
	for city, fees := range f.BaseFees {
		inner := make(map[string]decimal.Decimal, len(fees))
		for vehicle, fee := range fees {
			inner[vehicle] = fee.Decimal
		}
		baseFees[city] = inner
	}
	return domain.NewCatalog(f.Stations, baseFees, f.VehicleTypes)
}

func (f *file) ruleSet() domain.RuleSet {
	var rs domain.RuleSet

	rs.Temperature.Vehicles = slices.Clone(f.Temperature.Vehicles)
	rs.Temperature.Tiers = tiers(f.Temperature.Thresholds, f.Temperature.Fees)

	rs.Wind.Vehicles = slices.Clone(f.Wind.Vehicles)
	rs.Wind.Ceiling = *f.Wind.Ceiling
	rs.Wind.Tiers = tiers(f.Wind.Thresholds, f.Wind.Fees)

	rs.Phenomenon.Vehicles = slices.Clone(f.Phenomenon.Vehicles)
	rs.Phenomenon.Forbidden = slices.Clone(f.Phenomenon.Forbidden)
	for i, match := range f.Phenomenon.Types {
		rs.Phenomenon.Tiers = append(rs.Phenomenon.Tiers, domain.PhenomenonTier{Match: match, Fee: f.Phenomenon.Fees[i].Decimal})
	}
	return rs
}

func tiers(thresholds []float64, fees []amount) []domain.Tier {
	out := make([]domain.Tier, len(thresholds))
	for i, t := range thresholds {
		out[i] = domain.Tier{Threshold: t, Fee: fees[i].Decimal}
	}
	return out
}
