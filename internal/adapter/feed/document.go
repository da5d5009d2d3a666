package feed

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/delivery-fee-service/internal/domain"
)

// Document is the observations envelope served by the Estonian Environment
// Agency. Only the fields used for fee calculation are mapped.
type Document struct {
	XMLName   xml.Name  `xml:"observations"`
	Timestamp string    `xml:"timestamp,attr"`
	Stations  []Station `xml:"station"`
}

// Station is one station entry of a Document. Numeric fields are kept as text
// because the feed leaves them empty for stations that did not report.
type Station struct {
	Name           string `xml:"name"`
	WMOCode        string `xml:"wmocode"`
	Phenomenon     string `xml:"phenomenon"`
	AirTemperature string `xml:"airtemperature"`
	WindSpeed      string `xml:"windspeed"`
}

// Decode parses a feed document and returns observations for the stations
// accepted by keep. A nil keep accepts every station. The envelope timestamp
// is converted into loc and attached to every observation. All failures wrap
// domain.ErrParse.
func Decode(r io.Reader, keep func(station string) bool, loc *time.Location) ([]domain.Observation, error) {
	var doc Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode xml: %w", domain.ErrParse, err)
	}
	return doc.Observations(keep, loc)
}

// Observations converts the document. See Decode.
func (d Document) Observations(keep func(station string) bool, loc *time.Location) ([]domain.Observation, error) {
	if loc == nil {
		loc = time.Local
	}
	ts := strings.TrimSpace(d.Timestamp)
	if ts == "" {
		return nil, fmt.Errorf("%w: missing timestamp attribute", domain.ErrParse)
	}
	epoch, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp %q is not an epoch", domain.ErrParse, d.Timestamp)
	}
	observedAt := time.Unix(epoch, 0).In(loc)

	out := make([]domain.Observation, 0, len(d.Stations))
	for i, s := range d.Stations {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: station %d has no name", domain.ErrParse, i)
		}
		if keep != nil && !keep(name) {
			continue
		}
		temp, err := parseMeasurement(name, "airtemperature", s.AirTemperature)
		if err != nil {
			return nil, err
		}
		wind, err := parseMeasurement(name, "windspeed", s.WindSpeed)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Observation{
			Station:        name,
			WMOCode:        strings.TrimSpace(s.WMOCode),
			AirTemperature: temp,
			WindSpeed:      wind,
			Phenomenon:     strings.TrimSpace(s.Phenomenon),
			ObservedAt:     observedAt,
		})
	}
	return out, nil
}

func parseMeasurement(station, field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: station %s: %s %q is not numeric", domain.ErrParse, station, field, raw)
	}
	return v, nil
}
