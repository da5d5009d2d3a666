// Package domain models weather observations from the Estonian Environment
// Agency (Keskkonnaagentuur) feed and the delivery fee rules evaluated
// against them.
//
// # Data Source
//
// Observations come from the public XML feed at
// https://www.ilmateenistus.ee/ilma_andmed/xml/observations.php, refreshed
// roughly every hour. The ingestion scheduler pulls the full document, keeps
// only the stations referenced by the station catalog, and stores the latest
// observation per station.
//
// # Feed Conventions
//
// Envelope:
//
//	<observations timestamp="1711207072"> ... </observations>
//	The timestamp is Unix epoch seconds and applies to every station in the
//	document. Stations carry no timestamp of their own.
//
// Station fields used here:
//
//	name            station name, e.g. "Tallinn-Harku" (catalog key)
//	wmocode         WMO station code, e.g. "26038" (may be empty)
//	airtemperature  degrees Celsius, signed decimal
//	windspeed       metres per second
//	phenomenon      free text, e.g. "Light snow shower", "Glaze"
//
// All other fields (coordinates, pressure, humidity, visibility) are ignored.
// Station names are matched by exact equality; a renamed station drops out
// of ingestion until the catalog is updated.
//
// # Fee Rules
//
// A quote is the regional base fee for (city, vehicle) plus three extra fees:
//
//	air temperature  first threshold t with temp < t wins
//	wind speed       temp-independent; wind > ceiling forbids the vehicle,
//	                 otherwise first threshold t with wind > t wins
//	phenomenon       forbidden substrings forbid the vehicle, otherwise the
//	                 first configured substring found in the text wins
//
// Matching is case-insensitive for phenomena. Threshold order is the
// configured order; tables are never sorted.
package domain
