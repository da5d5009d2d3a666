// Command validate checks a fee rules file and, optionally, a captured weather
// feed before they are deployed. It verifies that the catalog is consistent,
// that the feed decodes and covers every catalog station, and that a quote
// can be produced for every city and vehicle type.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -rules config/rules.yaml \
//	  -feed data/mock/observations_001.xml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/delivery-fee-service/internal/adapter/feed"
	"github.com/couchcryptid/delivery-fee-service/internal/domain"
	"github.com/couchcryptid/delivery-fee-service/internal/observability"
	"github.com/couchcryptid/delivery-fee-service/internal/quote"
	"github.com/couchcryptid/delivery-fee-service/internal/rules"
	"github.com/couchcryptid/delivery-fee-service/internal/store"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	rulesFile := flag.String("rules", "", "fee rules file (default: built-in rules)")
	feedFile := flag.String("feed", "", "captured observations feed to check against the rules")
	tz := flag.String("tz", "Europe/Tallinn", "time zone of feed timestamps")
	flag.Parse()

	os.Exit(run(*rulesFile, *feedFile, *tz))
}

func run(rulesFile, feedFile, tz string) int {
	fmt.Println("=== Delivery Fee Configuration Validation ===")
	fmt.Println()

	catalog, ruleSet, err := rules.Load(rulesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load rules: %v\n", err)
		return 1
	}

	phases := []*phase{validateCatalog(catalog)}

	if feedFile != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load time zone: %v\n", err)
			return 1
		}
		obs, p := validateFeed(feedFile, catalog, loc)
		phases = append(phases, p, validateQuotes(catalog, ruleSet, obs))
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Catalog: %d cities, %d stations, %d vehicle types\n",
		len(catalog.Cities()), len(catalog.Stations()), len(catalog.VehicleTypes()))

	for _, p := range phases {
		if len(p.notes) == 0 && p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for _, n := range p.notes {
			fmt.Printf("  %s\n", n)
		}
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Catalog ──
// Every city needs both a station and a base fee for every vehicle type.

func validateCatalog(c domain.Catalog) *phase {
	p := &phase{name: "Phase 1: Catalog consistency"}
	for _, city := range c.Mismatches() {
		p.errorf("city %s has a station or base fees but not both", city)
	}
	for _, city := range c.Cities() {
		if _, ok := c.StationFor(city); !ok {
			continue
		}
		for _, v := range c.VehicleTypes() {
			if _, ok := c.BaseFee(city, v); !ok {
				p.errorf("city %s has no base fee for %s", city, v)
			}
		}
	}
	return p
}

// ── Phase 2: Feed ──
// The feed must decode and report every station the catalog relies on.

func validateFeed(path string, c domain.Catalog, loc *time.Location) ([]domain.Observation, *phase) {
	p := &phase{name: "Phase 2: Feed coverage"}
	f, err := os.Open(path)
	if err != nil {
		p.errorf("open feed: %v", err)
		return nil, p
	}
	defer f.Close()

	obs, err := feed.Decode(f, c.HasStation, loc)
	if err != nil {
		p.errorf("%v", err)
		return nil, p
	}

	seen := make(map[string]bool, len(obs))
	for _, o := range obs {
		seen[o.Station] = true
	}
	for _, s := range c.Stations() {
		if !seen[s] {
			p.errorf("station %s missing from feed", s)
		}
	}
	if len(obs) > 0 {
		p.notef("observed at %s", obs[0].ObservedAt.Format(time.RFC3339))
	}
	return obs, p
}

// ── Phase 3: Quotes ──
// Runs the quote service over the feed for every city and vehicle type.

func validateQuotes(c domain.Catalog, rs domain.RuleSet, obs []domain.Observation) *phase {
	p := &phase{name: "Phase 3: Quote matrix"}
	if len(obs) == 0 {
		p.errorf("no observations to quote against")
		return p
	}

	ctx := context.Background()
	mem := store.NewMemory()
	if err := mem.PutAll(ctx, obs); err != nil {
		p.errorf("store observations: %v", err)
		return p
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := quote.NewService(c, rs, mem, logger, observability.NewMetricsForTesting())

	for _, city := range c.Cities() {
		for _, v := range c.VehicleTypes() {
			q, err := svc.Quote(ctx, city, v)
			switch {
			case err == nil:
				p.notef("%-10s %-8s %s", city, v, q.TotalFee.StringFixed(2))
			case errors.Is(err, domain.ErrForbiddenVehicleType):
				p.notef("%-10s %-8s forbidden", city, v)
			default:
				p.errorf("%s/%s: %v", city, v, err)
			}
		}
	}
	return p
}
