package geo

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopcar/storefront/internal/metrics"
	"github.com/shopcar/storefront/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Store is the slice of the geography store the importer writes through
type Store interface {
	HasCountries(ctx context.Context) (bool, error)
	CountryIDByName(ctx context.Context, name string) (int64, error)
	InsertCountry(ctx context.Context, name string) (int64, error)
	InsertState(ctx context.Context, countryID int64, name string) (int64, error)
	InsertCity(ctx context.Context, stateID int64, name string) (int64, error)
}

// Cities whose upstream records are known to be corrupt
var excludedCities = map[string]bool{
	"Mosfellsbær": true,
	"Șăulița":     true,
}

// Importer populates the geography hierarchy from the external API.
// Intended to run once; a populated store makes Run a no-op.
type Importer struct {
	api     API
	store   Store
	metrics *metrics.AppMetrics
}

// NewImporter creates an importer. metrics may be nil.
func NewImporter(api API, store Store, m *metrics.AppMetrics) *Importer {
	return &Importer{api: api, store: store, metrics: m}
}

// Run imports countries, states and cities. Names are deduplicated at every
// level; states without cities and countries without any city are dropped.
func (i *Importer) Run(ctx context.Context) error {
	populated, err := i.store.HasCountries(ctx)
	if err != nil {
		return err
	}
	if populated {
		log.Println("[GEO] Geography already imported, skipping")
		return nil
	}

	countries, err := i.api.Countries(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch countries: %w", err)
	}

	var countryCount, cityCount int64
	for _, country := range countries {
		stored, err := i.importCountry(ctx, country)
		if err != nil {
			return err
		}
		if stored > 0 {
			countryCount++
			cityCount += stored
		}
	}

	if i.metrics != nil {
		attrs := metric.WithAttributes(i.metrics.WithServiceName([]attribute.KeyValue{})...)
		i.metrics.GeoCountriesImported.Add(ctx, countryCount, attrs)
		i.metrics.GeoCitiesImported.Add(ctx, cityCount, attrs)
	}

	log.Printf("[GEO] Import complete: countries=%d, cities=%d", countryCount, cityCount)
	return nil
}

// stateTree is a state with its deduplicated cities, built in memory before
// anything is written
type stateTree struct {
	name   string
	cities []string
}

// importCountry fetches one country's subtree and stores it when it has at
// least one city. Returns the number of cities stored.
func (i *Importer) importCountry(ctx context.Context, country Country) (int64, error) {
	if _, err := i.store.CountryIDByName(ctx, country.Name); err == nil {
		return 0, nil // duplicate country name in the feed
	} else if !errors.Is(err, storage.ErrNotFound) {
		return 0, err
	}

	states, err := i.api.States(ctx, country.ISO2)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch states for %s: %w", country.Name, err)
	}

	var tree []stateTree
	seenStates := make(map[string]bool)
	for _, state := range states {
		if seenStates[state.Name] {
			continue
		}
		seenStates[state.Name] = true

		cities, err := i.api.Cities(ctx, country.ISO2, state.ISO2)
		if err != nil {
			return 0, fmt.Errorf("failed to fetch cities for %s/%s: %w", country.Name, state.Name, err)
		}

		seenCities := make(map[string]bool)
		var kept []string
		for _, city := range cities {
			if excludedCities[city.Name] || seenCities[city.Name] {
				continue
			}
			seenCities[city.Name] = true
			kept = append(kept, city.Name)
		}

		// States with no cities are dropped
		if len(kept) > 0 {
			tree = append(tree, stateTree{name: state.Name, cities: kept})
		}
	}

	// Countries with no cities at all are dropped
	total := int64(0)
	for _, st := range tree {
		total += int64(len(st.cities))
	}
	if total == 0 {
		return 0, nil
	}

	countryID, err := i.store.InsertCountry(ctx, country.Name)
	if err != nil {
		return 0, err
	}
	for _, st := range tree {
		stateID, err := i.store.InsertState(ctx, countryID, st.name)
		if err != nil {
			return 0, err
		}
		for _, city := range st.cities {
			if _, err := i.store.InsertCity(ctx, stateID, city); err != nil {
				return 0, err
			}
		}
	}

	log.Printf("[GEO] Imported %s: states=%d, cities=%d", country.Name, len(tree), total)
	return total, nil
}
