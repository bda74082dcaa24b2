package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopcar/storefront/internal/db"
	"github.com/shopcar/storefront/internal/metrics"
	"github.com/shopcar/storefront/internal/models"
)

// GeographyStore holds the country/state/city hierarchy. Read-only at
// runtime; the insert methods exist for the one-time import.
type GeographyStore struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewGeographyStore creates a new geography store
func NewGeographyStore(db *db.DB, metrics *metrics.AppMetrics) *GeographyStore {
	return &GeographyStore{db: db, metrics: metrics}
}

// ListCountries returns all countries ordered by name
func (s *GeographyStore) ListCountries(ctx context.Context) ([]models.Country, error) {
	start := time.Now()
	query := "SELECT id, name FROM countries ORDER BY name"
	rows, err := s.db.QueryContext(ctx, query)
	s.metrics.RecordDBQuery(ctx, "SELECT", "countries", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query countries: %w", err)
	}
	defer rows.Close()

	var countries []models.Country
	for rows.Next() {
		var c models.Country
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan country: %w", err)
		}
		countries = append(countries, c)
	}
	return countries, rows.Err()
}

// ListStates returns the states of a country ordered by name, for the
// cascading state dropdown
func (s *GeographyStore) ListStates(ctx context.Context, countryID int64) ([]models.State, error) {
	start := time.Now()
	query := "SELECT id, country_id, name FROM states WHERE country_id = ? ORDER BY name"
	rows, err := s.db.QueryContext(ctx, query, countryID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "states", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query states: %w", err)
	}
	defer rows.Close()

	var states []models.State
	for rows.Next() {
		var st models.State
		if err := rows.Scan(&st.ID, &st.CountryID, &st.Name); err != nil {
			return nil, fmt.Errorf("failed to scan state: %w", err)
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

// ListCities returns the cities of a state ordered by name, for the
// cascading city dropdown
func (s *GeographyStore) ListCities(ctx context.Context, stateID int64) ([]models.City, error) {
	start := time.Now()
	query := "SELECT id, state_id, name FROM cities WHERE state_id = ? ORDER BY name"
	rows, err := s.db.QueryContext(ctx, query, stateID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cities", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query cities: %w", err)
	}
	defer rows.Close()

	var cities []models.City
	for rows.Next() {
		var c models.City
		if err := rows.Scan(&c.ID, &c.StateID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan city: %w", err)
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

// HasCountries reports whether the hierarchy has already been imported
func (s *GeographyStore) HasCountries(ctx context.Context) (bool, error) {
	start := time.Now()
	query := "SELECT EXISTS(SELECT 1 FROM countries)"
	var exists bool
	err := s.db.QueryRowContext(ctx, query).Scan(&exists)
	s.metrics.RecordDBQuery(ctx, "SELECT", "countries", query, start, err == nil)
	if err != nil {
		return false, fmt.Errorf("failed to check countries: %w", err)
	}
	return exists, nil
}

// CountryIDByName returns the id of the country with the given name
func (s *GeographyStore) CountryIDByName(ctx context.Context, name string) (int64, error) {
	start := time.Now()
	query := "SELECT id FROM countries WHERE name = ?"
	var id int64
	err := s.db.QueryRowContext(ctx, query, name).Scan(&id)
	s.metrics.RecordDBQuery(ctx, "SELECT", "countries", query, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("country %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get country: %w", err)
	}
	return id, nil
}

// InsertCountry stores a country and returns its id
func (s *GeographyStore) InsertCountry(ctx context.Context, name string) (int64, error) {
	return s.insert(ctx, "countries", "INSERT INTO countries (name) VALUES (?)", name)
}

// InsertState stores a state under a country and returns its id
func (s *GeographyStore) InsertState(ctx context.Context, countryID int64, name string) (int64, error) {
	return s.insert(ctx, "states", "INSERT INTO states (country_id, name) VALUES (?, ?)", countryID, name)
}

// InsertCity stores a city under a state and returns its id
func (s *GeographyStore) InsertCity(ctx context.Context, stateID int64, name string) (int64, error) {
	return s.insert(ctx, "cities", "INSERT INTO cities (state_id, name) VALUES (?, ?)", stateID, name)
}

func (s *GeographyStore) insert(ctx context.Context, table, query string, args ...interface{}) (int64, error) {
	start := time.Now()
	result, err := s.db.ExecContext(ctx, query, args...)
	s.metrics.RecordDBQuery(ctx, "INSERT", table, query, start, err == nil)
	if err != nil {
		if db.IsDuplicateEntry(err) {
			return 0, fmt.Errorf("%s: %w", table, ErrConflict)
		}
		return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get %s ID: %w", table, err)
	}
	return id, nil
}
