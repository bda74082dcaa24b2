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

// CategoryStore persists product categories
type CategoryStore struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewCategoryStore creates a new category store
func NewCategoryStore(db *db.DB, metrics *metrics.AppMetrics) *CategoryStore {
	return &CategoryStore{db: db, metrics: metrics}
}

// List returns all categories ordered by name
func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	start := time.Now()
	query := "SELECT id, name FROM categories ORDER BY name"
	rows, err := s.db.QueryContext(ctx, query)
	s.metrics.RecordDBQuery(ctx, "SELECT", "categories", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Get returns a category by ID
func (s *CategoryStore) Get(ctx context.Context, id int64) (*models.Category, error) {
	start := time.Now()
	query := "SELECT id, name FROM categories WHERE id = ?"
	var c models.Category
	err := s.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name)
	s.metrics.RecordDBQuery(ctx, "SELECT", "categories", query, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// IDByName returns the id of the category with the given name
func (s *CategoryStore) IDByName(ctx context.Context, name string) (int64, error) {
	start := time.Now()
	query := "SELECT id FROM categories WHERE name = ?"
	var id int64
	err := s.db.QueryRowContext(ctx, query, name).Scan(&id)
	s.metrics.RecordDBQuery(ctx, "SELECT", "categories", query, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("category %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get category: %w", err)
	}
	return id, nil
}

// Create inserts a category. A duplicate name surfaces as ErrConflict.
func (s *CategoryStore) Create(ctx context.Context, name string) (*models.Category, error) {
	start := time.Now()
	query := "INSERT INTO categories (name) VALUES (?)"
	result, err := s.db.ExecContext(ctx, query, name)
	s.metrics.RecordDBQuery(ctx, "INSERT", "categories", query, start, err == nil)
	if err != nil {
		if db.IsDuplicateEntry(err) {
			return nil, fmt.Errorf("category %q: %w", name, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}
	return &models.Category{ID: id, Name: name}, nil
}

// Rename updates a category's name. A duplicate surfaces as ErrConflict.
func (s *CategoryStore) Rename(ctx context.Context, id int64, name string) (*models.Category, error) {
	start := time.Now()
	query := "UPDATE categories SET name = ? WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, name, id)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "categories", query, start, err == nil)
	if err != nil {
		if db.IsDuplicateEntry(err) {
			return nil, fmt.Errorf("category %q: %w", name, ErrConflict)
		}
		return nil, fmt.Errorf("failed to rename category: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
	}
	return &models.Category{ID: id, Name: name}, nil
}

// Delete removes a category; product assignments cascade
func (s *CategoryStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	query := "DELETE FROM categories WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, id)
	s.metrics.RecordDBQuery(ctx, "DELETE", "categories", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	return nil
}
