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

// UserStore persists user profiles. Authentication state belongs to the
// external identity service; this store only answers "who is user N".
type UserStore struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewUserStore creates a new user store
func NewUserStore(db *db.DB, metrics *metrics.AppMetrics) *UserStore {
	return &UserStore{db: db, metrics: metrics}
}

const userColumns = "id, email, first_name, last_name, document, phone, address, COALESCE(city_id, 0), image_id, created_at"

func scanUser(row interface{ Scan(...interface{}) error }, u *models.User) error {
	return row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Document, &u.Phone, &u.Address, &u.CityID, &u.ImageID, &u.CreatedAt)
}

// GetUser returns a user by ID
func (s *UserStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	start := time.Now()
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	var u models.User
	err := scanUser(s.db.QueryRowContext(ctx, query, id), &u)
	s.metrics.RecordDBQuery(ctx, "SELECT", "users", query, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// GetUserByEmail returns a user by email
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	start := time.Now()
	query := "SELECT " + userColumns + " FROM users WHERE email = ?"
	var u models.User
	err := scanUser(s.db.QueryRowContext(ctx, query, email), &u)
	s.metrics.RecordDBQuery(ctx, "SELECT", "users", query, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %q: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// GetProfile returns a user with its location flattened in a single joined
// query, instead of navigating city -> state -> country lazily
func (s *UserStore) GetProfile(ctx context.Context, id int64) (*models.UserProfile, error) {
	start := time.Now()
	query := `
		SELECT u.id, u.email, u.first_name, u.last_name, u.document, u.phone, u.address,
		       COALESCE(u.city_id, 0), u.image_id, u.created_at,
		       COALESCE(ci.name, ''), COALESCE(st.name, ''), COALESCE(co.name, '')
		FROM users u
		LEFT JOIN cities ci ON u.city_id = ci.id
		LEFT JOIN states st ON ci.state_id = st.id
		LEFT JOIN countries co ON st.country_id = co.id
		WHERE u.id = ?
	`
	var p models.UserProfile
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Document, &p.Phone, &p.Address,
		&p.CityID, &p.ImageID, &p.CreatedAt,
		&p.City, &p.State, &p.Country,
	)
	s.metrics.RecordDBQuery(ctx, "SELECT", "users", query, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	return &p, nil
}

// ListUsers returns all users ordered by last name
func (s *UserStore) ListUsers(ctx context.Context) ([]models.User, error) {
	start := time.Now()
	query := "SELECT " + userColumns + " FROM users ORDER BY last_name, first_name"
	rows, err := s.db.QueryContext(ctx, query)
	s.metrics.RecordDBQuery(ctx, "SELECT", "users", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateUser inserts a user profile. A duplicate email surfaces as ErrConflict.
func (s *UserStore) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	start := time.Now()
	query := "INSERT INTO users (email, first_name, last_name, document, phone, address, city_id) VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, 0))"
	result, err := s.db.ExecContext(ctx, query, req.Email, req.FirstName, req.LastName, req.Document, req.Phone, req.Address, req.CityID)
	s.metrics.RecordDBQuery(ctx, "INSERT", "users", query, start, err == nil)
	if err != nil {
		if db.IsDuplicateEntry(err) {
			return nil, fmt.Errorf("user %q: %w", req.Email, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get user ID: %w", err)
	}
	return s.GetUser(ctx, id)
}

// UpdateUser overwrites a user's profile fields
func (s *UserStore) UpdateUser(ctx context.Context, id int64, req *models.CreateUserRequest) (*models.User, error) {
	start := time.Now()
	query := "UPDATE users SET email = ?, first_name = ?, last_name = ?, document = ?, phone = ?, address = ?, city_id = NULLIF(?, 0) WHERE id = ?"
	_, err := s.db.ExecContext(ctx, query, req.Email, req.FirstName, req.LastName, req.Document, req.Phone, req.Address, req.CityID, id)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "users", query, start, err == nil)
	if err != nil {
		if db.IsDuplicateEntry(err) {
			return nil, fmt.Errorf("user %q: %w", req.Email, ErrConflict)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return s.GetUser(ctx, id)
}

// DeleteUser removes a user; pending cart lines cascade
func (s *UserStore) DeleteUser(ctx context.Context, id int64) error {
	start := time.Now()
	query := "DELETE FROM users WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, id)
	s.metrics.RecordDBQuery(ctx, "DELETE", "users", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}
