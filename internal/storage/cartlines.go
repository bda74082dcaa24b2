package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopcar/storefront/internal/db"
	"github.com/shopcar/storefront/internal/metrics"
	"github.com/shopcar/storefront/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CartLineStore persists pending cart lines in MySQL. Quantity mutations are
// single atomic UPDATE statements scoped by owner, so concurrent clicks on
// the same line serialize in the database instead of racing through a
// read-modify-write cycle.
type CartLineStore struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewCartLineStore creates a new cart line store
func NewCartLineStore(db *db.DB, metrics *metrics.AppMetrics) *CartLineStore {
	return &CartLineStore{db: db, metrics: metrics}
}

// Insert stores a new pending line and returns its id
func (s *CartLineStore) Insert(ctx context.Context, line *models.CartLine) (int64, error) {
	start := time.Now()
	query := "INSERT INTO cart_lines (user_id, product_id, quantity, remarks) VALUES (?, ?, ?, ?)"
	result, err := s.db.ExecContext(ctx, query, line.UserID, line.ProductID, line.Quantity, line.Remarks)
	s.metrics.RecordDBQuery(ctx, "INSERT", "cart_lines", query, start, err == nil)
	if err != nil {
		return 0, fmt.Errorf("failed to insert cart line: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get cart line ID: %w", err)
	}
	return id, nil
}

// Increment adds 1 to the line's quantity, unbounded
func (s *CartLineStore) Increment(ctx context.Context, userID, lineID int64) error {
	start := time.Now()
	query := "UPDATE cart_lines SET quantity = quantity + 1, updated_at = NOW() WHERE id = ? AND user_id = ?"
	result, err := s.db.ExecContext(ctx, query, lineID, userID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "cart_lines", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to increment cart line: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("cart line %d: %w", lineID, ErrNotFound)
	}
	return nil
}

// DecrementAboveOne subtracts 1 from the line's quantity only while it is
// above 1. At quantity 1 the call is a no-op; the line is never deleted.
func (s *CartLineStore) DecrementAboveOne(ctx context.Context, userID, lineID int64) error {
	start := time.Now()
	query := "UPDATE cart_lines SET quantity = quantity - 1, updated_at = NOW() WHERE id = ? AND user_id = ? AND quantity > 1"
	result, err := s.db.ExecContext(ctx, query, lineID, userID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "cart_lines", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to decrement cart line: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	// Zero rows is either the quantity floor or a missing line
	start = time.Now()
	existsQuery := "SELECT EXISTS(SELECT 1 FROM cart_lines WHERE id = ? AND user_id = ?)"
	var exists bool
	err = s.db.QueryRowContext(ctx, existsQuery, lineID, userID).Scan(&exists)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_lines", existsQuery, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to check cart line: %w", err)
	}
	if !exists {
		return fmt.Errorf("cart line %d: %w", lineID, ErrNotFound)
	}
	return nil
}

// Update overwrites the line's quantity and remarks atomically
func (s *CartLineStore) Update(ctx context.Context, userID, lineID int64, quantity int, remarks string) error {
	start := time.Now()
	query := "UPDATE cart_lines SET quantity = ?, remarks = ?, updated_at = NOW() WHERE id = ? AND user_id = ?"
	result, err := s.db.ExecContext(ctx, query, quantity, remarks, lineID, userID)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "cart_lines", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to update cart line: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("cart line %d: %w", lineID, ErrNotFound)
	}
	return nil
}

// Delete removes the line unconditionally when it exists
func (s *CartLineStore) Delete(ctx context.Context, userID, lineID int64) error {
	start := time.Now()
	query := "DELETE FROM cart_lines WHERE id = ? AND user_id = ?"
	result, err := s.db.ExecContext(ctx, query, lineID, userID)
	s.metrics.RecordDBQuery(ctx, "DELETE", "cart_lines", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("cart line %d: %w", lineID, ErrNotFound)
	}
	return nil
}

// ListByUser returns the user's pending lines joined with each product's
// current name, price and primary image reference
func (s *CartLineStore) ListByUser(ctx context.Context, userID int64) ([]models.CartLineView, error) {
	start := time.Now()
	query := `
		SELECT cl.id, cl.user_id, cl.product_id, cl.quantity, cl.remarks, cl.created_at, cl.updated_at,
		       p.name, p.price,
		       COALESCE((SELECT pi.blob_id FROM product_images pi WHERE pi.product_id = p.id ORDER BY pi.id LIMIT 1),
		                '00000000-0000-0000-0000-000000000000')
		FROM cart_lines cl
		JOIN products p ON cl.product_id = p.id
		WHERE cl.user_id = ?
		ORDER BY cl.id
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_lines", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart lines: %w", err)
	}
	defer rows.Close()

	var lines []models.CartLineView
	for rows.Next() {
		var v models.CartLineView
		if err := rows.Scan(
			&v.ID, &v.UserID, &v.ProductID, &v.Quantity, &v.Remarks, &v.CreatedAt, &v.UpdatedAt,
			&v.ProductName, &v.ProductPrice, &v.ImageID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, v)
	}

	return lines, rows.Err()
}

// SumQuantities returns the sum of quantities across the user's lines,
// used for the cart badge
func (s *CartLineStore) SumQuantities(ctx context.Context, userID int64) (int, error) {
	start := time.Now()
	query := "SELECT COALESCE(SUM(quantity), 0) FROM cart_lines WHERE user_id = ?"
	var total int
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&total)
	s.metrics.RecordDBQuery(ctx, "SELECT", "cart_lines", query, start, err == nil)
	if err != nil {
		return 0, fmt.Errorf("failed to sum cart quantities: %w", err)
	}
	return total, nil
}

// ClearUser removes every pending line owned by the user
func (s *CartLineStore) ClearUser(ctx context.Context, userID int64) error {
	start := time.Now()
	query := "DELETE FROM cart_lines WHERE user_id = ?"
	_, err := s.db.ExecContext(ctx, query, userID)
	s.metrics.RecordDBQuery(ctx, "DELETE", "cart_lines", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// MonitorActiveCarts periodically records how many carts hold at least one
// pending line. Returns when ctx is cancelled.
func (s *CartLineStore) MonitorActiveCarts(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			query := "SELECT COUNT(DISTINCT user_id) FROM cart_lines"
			var count int64
			err := s.db.QueryRowContext(ctx, query).Scan(&count)
			s.metrics.RecordDBQuery(ctx, "SELECT", "cart_lines", query, start, err == nil)
			if err == nil {
				s.metrics.ActiveCartsCount.Record(ctx, count, metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{})...))
			}
		}
	}
}
