// Package cart implements the pending-sale workflow: a mutable list of
// line items per user that is converted into an order at checkout.
package cart

import (
	"context"

	"github.com/shopcar/storefront/internal/metrics"
	"github.com/shopcar/storefront/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LineStore persists pending cart lines. Every mutation takes the owning
// user's id and must refuse lines owned by anyone else.
type LineStore interface {
	Insert(ctx context.Context, line *models.CartLine) (int64, error)
	Increment(ctx context.Context, userID, lineID int64) error
	DecrementAboveOne(ctx context.Context, userID, lineID int64) error
	Update(ctx context.Context, userID, lineID int64, quantity int, remarks string) error
	Delete(ctx context.Context, userID, lineID int64) error
	ListByUser(ctx context.Context, userID int64) ([]models.CartLineView, error)
	SumQuantities(ctx context.Context, userID int64) (int, error)
	ClearUser(ctx context.Context, userID int64) error
}

// ProductCatalog resolves products referenced by cart lines
type ProductCatalog interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
}

// UserDirectory resolves the identity of the acting user
type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// Verdict is the order processor's answer to a checkout attempt
type Verdict struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OrderProcessor finalizes a cart into an order. One synchronous call per
// checkout attempt; no idempotency token is exchanged, so resubmitting a
// cart sends the same lines again.
type OrderProcessor interface {
	ProcessOrder(ctx context.Context, userID int64, lines []models.CartLineView) (Verdict, error)
}

// Service is the cart/order workflow
type Service struct {
	lines     LineStore
	catalog   ProductCatalog
	users     UserDirectory
	processor OrderProcessor
	metrics   *metrics.AppMetrics
}

// NewService creates the workflow. metrics may be nil in tests.
func NewService(lines LineStore, catalog ProductCatalog, users UserDirectory, processor OrderProcessor, m *metrics.AppMetrics) *Service {
	return &Service{
		lines:     lines,
		catalog:   catalog,
		users:     users,
		processor: processor,
		metrics:   m,
	}
}

// AddToCart creates a new pending line for the user. Repeated adds of the
// same product create distinct lines; lines are never merged.
func (s *Service) AddToCart(ctx context.Context, userID, productID int64, quantity int, remarks string) (*models.CartLine, error) {
	if quantity < 1 {
		return nil, &ValidationError{Field: "quantity", Message: "quantity must be at least 1"}
	}

	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	line := &models.CartLine{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		Remarks:   remarks,
	}
	id, err := s.lines.Insert(ctx, line)
	if err != nil {
		return nil, err
	}
	line.ID = id

	s.recordCartSize(ctx, userID)
	return line, nil
}

// IncreaseQuantity adds 1 to a line owned by the user, unbounded
func (s *Service) IncreaseQuantity(ctx context.Context, userID, lineID int64) error {
	if err := s.lines.Increment(ctx, userID, lineID); err != nil {
		return err
	}
	s.recordCartSize(ctx, userID)
	return nil
}

// DecreaseQuantity subtracts 1 from a line owned by the user. At quantity 1
// the call is a no-op; the line survives.
func (s *Service) DecreaseQuantity(ctx context.Context, userID, lineID int64) error {
	if err := s.lines.DecrementAboveOne(ctx, userID, lineID); err != nil {
		return err
	}
	s.recordCartSize(ctx, userID)
	return nil
}

// EditLine overwrites a line's quantity and remarks
func (s *Service) EditLine(ctx context.Context, userID, lineID int64, quantity int, remarks string) error {
	if quantity < 1 {
		return &ValidationError{Field: "quantity", Message: "quantity must be a positive integer"}
	}
	if err := s.lines.Update(ctx, userID, lineID, quantity, remarks); err != nil {
		return err
	}
	s.recordCartSize(ctx, userID)
	return nil
}

// RemoveLine deletes a line owned by the user
func (s *Service) RemoveLine(ctx context.Context, userID, lineID int64) error {
	if err := s.lines.Delete(ctx, userID, lineID); err != nil {
		return err
	}
	s.recordCartSize(ctx, userID)
	return nil
}

// GetCart returns the user's pending lines joined with current product data,
// plus running totals. Always reads committed state; nothing is cached.
func (s *Service) GetCart(ctx context.Context, userID int64) (*models.CartView, error) {
	lines, err := s.lines.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &models.CartView{UserID: userID, Lines: lines}
	for _, line := range lines {
		view.TotalQuantity += line.Quantity
		view.TotalAmount += line.Value()
	}
	return view, nil
}

// BadgeCount returns the sum of pending quantities for the cart icon
func (s *Service) BadgeCount(ctx context.Context, userID int64) (int, error) {
	return s.lines.SumQuantities(ctx, userID)
}

func (s *Service) recordCartSize(ctx context.Context, userID int64) {
	if s.metrics == nil {
		return
	}
	total, err := s.lines.SumQuantities(ctx, userID)
	if err != nil {
		return
	}
	s.metrics.CartLinesCount.Record(ctx, int64(total), metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.Int64("user_id", userID),
	})...))
}
