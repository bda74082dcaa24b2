package cart

import (
	"context"
	"fmt"
	"log"

	"github.com/shopcar/storefront/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Checkout hands the user's pending lines to the order processor. The lines
// are re-fetched server-side; a client-supplied snapshot is never trusted
// for pricing or quantities.
//
// On success the core clears the pending lines itself. On failure the lines
// are left untouched and the processor's message comes back as a
// *RejectedError for display; no retry is attempted here.
func (s *Service) Checkout(ctx context.Context, userID int64) (*models.CheckoutResponse, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	lines, err := s.lines.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		// Never fabricate an order from zero line items
		return nil, &ValidationError{Field: "cart", Message: "cart is empty"}
	}

	verdict, err := s.processor.ProcessOrder(ctx, userID, lines)
	if err != nil {
		return nil, fmt.Errorf("order processor: %w", err)
	}

	if !verdict.Success {
		s.recordCheckout(ctx, false, 0)
		log.Printf("[ORDER] Checkout rejected: user_id=%d, message=%q", userID, verdict.Message)
		return nil, &RejectedError{Message: verdict.Message}
	}

	if err := s.lines.ClearUser(ctx, userID); err != nil {
		// The order went through; a stale cart is recoverable, a lost
		// order is not
		log.Printf("[ORDER] Warning: could not clear cart after checkout: user_id=%d: %v", userID, err)
	}

	var total float64
	var quantity int
	for _, line := range lines {
		total += line.Value()
		quantity += line.Quantity
	}
	s.recordCheckout(ctx, true, total)
	s.recordCartSize(ctx, userID)

	log.Printf("[ORDER] Checkout complete: user_id=%d, lines=%d, quantity=%d, total=%.2f",
		userID, len(lines), quantity, total)

	return &models.CheckoutResponse{Success: true, Message: verdict.Message}, nil
}

func (s *Service) recordCheckout(ctx context.Context, success bool, total float64) {
	if s.metrics == nil {
		return
	}

	outcome := "success"
	if !success {
		outcome = "rejected"
	}
	attrs := s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("outcome", outcome),
	})

	s.metrics.OrdersProcessed.Add(ctx, 1, metric.WithAttributes(attrs...))
	if success {
		s.metrics.RevenueTotal.Add(ctx, total, metric.WithAttributes(attrs...))
	} else {
		s.metrics.CheckoutFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
