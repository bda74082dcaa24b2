// Package orderproc is the HTTP client for the external order-processing
// collaborator.
package orderproc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopcar/storefront/internal/cart"
	"github.com/shopcar/storefront/internal/models"
	"github.com/shopcar/storefront/pkg/config"
)

// Client posts finalized carts to the order processor and relays its
// verdict. Transport failures are errors; a rejected order is a verdict.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a client from application configuration
func NewClient(cfg *config.Config) *Client {
	return &Client{
		endpoint: cfg.OrderProcessorURL,
		http: &http.Client{
			Timeout: time.Duration(cfg.OrderProcessorTimeout) * time.Second,
		},
	}
}

type orderLine struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	Remarks   string  `json:"remarks,omitempty"`
}

type orderRequest struct {
	UserID int64       `json:"user_id"`
	Lines  []orderLine `json:"lines"`
}

// ProcessOrder submits the cart snapshot and awaits the verdict
func (c *Client) ProcessOrder(ctx context.Context, userID int64, lines []models.CartLineView) (cart.Verdict, error) {
	req := orderRequest{UserID: userID, Lines: make([]orderLine, 0, len(lines))}
	for _, line := range lines {
		req.Lines = append(req.Lines, orderLine{
			ProductID: line.ProductID,
			Name:      line.ProductName,
			UnitPrice: line.ProductPrice,
			Quantity:  line.Quantity,
			Remarks:   line.Remarks,
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return cart.Verdict{}, fmt.Errorf("failed to encode order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return cart.Verdict{}, fmt.Errorf("failed to build order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return cart.Verdict{}, fmt.Errorf("order processor unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return cart.Verdict{}, fmt.Errorf("order processor returned %s", resp.Status)
	}

	var verdict cart.Verdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return cart.Verdict{}, fmt.Errorf("failed to decode order verdict: %w", err)
	}
	return verdict, nil
}
