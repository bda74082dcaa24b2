package orderproc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopcar/storefront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLines() []models.CartLineView {
	return []models.CartLineView{
		{
			CartLine:     models.CartLine{ID: 1, UserID: 7, ProductID: 10, Quantity: 2, Remarks: "gift wrap"},
			ProductName:  "Nike Air",
			ProductPrice: 2330,
		},
		{
			CartLine:     models.CartLine{ID: 2, UserID: 7, ProductID: 11, Quantity: 1},
			ProductName:  "AirPods",
			ProductPrice: 13000,
		},
	}
}

func newTestClient(endpoint string) *Client {
	return &Client{endpoint: endpoint, http: http.DefaultClient}
}

func TestProcessOrder_SubmitsSnapshotAndRelaysAcceptance(t *testing.T) {
	var received orderRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "message": "order 42 created"})
	}))
	defer server.Close()

	verdict, err := newTestClient(server.URL).ProcessOrder(context.Background(), 7, testLines())
	require.NoError(t, err)
	assert.True(t, verdict.Success)
	assert.Equal(t, "order 42 created", verdict.Message)

	assert.Equal(t, int64(7), received.UserID)
	require.Len(t, received.Lines, 2)
	assert.Equal(t, int64(10), received.Lines[0].ProductID)
	assert.Equal(t, "Nike Air", received.Lines[0].Name)
	assert.Equal(t, 2330.0, received.Lines[0].UnitPrice)
	assert.Equal(t, 2, received.Lines[0].Quantity)
	assert.Equal(t, "gift wrap", received.Lines[0].Remarks)
}

func TestProcessOrder_RelaysRejectionAsVerdict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": "insufficient stock"})
	}))
	defer server.Close()

	verdict, err := newTestClient(server.URL).ProcessOrder(context.Background(), 7, testLines())
	require.NoError(t, err, "a rejection is a verdict, not a transport error")
	assert.False(t, verdict.Success)
	assert.Equal(t, "insufficient stock", verdict.Message)
}

func TestProcessOrder_ServerErrorIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ProcessOrder(context.Background(), 7, testLines())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order processor returned")
}

func TestProcessOrder_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestClient(server.URL).ProcessOrder(context.Background(), 7, testLines())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order processor unreachable")
}
