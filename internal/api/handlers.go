package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopcar/storefront/internal/blob"
	"github.com/shopcar/storefront/internal/cart"
	"github.com/shopcar/storefront/internal/metrics"
	"github.com/shopcar/storefront/internal/middleware"
	"github.com/shopcar/storefront/internal/models"
	"github.com/shopcar/storefront/internal/storage"
	"github.com/shopcar/storefront/pkg/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const productContainer = "products"

// App holds application dependencies
type App struct {
	config     *config.Config
	metrics    *metrics.AppMetrics
	cart       *cart.Service
	catalog    *storage.CatalogStore
	categories *storage.CategoryStore
	geography  *storage.GeographyStore
	users      *storage.UserStore
	directory  cart.UserDirectory
	blobs      blob.Store
}

// NewApp creates a new application instance
func NewApp(
	cfg *config.Config,
	m *metrics.AppMetrics,
	cartService *cart.Service,
	catalog *storage.CatalogStore,
	categories *storage.CategoryStore,
	geography *storage.GeographyStore,
	users *storage.UserStore,
	directory cart.UserDirectory,
	blobs blob.Store,
) *App {
	return &App{
		config:     cfg,
		metrics:    m,
		cart:       cartService,
		catalog:    catalog,
		categories: categories,
		geography:  geography,
		users:      users,
		directory:  directory,
		blobs:      blobs,
	}
}

// SetupRoutes configures the HTTP routes
func (a *App) SetupRoutes(r *mux.Router) {
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.RecoverMiddleware)
	if a.metrics != nil {
		r.Use(middleware.MetricsMiddleware(a.metrics))
	}
	r.Use(middleware.CurrentUserMiddleware(a.directory))

	api := r.PathPrefix("/api/v1").Subrouter()

	// Storefront
	api.HandleFunc("/products", a.ListProductsHandler).Methods("GET")
	api.HandleFunc("/products/{id}", a.GetProductHandler).Methods("GET")

	// Cart
	api.HandleFunc("/cart", a.GetCartHandler).Methods("GET")
	api.HandleFunc("/cart", a.AddToCartHandler).Methods("POST")
	api.HandleFunc("/cart/badge", a.CartBadgeHandler).Methods("GET")
	api.HandleFunc("/cart/lines/{id}", a.EditLineHandler).Methods("PUT")
	api.HandleFunc("/cart/lines/{id}", a.RemoveLineHandler).Methods("DELETE")
	api.HandleFunc("/cart/lines/{id}/increase", a.IncreaseQuantityHandler).Methods("POST")
	api.HandleFunc("/cart/lines/{id}/decrease", a.DecreaseQuantityHandler).Methods("POST")
	api.HandleFunc("/checkout", a.CheckoutHandler).Methods("POST")

	// Geography lookups for cascading dropdowns
	api.HandleFunc("/countries", a.ListCountriesHandler).Methods("GET")
	api.HandleFunc("/countries/{id}/states", a.ListStatesHandler).Methods("GET")
	api.HandleFunc("/states/{id}/cities", a.ListCitiesHandler).Methods("GET")

	a.setupAdminRoutes(api)

	r.HandleFunc("/health", a.HealthHandler).Methods("GET")
}

// HealthHandler handles health check requests
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ListProductsHandler handles GET /api/v1/products: in-stock products
// ordered by description
func (a *App) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := a.catalog.ListAvailable(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}

	for i := range products {
		a.fillImageURLs(&products[i])
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProductHandler handles GET /api/v1/products/{id}
func (a *App) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	product, err := a.catalog.GetProduct(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.fillImageURLs(product)

	if a.metrics != nil {
		a.metrics.ProductsViewed.Add(r.Context(), 1, metric.WithAttributes(a.metrics.WithServiceName([]attribute.KeyValue{
			attribute.Int64("product_id", id),
		})...))
	}

	writeJSON(w, http.StatusOK, product)
}

// AddToCartHandler handles POST /api/v1/cart
func (a *App) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	var req models.AddToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	line, err := a.cart.AddToCart(r.Context(), userID, req.ProductID, req.Quantity, req.Remarks)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

// GetCartHandler handles GET /api/v1/cart
func (a *App) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	view, err := a.cart.GetCart(r.Context(), userID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	for i := range view.Lines {
		view.Lines[i].ImageURL = a.blobs.URL(view.Lines[i].ImageID, productContainer)
	}
	writeJSON(w, http.StatusOK, view)
}

// CartBadgeHandler handles GET /api/v1/cart/badge
func (a *App) CartBadgeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	count, err := a.cart.BadgeCount(r.Context(), userID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"quantity": count})
}

// IncreaseQuantityHandler handles POST /api/v1/cart/lines/{id}/increase
func (a *App) IncreaseQuantityHandler(w http.ResponseWriter, r *http.Request) {
	a.lineMutation(w, r, a.cart.IncreaseQuantity)
}

// DecreaseQuantityHandler handles POST /api/v1/cart/lines/{id}/decrease
func (a *App) DecreaseQuantityHandler(w http.ResponseWriter, r *http.Request) {
	a.lineMutation(w, r, a.cart.DecreaseQuantity)
}

// RemoveLineHandler handles DELETE /api/v1/cart/lines/{id}
func (a *App) RemoveLineHandler(w http.ResponseWriter, r *http.Request) {
	a.lineMutation(w, r, a.cart.RemoveLine)
}

func (a *App) lineMutation(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, lineID int64) error) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	lineID, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := op(r.Context(), userID, lineID); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// EditLineHandler handles PUT /api/v1/cart/lines/{id}
func (a *App) EditLineHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	lineID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req models.EditLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := a.cart.EditLine(r.Context(), userID, lineID, req.Quantity, req.Remarks); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CheckoutHandler handles POST /api/v1/checkout
func (a *App) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	resp, err := a.cart.Checkout(r.Context(), userID)
	if err != nil {
		var rejected *cart.RejectedError
		if errors.As(err, &rejected) {
			// The processor's message goes back verbatim for display
			writeJSON(w, http.StatusUnprocessableEntity, models.CheckoutResponse{
				Success: false,
				Message: rejected.Message,
			})
			return
		}
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListCountriesHandler handles GET /api/v1/countries
func (a *App) ListCountriesHandler(w http.ResponseWriter, r *http.Request) {
	countries, err := a.geography.ListCountries(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

// ListStatesHandler handles GET /api/v1/countries/{id}/states
func (a *App) ListStatesHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	states, err := a.geography.ListStates(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, states)
}

// ListCitiesHandler handles GET /api/v1/states/{id}/cities
func (a *App) ListCitiesHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cities, err := a.geography.ListCities(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cities)
}

func (a *App) fillImageURLs(p *models.Product) {
	for i := range p.Images {
		p.Images[i].URL = a.blobs.URL(p.Images[i].BlobID, productContainer)
	}
}

// requireUser extracts the authenticated user or rejects the request.
// Every mutating cart operation treats a missing user as a hard
// precondition failure.
func (a *App) requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return 0, false
	}
	return userID, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps workflow and storage errors to HTTP statuses
func (a *App) writeError(w http.ResponseWriter, err error) {
	var validation *cart.ValidationError
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"field":   validation.Field,
			"message": validation.Message,
		})
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, storage.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
