package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopcar/storefront/internal/models"
)

func parsePositive(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}

// setupAdminRoutes wires the back-office endpoints for categories, products
// and users
func (a *App) setupAdminRoutes(api *mux.Router) {
	admin := api.PathPrefix("/admin").Subrouter()

	admin.HandleFunc("/categories", a.ListCategoriesHandler).Methods("GET")
	admin.HandleFunc("/categories", a.CreateCategoryHandler).Methods("POST")
	admin.HandleFunc("/categories/{id}", a.GetCategoryHandler).Methods("GET")
	admin.HandleFunc("/categories/{id}", a.RenameCategoryHandler).Methods("PUT")
	admin.HandleFunc("/categories/{id}", a.DeleteCategoryHandler).Methods("DELETE")

	admin.HandleFunc("/products", a.AdminListProductsHandler).Methods("GET")
	admin.HandleFunc("/products", a.CreateProductHandler).Methods("POST")
	admin.HandleFunc("/products/{id}", a.UpdateProductHandler).Methods("PUT")
	admin.HandleFunc("/products/{id}", a.DeleteProductHandler).Methods("DELETE")
	admin.HandleFunc("/products/{id}/images", a.AddProductImageHandler).Methods("POST")
	admin.HandleFunc("/products/images/{id}", a.DeleteProductImageHandler).Methods("DELETE")

	admin.HandleFunc("/users", a.ListUsersHandler).Methods("GET")
	admin.HandleFunc("/users", a.CreateUserHandler).Methods("POST")
	admin.HandleFunc("/users/{id}", a.UpdateUserHandler).Methods("PUT")
	admin.HandleFunc("/users/{id}", a.DeleteUserHandler).Methods("DELETE")
	admin.HandleFunc("/users/{id}/profile", a.GetUserProfileHandler).Methods("GET")
}

// ListCategoriesHandler handles GET /api/v1/admin/categories
func (a *App) ListCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := a.categories.List(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// GetCategoryHandler handles GET /api/v1/admin/categories/{id}
func (a *App) GetCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	category, err := a.categories.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// CreateCategoryHandler handles POST /api/v1/admin/categories
func (a *App) CreateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	category, err := a.categories.Create(r.Context(), req.Name)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// RenameCategoryHandler handles PUT /api/v1/admin/categories/{id}
func (a *App) RenameCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req models.CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	category, err := a.categories.Rename(r.Context(), id, req.Name)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// DeleteCategoryHandler handles DELETE /api/v1/admin/categories/{id}
func (a *App) DeleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.categories.Delete(r.Context(), id); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AdminListProductsHandler handles GET /api/v1/admin/products
func (a *App) AdminListProductsHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset := 20, 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := parsePositive(l); err == nil {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := parsePositive(o); err == nil {
			offset = parsed
		}
	}

	products, err := a.catalog.ListProducts(r.Context(), limit, offset)
	if err != nil {
		a.writeError(w, err)
		return
	}
	for i := range products {
		a.fillImageURLs(&products[i])
	}
	writeJSON(w, http.StatusOK, products)
}

// CreateProductHandler handles POST /api/v1/admin/products
func (a *App) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Price < 0 || req.Stock < 0 {
		http.Error(w, "Price and stock must not be negative", http.StatusBadRequest)
		return
	}

	product, err := a.catalog.CreateProduct(r.Context(), &req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.fillImageURLs(product)
	writeJSON(w, http.StatusCreated, product)
}

// UpdateProductHandler handles PUT /api/v1/admin/products/{id}
func (a *App) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req models.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Price < 0 || req.Stock < 0 {
		http.Error(w, "Price and stock must not be negative", http.StatusBadRequest)
		return
	}

	product, err := a.catalog.UpdateProduct(r.Context(), id, &req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.fillImageURLs(product)
	writeJSON(w, http.StatusOK, product)
}

// DeleteProductHandler handles DELETE /api/v1/admin/products/{id}
func (a *App) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.catalog.DeleteProduct(r.Context(), id); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AddProductImageHandler handles POST /api/v1/admin/products/{id}/images.
// Expects a multipart form with an "image" file.
func (a *App) AddProductImageHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "Missing image file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	blobID, err := a.blobs.Upload(r.Context(), file, productContainer)
	if err != nil {
		a.writeError(w, err)
		return
	}

	imageID, err := a.catalog.AddImage(r.Context(), id, blobID)
	if err != nil {
		// The blob is orphaned if the row insert fails; clean it up
		_ = a.blobs.Delete(r.Context(), blobID, productContainer)
		a.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.ProductImage{
		ID:        imageID,
		ProductID: id,
		BlobID:    blobID,
		URL:       a.blobs.URL(blobID, productContainer),
	})
}

// DeleteProductImageHandler handles DELETE /api/v1/admin/products/images/{id}
func (a *App) DeleteProductImageHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	blobID, err := a.catalog.DeleteImage(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if err := a.blobs.Delete(r.Context(), blobID, productContainer); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListUsersHandler handles GET /api/v1/admin/users
func (a *App) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.ListUsers(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// CreateUserHandler handles POST /api/v1/admin/users
func (a *App) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := a.users.CreateUser(r.Context(), &req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// UpdateUserHandler handles PUT /api/v1/admin/users/{id}
func (a *App) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := a.users.UpdateUser(r.Context(), id, &req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DeleteUserHandler handles DELETE /api/v1/admin/users/{id}
func (a *App) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.users.DeleteUser(r.Context(), id); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GetUserProfileHandler handles GET /api/v1/admin/users/{id}/profile,
// returning the user with its location flattened
func (a *App) GetUserProfileHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	profile, err := a.users.GetProfile(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
