package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopcar/storefront/internal/db"
	"github.com/shopcar/storefront/internal/metrics"
	"github.com/shopcar/storefront/internal/models"
)

// CatalogStore persists products, their images and category assignments
type CatalogStore struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// NewCatalogStore creates a new catalog store
func NewCatalogStore(db *db.DB, metrics *metrics.AppMetrics) *CatalogStore {
	return &CatalogStore{db: db, metrics: metrics}
}

// GetProduct returns a product by ID with its images and categories
func (s *CatalogStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	start := time.Now()
	query := "SELECT id, name, description, price, stock, created_at, updated_at FROM products WHERE id = ?"
	var p models.Product
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt,
	)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", query, start, err == nil || err == sql.ErrNoRows)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if err := s.attachImages(ctx, []*models.Product{&p}); err != nil {
		return nil, err
	}
	if err := s.attachCategories(ctx, []*models.Product{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListAvailable returns in-stock products ordered by description, the
// storefront landing view
func (s *CatalogStore) ListAvailable(ctx context.Context) ([]models.Product, error) {
	start := time.Now()
	query := "SELECT id, name, description, price, stock, created_at, updated_at FROM products WHERE stock > 0 ORDER BY description"
	return s.listProducts(ctx, query, start)
}

// ListProducts returns a paginated list of products for the back office
func (s *CatalogStore) ListProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	start := time.Now()
	query := "SELECT id, name, description, price, stock, created_at, updated_at FROM products ORDER BY id LIMIT ? OFFSET ?"
	return s.listProducts(ctx, query, start, limit, offset)
}

func (s *CatalogStore) listProducts(ctx context.Context, query string, start time.Time, args ...interface{}) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", query, start, err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*models.Product, len(products))
	for i := range products {
		refs[i] = &products[i]
	}
	if err := s.attachImages(ctx, refs); err != nil {
		return nil, err
	}
	if err := s.attachCategories(ctx, refs); err != nil {
		return nil, err
	}
	return products, nil
}

// attachImages loads image rows for the given products in one IN query
func (s *CatalogStore) attachImages(ctx context.Context, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Product, len(products))
	ids := make([]interface{}, len(products))
	placeholders := make([]string, len(products))
	for i, p := range products {
		byID[p.ID] = p
		ids[i] = p.ID
		placeholders[i] = "?"
	}

	start := time.Now()
	query := fmt.Sprintf(
		"SELECT id, product_id, blob_id FROM product_images WHERE product_id IN (%s) ORDER BY id",
		strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, ids...)
	s.metrics.RecordDBQuery(ctx, "SELECT", "product_images", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to query product images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img models.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.BlobID); err != nil {
			return fmt.Errorf("failed to scan product image: %w", err)
		}
		if p := byID[img.ProductID]; p != nil {
			p.Images = append(p.Images, img)
		}
	}
	return rows.Err()
}

// attachCategories loads category assignments for the given products in one IN query
func (s *CatalogStore) attachCategories(ctx context.Context, products []*models.Product) error {
	if len(products) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Product, len(products))
	ids := make([]interface{}, len(products))
	placeholders := make([]string, len(products))
	for i, p := range products {
		byID[p.ID] = p
		ids[i] = p.ID
		placeholders[i] = "?"
	}

	start := time.Now()
	query := fmt.Sprintf(`
		SELECT pc.product_id, c.id, c.name
		FROM product_categories pc
		JOIN categories c ON pc.category_id = c.id
		WHERE pc.product_id IN (%s)
		ORDER BY c.name`,
		strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, ids...)
	s.metrics.RecordDBQuery(ctx, "SELECT", "product_categories", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to query product categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var productID int64
		var c models.Category
		if err := rows.Scan(&productID, &c.ID, &c.Name); err != nil {
			return fmt.Errorf("failed to scan product category: %w", err)
		}
		if p := byID[productID]; p != nil {
			p.Categories = append(p.Categories, c)
		}
	}
	return rows.Err()
}

// CreateProduct inserts a product and its category assignments.
// A duplicate name surfaces as ErrConflict.
func (s *CatalogStore) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	start := time.Now()
	query := "INSERT INTO products (name, description, price, stock) VALUES (?, ?, ?, ?)"
	result, err := s.db.ExecContext(ctx, query, req.Name, req.Description, req.Price, req.Stock)
	s.metrics.RecordDBQuery(ctx, "INSERT", "products", query, start, err == nil)
	if err != nil {
		if db.IsDuplicateEntry(err) {
			return nil, fmt.Errorf("product %q: %w", req.Name, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get product ID: %w", err)
	}

	if err := s.setCategories(ctx, id, req.CategoryIDs); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, id)
}

// UpdateProduct overwrites a product's fields and category assignments
func (s *CatalogStore) UpdateProduct(ctx context.Context, id int64, req *models.CreateProductRequest) (*models.Product, error) {
	start := time.Now()
	query := "UPDATE products SET name = ?, description = ?, price = ?, stock = ?, updated_at = NOW() WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, req.Name, req.Description, req.Price, req.Stock, id)
	s.metrics.RecordDBQuery(ctx, "UPDATE", "products", query, start, err == nil)
	if err != nil {
		if db.IsDuplicateEntry(err) {
			return nil, fmt.Errorf("product %q: %w", req.Name, ErrConflict)
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// MySQL reports zero rows for no-change updates too, so confirm
		if _, err := s.GetProduct(ctx, id); err != nil {
			return nil, err
		}
	}

	if err := s.setCategories(ctx, id, req.CategoryIDs); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, id)
}

func (s *CatalogStore) setCategories(ctx context.Context, productID int64, categoryIDs []int64) error {
	start := time.Now()
	deleteQuery := "DELETE FROM product_categories WHERE product_id = ?"
	_, err := s.db.ExecContext(ctx, deleteQuery, productID)
	s.metrics.RecordDBQuery(ctx, "DELETE", "product_categories", deleteQuery, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to clear product categories: %w", err)
	}

	insertQuery := "INSERT INTO product_categories (product_id, category_id) VALUES (?, ?)"
	for _, categoryID := range categoryIDs {
		start = time.Now()
		_, err := s.db.ExecContext(ctx, insertQuery, productID, categoryID)
		s.metrics.RecordDBQuery(ctx, "INSERT", "product_categories", insertQuery, start, err == nil)
		if err != nil {
			return fmt.Errorf("failed to assign category %d: %w", categoryID, err)
		}
	}
	return nil
}

// DeleteProduct removes a product; images and category links cascade
func (s *CatalogStore) DeleteProduct(ctx context.Context, id int64) error {
	start := time.Now()
	query := "DELETE FROM products WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, id)
	s.metrics.RecordDBQuery(ctx, "DELETE", "products", query, start, err == nil)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return nil
}

// AddImage attaches an uploaded blob to a product
func (s *CatalogStore) AddImage(ctx context.Context, productID int64, blobID uuid.UUID) (int64, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return 0, err
	}

	start := time.Now()
	query := "INSERT INTO product_images (product_id, blob_id) VALUES (?, ?)"
	result, err := s.db.ExecContext(ctx, query, productID, blobID)
	s.metrics.RecordDBQuery(ctx, "INSERT", "product_images", query, start, err == nil)
	if err != nil {
		return 0, fmt.Errorf("failed to add product image: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get image ID: %w", err)
	}
	return id, nil
}

// DeleteImage removes an image row and returns its blob id so the caller
// can delete the blob itself
func (s *CatalogStore) DeleteImage(ctx context.Context, imageID int64) (uuid.UUID, error) {
	start := time.Now()
	query := "SELECT blob_id FROM product_images WHERE id = ?"
	var blobID uuid.UUID
	err := s.db.QueryRowContext(ctx, query, imageID).Scan(&blobID)
	s.metrics.RecordDBQuery(ctx, "SELECT", "product_images", query, start, err == nil || err == sql.ErrNoRows)
	if err == sql.ErrNoRows {
		return uuid.Nil, fmt.Errorf("product image %d: %w", imageID, ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get product image: %w", err)
	}

	start = time.Now()
	deleteQuery := "DELETE FROM product_images WHERE id = ?"
	_, err = s.db.ExecContext(ctx, deleteQuery, imageID)
	s.metrics.RecordDBQuery(ctx, "DELETE", "product_images", deleteQuery, start, err == nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to delete product image: %w", err)
	}
	return blobID, nil
}

// HasProducts reports whether any product exists, used by seeding
func (s *CatalogStore) HasProducts(ctx context.Context) (bool, error) {
	start := time.Now()
	query := "SELECT EXISTS(SELECT 1 FROM products)"
	var exists bool
	err := s.db.QueryRowContext(ctx, query).Scan(&exists)
	s.metrics.RecordDBQuery(ctx, "SELECT", "products", query, start, err == nil)
	if err != nil {
		return false, fmt.Errorf("failed to check products: %w", err)
	}
	return exists, nil
}
