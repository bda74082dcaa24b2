package models

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a product in the catalog
type Product struct {
	ID          int64          `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	Description string         `json:"description" db:"description"`
	Price       float64        `json:"price" db:"price"`
	Stock       float64        `json:"stock" db:"stock"`
	Images      []ProductImage `json:"images,omitempty"`
	Categories  []Category     `json:"categories,omitempty"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// ProductImage references an uploaded blob for a product
type ProductImage struct {
	ID        int64     `json:"id" db:"id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	BlobID    uuid.UUID `json:"blob_id" db:"blob_id"`
	URL       string    `json:"url,omitempty"`
}

// Category represents a product category
type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Country is the root of the geography hierarchy
type Country struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// State belongs to a country
type State struct {
	ID        int64  `json:"id" db:"id"`
	CountryID int64  `json:"country_id" db:"country_id"`
	Name      string `json:"name" db:"name"`
}

// City belongs to a state
type City struct {
	ID      int64  `json:"id" db:"id"`
	StateID int64  `json:"state_id" db:"state_id"`
	Name    string `json:"name" db:"name"`
}

// User represents a storefront account. Authentication state lives in the
// external identity service; only profile and contact fields are stored here.
type User struct {
	ID        int64     `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Document  string    `json:"document" db:"document"`
	Phone     string    `json:"phone" db:"phone"`
	Address   string    `json:"address" db:"address"`
	CityID    int64     `json:"city_id" db:"city_id"`
	ImageID   uuid.UUID `json:"image_id" db:"image_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserProfile is a user joined with its flattened location. Location is
// fetched in one query, never navigated lazily.
type UserProfile struct {
	User
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// CartLine is a pending line item: one product, a quantity, optional
// remarks, owned by exactly one user until checkout finalizes it.
type CartLine struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Remarks   string    `json:"remarks" db:"remarks"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CartLineView is a cart line joined with its product's current name, price
// and primary image reference
type CartLineView struct {
	CartLine
	ProductName  string    `json:"product_name"`
	ProductPrice float64   `json:"product_price"`
	ImageID      uuid.UUID `json:"image_id"`
	ImageURL     string    `json:"image_url,omitempty"`
}

// Value returns the line total at the product's current price
func (v CartLineView) Value() float64 {
	return v.ProductPrice * float64(v.Quantity)
}

// CartView is the full cart projection for one user
type CartView struct {
	UserID        int64          `json:"user_id"`
	Lines         []CartLineView `json:"lines"`
	TotalQuantity int            `json:"total_quantity"`
	TotalAmount   float64        `json:"total_amount"`
}

// AddToCartRequest represents a request to add a product to the cart
type AddToCartRequest struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Remarks   string `json:"remarks"`
}

// EditLineRequest represents a request to overwrite a cart line
type EditLineRequest struct {
	Quantity int    `json:"quantity"`
	Remarks  string `json:"remarks"`
}

// CheckoutResponse reports the verdict of a checkout attempt
type CheckoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// CreateProductRequest represents an admin request to create or update a product
type CreateProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       float64 `json:"stock"`
	CategoryIDs []int64 `json:"category_ids"`
}

// CreateCategoryRequest represents an admin request to create or rename a category
type CreateCategoryRequest struct {
	Name string `json:"name"`
}

// CreateUserRequest represents an admin request to create a user profile
type CreateUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Document  string `json:"document"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	CityID    int64  `json:"city_id"`
}
