// Package seed bootstraps the catalog and demo users on first start.
// Geography is imported separately by the geoimport job.
package seed

import (
	"context"
	"errors"
	"log"

	"github.com/shopcar/storefront/internal/models"
	"github.com/shopcar/storefront/internal/storage"
)

var categoryNames = []string{
	"Apple", "Beauty", "Clothing", "Electronics", "Food", "Footwear",
	"Gamer", "Nutrition", "Pets", "Sports", "Technology",
}

type productFixture struct {
	name       string
	price      float64
	stock      float64
	categories []string
}

var productFixtures = []productFixture{
	{"Adidas Barracuda", 2700, 12, []string{"Footwear", "Sports"}},
	{"Adidas Superstar", 2500, 12, []string{"Footwear", "Sports"}},
	{"AirPods", 13000, 12, []string{"Technology", "Apple"}},
	{"Bose Headphones", 8700, 12, []string{"Technology"}},
	{"Ribble Bicycle", 120000, 6, []string{"Sports"}},
	{"Plaid Shirt", 560, 24, []string{"Clothing"}},
	{"Bicycle Helmet", 8200, 12, []string{"Sports"}},
	{"iPad", 23000, 6, []string{"Technology", "Apple"}},
	{"iPhone 13", 52000, 6, []string{"Technology", "Apple"}},
	{"MacBook Pro", 121000, 6, []string{"Technology", "Apple"}},
	{"Dumbbells", 3700, 12, []string{"Sports"}},
	{"Face Mask", 260, 100, []string{"Beauty"}},
	{"New Balance 530", 1800, 12, []string{"Footwear", "Sports"}},
	{"New Balance 565", 1790, 12, []string{"Footwear", "Sports"}},
	{"Nike Air", 2330, 12, []string{"Footwear", "Sports"}},
	{"Nike Zoom", 2499, 12, []string{"Footwear", "Sports"}},
	{"Adidas Women's Hoodie", 1340, 12, []string{"Clothing", "Sports"}},
	{"Boost Original Supplement", 156, 12, []string{"Nutrition"}},
	{"Whey Protein", 2520, 12, []string{"Nutrition"}},
	{"Pet Harness", 250, 12, []string{"Pets"}},
	{"Pet Bed", 990, 12, []string{"Pets"}},
	{"Gamer Keyboard", 670, 12, []string{"Gamer", "Technology"}},
	{"Gamer Chair", 9800, 12, []string{"Gamer", "Technology"}},
	{"Gamer Mouse", 1320, 12, []string{"Gamer", "Technology"}},
}

var userFixtures = []models.CreateUserRequest{
	{Email: "admin@shopcar.local", FirstName: "Ada", LastName: "Moreno", Document: "1010", Phone: "3461099207", Address: "9 Canal Ave"},
	{Email: "shopper@shopcar.local", FirstName: "Luis", LastName: "Navarro", Document: "2020", Phone: "4952361232", Address: "467 Negrete St"},
}

// Seeder populates initial data when the relevant tables are empty
type Seeder struct {
	categories *storage.CategoryStore
	catalog    *storage.CatalogStore
	users      *storage.UserStore
}

// New creates a seeder
func New(categories *storage.CategoryStore, catalog *storage.CatalogStore, users *storage.UserStore) *Seeder {
	return &Seeder{categories: categories, catalog: catalog, users: users}
}

// Run seeds categories, products and demo users. Safe to call on every
// start; existing rows are left alone.
func (s *Seeder) Run(ctx context.Context) error {
	if err := s.ensureCategories(ctx); err != nil {
		return err
	}
	if err := s.ensureProducts(ctx); err != nil {
		return err
	}
	return s.ensureUsers(ctx)
}

func (s *Seeder) ensureCategories(ctx context.Context) error {
	for _, name := range categoryNames {
		if _, err := s.categories.Create(ctx, name); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				continue
			}
			return err
		}
	}
	return nil
}

func (s *Seeder) ensureProducts(ctx context.Context) error {
	populated, err := s.catalog.HasProducts(ctx)
	if err != nil {
		return err
	}
	if populated {
		return nil
	}

	for _, fixture := range productFixtures {
		var categoryIDs []int64
		for _, name := range fixture.categories {
			id, err := s.categories.IDByName(ctx, name)
			if err != nil {
				return err
			}
			categoryIDs = append(categoryIDs, id)
		}

		_, err := s.catalog.CreateProduct(ctx, &models.CreateProductRequest{
			Name:        fixture.name,
			Description: fixture.name,
			Price:       fixture.price,
			Stock:       fixture.stock,
			CategoryIDs: categoryIDs,
		})
		if err != nil && !errors.Is(err, storage.ErrConflict) {
			return err
		}
	}

	log.Printf("[SEED] Seeded %d products", len(productFixtures))
	return nil
}

func (s *Seeder) ensureUsers(ctx context.Context) error {
	for i := range userFixtures {
		if _, err := s.users.CreateUser(ctx, &userFixtures[i]); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				continue
			}
			return err
		}
	}
	return nil
}
