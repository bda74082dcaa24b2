package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopcar/storefront/internal/api"
	"github.com/shopcar/storefront/internal/blob"
	"github.com/shopcar/storefront/internal/cart"
	"github.com/shopcar/storefront/internal/db"
	"github.com/shopcar/storefront/internal/metrics"
	"github.com/shopcar/storefront/internal/orderproc"
	"github.com/shopcar/storefront/internal/seed"
	"github.com/shopcar/storefront/internal/storage"
	"github.com/shopcar/storefront/pkg/config"
)

func main() {
	cfg := config.LoadConfig()

	ctx := context.Background()

	appMetrics, meterProvider, err := metrics.InitMetrics(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down meter provider: %v", err)
		}
	}()

	database, err := db.New(cfg.GetDSN(), cfg.OTELServiceName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if schemaSQL, err := os.ReadFile("schema.sql"); err != nil {
		log.Printf("Warning: schema.sql not found, skipping schema init: %v", err)
	} else if err := database.InitSchema(ctx, string(schemaSQL)); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	cartLines := storage.NewCartLineStore(database, appMetrics)
	catalog := storage.NewCatalogStore(database, appMetrics)
	categories := storage.NewCategoryStore(database, appMetrics)
	geography := storage.NewGeographyStore(database, appMetrics)
	users := storage.NewUserStore(database, appMetrics)

	if err := seed.New(categories, catalog, users).Run(ctx); err != nil {
		log.Fatalf("Failed to seed initial data: %v", err)
	}

	processor := orderproc.NewClient(cfg)
	blobs := blob.NewFSStore(cfg.BlobRootDir, cfg.BlobBaseURL)
	cartService := cart.NewService(cartLines, catalog, users, processor, appMetrics)

	app := api.NewApp(cfg, appMetrics, cartService, catalog, categories, geography, users, users, blobs)

	router := mux.NewRouter()
	app.SetupRoutes(router)

	monitorCtx, cancelMonitor := context.WithCancel(ctx)
	defer cancelMonitor()
	go cartLines.MonitorActiveCarts(monitorCtx)

	server := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting storefront server on port %s", cfg.AppPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
