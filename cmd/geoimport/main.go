// Command geoimport populates the countries/states/cities tables from the
// external geography API. Run once after provisioning the database; a
// populated database makes it a no-op.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopcar/storefront/internal/db"
	"github.com/shopcar/storefront/internal/geo"
	"github.com/shopcar/storefront/internal/metrics"
	"github.com/shopcar/storefront/internal/storage"
	"github.com/shopcar/storefront/pkg/config"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "geoimport",
		Short: "Import the country/state/city hierarchy",
		Long: `Fetches countries, states and cities from the configured geography API
and loads them into the database. Duplicate names are dropped per level,
as are states and countries that end up with no cities.`,
		RunE: runImport,
	}
	root.Flags().Bool("no-metrics", false, "skip OTLP metrics export")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	if cfg.GeoAPIKey == "" {
		return fmt.Errorf("GEO_API_KEY is not set")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var appMetrics *metrics.AppMetrics
	if skip, _ := cmd.Flags().GetBool("no-metrics"); !skip {
		m, meterProvider, err := metrics.InitMetrics(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := meterProvider.Shutdown(shutdownCtx); err != nil {
				log.Printf("Error shutting down meter provider: %v", err)
			}
		}()
		appMetrics = m
	}

	database, err := db.New(cfg.GetDSN(), cfg.OTELServiceName)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	geography := storage.NewGeographyStore(database, appMetrics)
	client := geo.NewClient(cfg.GeoAPIBaseURL, cfg.GeoAPIKey)

	return geo.NewImporter(client, geography, appMetrics).Run(ctx)
}
