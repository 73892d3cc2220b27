package main

import (
	"agro-route-service/internal/adapters/cache"
	"agro-route-service/internal/adapters/geocoding"
	"agro-route-service/internal/adapters/repositories"
	"agro-route-service/internal/api"
	"agro-route-service/internal/config"
	"agro-route-service/internal/geo"
	"agro-route-service/internal/platform/db"
	"agro-route-service/internal/ports"
	"agro-route-service/internal/services"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// main is the application composition root.
// It wires concrete adapters (SQL, Redis, ORS) behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	dialect, err := repositories.DialectFor(cfg.DBDriver)
	if err != nil {
		log.Fatal(err)
	}

	conn, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	ctx := context.Background()
	repo := repositories.NewSQLPickupRepository(conn, dialect)

	// Initialize schema and seed demo data on first start for local runs.
	if err := initAndSeed(ctx, conn, repo, cfg.SeedPath); err != nil {
		log.Fatal(err)
	}

	localities, err := loadLocalities(ctx, cfg, cache.NewSQLLocalityStore(conn, dialect))
	if err != nil {
		log.Fatal(err)
	}

	var routeCache ports.RouteCache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			log.Printf("route cache disabled: addr=%s err=%v", cfg.RedisAddr, err)
		} else {
			routeCache = cache.NewRedisRouteCache(client, cfg.RouteCacheTTL)
			log.Printf("route cache enabled: addr=%s ttl=%s", cfg.RedisAddr, cfg.RouteCacheTTL)
		}
		cancel()
	}

	var geocoder ports.Geocoder
	if cfg.ORSAPIKey != "" {
		g, err := geocoding.NewORSGeocoder(cfg.ORSAPIKey, cfg.GeocodeCountry)
		if err != nil {
			log.Fatal(err)
		}
		geocoder = g
	} else {
		log.Println("geocoding disabled: ORS_API_KEY is empty")
	}

	router := api.NewRouter(api.Deps{
		Repo:            repo,
		Purchases:       repositories.NewSQLPurchaseRepository(conn, dialect),
		Localities:      localities,
		Geocoder:        geocoder,
		Optimizer:       services.NewRouteOptimizer(geo.Haversine),
		Cache:           routeCache,
		DB:              conn,
		DefaultBase:     cfg.DefaultBase,
		DefaultRadiusKm: cfg.GroupRadiusKm,
	})

	log.Printf("Server listening addr=:%s driver=%s", cfg.Port, cfg.DBDriver)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

func initAndSeed(ctx context.Context, conn *sql.DB, repo ports.PickupRepository, seedPath string) error {
	if err := repositories.InitSchema(conn); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	existing, err := repo.ListPickups(ctx, ports.PickupFilter{})
	if err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	n, err := repositories.SeedFromCSV(ctx, repo, seedPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("no seed file at %q, starting empty", seedPath)
		return nil
	}
	if err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	log.Printf("seeded pickups count=%d path=%s", n, seedPath)
	return nil
}

// loadLocalities prefers the YAML table and mirrors it into the database.
// Without a file the stored table is used, then the built-in defaults.
func loadLocalities(ctx context.Context, cfg config.Config, store *cache.SQLLocalityStore) (*config.Localities, error) {
	l, err := config.LoadLocalities(cfg.LocalitiesPath)
	switch {
	case err == nil:
		if err := store.PutMany(ctx, l.Coordinates()); err != nil {
			return nil, fmt.Errorf("load localities: %w", err)
		}
		return l, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	stored, err := store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load localities: %w", err)
	}
	if len(stored) > 0 {
		return config.LocalitiesFromMap(cfg.DefaultBase, stored)
	}

	log.Printf("no locality table at %q, using built-in defaults", cfg.LocalitiesPath)
	return config.DefaultLocalities(), nil
}
