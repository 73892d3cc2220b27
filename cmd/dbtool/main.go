package main

import (
	"agro-route-service/internal/adapters/cache"
	"agro-route-service/internal/adapters/geocoding"
	"agro-route-service/internal/adapters/repositories"
	"agro-route-service/internal/config"
	"agro-route-service/internal/platform/db"
	"agro-route-service/internal/services"
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	seed := flag.Bool("seed", false, "upsert pickups from SEED_PATH (or -seed-path)")
	seedPath := flag.String("seed-path", cfg.SeedPath, "CSV file with pickups")
	loadLocs := flag.Bool("localities", false, "store the locality table from LOCALITIES_PATH")
	geocode := flag.Bool("geocode", false, "geocode pending pickups without coordinates (needs ORS_API_KEY)")
	flag.Parse()

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

	log.Println("Initializing database schema...")
	if err := repositories.InitSchema(conn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	repo := repositories.NewSQLPickupRepository(conn, dialect)

	if *seed {
		log.Println("Seeding pickups...")
		n, err := repositories.SeedFromCSV(ctx, repo, *seedPath)
		if err != nil {
			log.Fatalf("seeding failed: %v", err)
		}
		log.Printf("Seeding complete. count=%d", n)
	}

	if *loadLocs {
		l, err := config.LoadLocalities(cfg.LocalitiesPath)
		if err != nil {
			log.Fatalf("locality load failed: %v", err)
		}
		if err := cache.NewSQLLocalityStore(conn, dialect).PutMany(ctx, l.Coordinates()); err != nil {
			log.Fatalf("locality store failed: %v", err)
		}
		log.Printf("Localities stored. count=%d", len(l.Entries()))
	}

	if *geocode {
		g, err := geocoding.NewORSGeocoder(cfg.ORSAPIKey, cfg.GeocodeCountry)
		if err != nil {
			log.Fatalf("geocoder: %v", err)
		}
		n, err := services.GeocodeMissing(ctx, repo, g)
		if err != nil {
			log.Fatalf("geocoding failed: %v", err)
		}
		log.Printf("Geocoding complete. updated=%d", n)
	}
}
