package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds process settings read from the environment.
type Config struct {
	Port           string
	DBDriver       string
	DBPath         string
	DatabaseURL    string
	SeedPath       string
	LocalitiesPath string
	RedisAddr      string
	RouteCacheTTL  time.Duration
	DefaultBase    string
	GroupRadiusKm  float64
	ORSAPIKey      string
	GeocodeCountry string
}

// Get returns the environment value for key or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads Config from the environment. Call godotenv.Load first to pick
// up a local .env file.
func Load() (Config, error) {
	cfg := Config{
		Port:           Get("PORT", "8080"),
		DBDriver:       Get("DB_DRIVER", "sqlite"),
		DBPath:         Get("DB_PATH", "data/app.db"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		SeedPath:       Get("SEED_PATH", "data/seeds/pickups.csv"),
		LocalitiesPath: Get("LOCALITIES_PATH", "data/localities.yaml"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		DefaultBase:    Get("DEFAULT_BASE", "Tunja"),
		ORSAPIKey:      strings.TrimSpace(os.Getenv("ORS_API_KEY")),
		GeocodeCountry: Get("GEOCODE_COUNTRY", "CO"),
	}

	ttl, err := time.ParseDuration(Get("ROUTE_CACHE_TTL", "10m"))
	if err != nil {
		return Config{}, fmt.Errorf("load config: ROUTE_CACHE_TTL: %w", err)
	}
	cfg.RouteCacheTTL = ttl

	radius, err := strconv.ParseFloat(Get("GROUP_RADIUS_KM", "5"), 64)
	if err != nil {
		return Config{}, fmt.Errorf("load config: GROUP_RADIUS_KM: %w", err)
	}
	if radius < 0 {
		return Config{}, fmt.Errorf("load config: GROUP_RADIUS_KM must be >= 0, got %v", radius)
	}
	cfg.GroupRadiusKm = radius

	switch cfg.DBDriver {
	case "sqlite":
	case "pgx":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return Config{}, fmt.Errorf("load config: DATABASE_URL is required for DB_DRIVER=pgx")
		}
	default:
		return Config{}, fmt.Errorf("load config: unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	return cfg, nil
}

// DSN returns the data source name for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == "pgx" {
		return c.DatabaseURL
	}
	return c.DBPath
}
