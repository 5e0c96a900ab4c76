package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// DatabasePath is the SQLite database file path.
	DatabasePath string

	// GeocodeURL is the Nominatim reverse-geocoding endpoint. Empty means
	// the public instance.
	GeocodeURL string

	// DefaultFilterMode is the mode the filter engine resets to when the
	// last filter is removed. One of: all, address, hashtag, location.
	DefaultFilterMode string
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is applied first, if
// present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
	}

	dbPath := os.Getenv("FEED_DB_PATH")
	if dbPath == "" {
		dbPath = "wallet-feed.db"
	}

	geocodeURL := os.Getenv("FEED_GEOCODE_URL")

	mode := os.Getenv("FEED_DEFAULT_FILTER_MODE")
	if mode == "" {
		mode = "address"
	}
	switch mode {
	case "all", "address", "hashtag", "location":
	default:
		return nil, fmt.Errorf("invalid FEED_DEFAULT_FILTER_MODE %q", mode)
	}

	return &Config{
		Port:              port,
		DatabasePath:      dbPath,
		GeocodeURL:        geocodeURL,
		DefaultFilterMode: mode,
	}, nil
}
