package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the configuration settings for the place engine.
//
// Fields:
// - Env: The current environment (e.g., local, dev, prod).
// - Port: The port for the engine's HTTP and monitoring server.
// - MapboxToken: The access token for the Mapbox reverse-geocoding API.
// - MapboxTimeout: The timeout applied to each reverse-geocoding request.
// - MapboxRateLimit: The maximum reverse-geocoding requests per second.
// - Database: Configuration settings for the PostgreSQL place catalog.
type Config struct {
	Env             string         // Env is the current environment: local, dev, prod.
	Port            int            // Port is the HTTP server port.
	MapboxToken     string         // The access token for the Mapbox API.
	MapboxTimeout   time.Duration  // Timeout for reverse-geocoding requests.
	MapboxRateLimit int            // Reverse-geocoding requests allowed per second.
	Database        PostgresConfig // Database holds the postgres catalog configuration.
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
}

// MustLoad loads the configuration from the environment and returns a Config struct.
func MustLoad() *Config {
	_ = godotenv.Load()

	port, err := strconv.Atoi(setDefaultEnv("FORAGE_PORT", "8080"))
	if err != nil {
		panic("failed to parse port for HTTP server from configuration")
	}

	timeout, err := time.ParseDuration(setDefaultEnv("FORAGE_MAPBOX_TIMEOUT", "5s"))
	if err != nil {
		panic("failed to parse mapbox timeout from configuration")
	}

	rateLimit, err := strconv.Atoi(setDefaultEnv("FORAGE_MAPBOX_RATE_LIMIT", "10"))
	if err != nil {
		panic("failed to parse mapbox rate limit from configuration, must be an integer")
	}

	return &Config{
		Env:             setDefaultEnv("FORAGE_ENV", "production"),
		Port:            port,
		MapboxToken:     os.Getenv("FORAGE_MAPBOX_TOKEN"),
		MapboxTimeout:   timeout,
		MapboxRateLimit: rateLimit,
		Database: PostgresConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     os.Getenv("DB_PORT"),
			User:     os.Getenv("DB_USERNAME"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
		},
	}
}

func setDefaultEnv(key, override string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = override
	}

	return value
}
