package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// Server
	Port string
	Host string

	// Auth Service
	AuthServiceURL string

	// Dashboard refresh
	RefreshInterval time.Duration

	// Reverse geocoding
	NominatimURL string

	// Optional dashboard viewpoint used for distance computation.
	// When unset, distances fall back to a deterministic placeholder.
	ViewpointLat *float64
	ViewpointLng *float64

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		DBUser:         getEnv("DB_USER", "server"),
		DBPassword:     getEnv("DB_PASSWORD", "secret_app"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "3306"),
		DBName:         getEnv("DB_NAME", "petdash"),
		Port:           getEnv("PORT", "8080"),
		Host:           getEnv("HOST", "0.0.0.0"),
		AuthServiceURL: getEnv("AUTH_SERVICE_URL", "http://auth-service:8080"),
		NominatimURL:   getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	// Zero or unparsable interval disables the periodic refresh; manual
	// refresh stays available.
	seconds, err := strconv.Atoi(getEnv("REFRESH_INTERVAL_SECONDS", "30"))
	if err != nil || seconds < 0 {
		seconds = 0
	}
	cfg.RefreshInterval = time.Duration(seconds) * time.Second

	cfg.ViewpointLat = parseCoord(os.Getenv("DASHBOARD_LAT"))
	cfg.ViewpointLng = parseCoord(os.Getenv("DASHBOARD_LNG"))

	return cfg
}

// HasViewpoint reports whether both viewpoint coordinates are configured.
func (c *Config) HasViewpoint() bool {
	return c.ViewpointLat != nil && c.ViewpointLng != nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCoord(value string) *float64 {
	if value == "" {
		return nil
	}
	coord, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &coord
}
