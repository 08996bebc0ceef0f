package geocode

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"time"

	"pet-dashboard/metrics"
)

const (
	// CacheGridSize is the grid size in meters for coordinate rounding (100m)
	CacheGridSize = 100.0
	// CacheTTL is how long cached results are valid
	CacheTTL = 30 * 24 * time.Hour
)

// CachedResolver wraps the Nominatim client with database caching, keyed by
// a grid-rounded coordinate pair so nearby lookups share one entry.
type CachedResolver struct {
	client *Client
	db     *sql.DB
}

// NewCachedResolver creates a new cached resolver.
func NewCachedResolver(client *Client, db *sql.DB) *CachedResolver {
	return &CachedResolver{
		client: client,
		db:     db,
	}
}

// CreateCacheTable creates the geocode cache table if it doesn't exist.
func (r *CachedResolver) CreateCacheTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS geocode_cache (
			id INT AUTO_INCREMENT PRIMARY KEY,
			lat_grid DOUBLE NOT NULL,
			lng_grid DOUBLE NOT NULL,
			place_name TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP NOT NULL,
			UNIQUE KEY idx_lat_lng (lat_grid, lng_grid),
			INDEX idx_expires (expires_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	_, err := r.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create geocode_cache table: %w", err)
	}
	log.Println("geocode_cache table verified/created")
	return nil
}

// roundToGrid rounds a coordinate to the cache grid size so nearby
// coordinates resolve to the same entry.
func roundToGrid(coord float64) float64 {
	// At the equator 1 degree is roughly 111,320 meters; a fixed factor
	// is close enough for a 100m cache grid.
	metersPerDegree := 111320.0
	gridDegrees := CacheGridSize / metersPerDegree
	return math.Round(coord/gridDegrees) * gridDegrees
}

// ResolvePlaceName resolves coordinates to a place name, using the cache when
// possible. Like the underlying client it never fails; unresolvable lookups
// return "Unknown Location" and are not cached.
func (r *CachedResolver) ResolvePlaceName(ctx context.Context, lat, lng float64) string {
	latGrid := roundToGrid(lat)
	lngGrid := roundToGrid(lng)

	name, err := r.getFromCache(ctx, latGrid, lngGrid)
	if err != nil {
		log.Printf("WARNING: geocode cache lookup failed: %v", err)
	}
	if name != "" {
		metrics.GeocodeLookupTotal.WithLabelValues("cache").Inc()
		return name
	}

	name = r.client.ResolvePlaceName(ctx, lat, lng)
	if name == UnknownLocation {
		metrics.GeocodeLookupTotal.WithLabelValues("error").Inc()
		return name
	}
	metrics.GeocodeLookupTotal.WithLabelValues("remote").Inc()

	if err := r.saveToCache(ctx, latGrid, lngGrid, name); err != nil {
		log.Printf("WARNING: failed to cache geocode result: %v", err)
	}

	return name
}

func (r *CachedResolver) getFromCache(ctx context.Context, latGrid, lngGrid float64) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx, `
		SELECT place_name
		FROM geocode_cache
		WHERE lat_grid = ? AND lng_grid = ? AND expires_at > NOW()
	`, latGrid, lngGrid).Scan(&name)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query cache: %w", err)
	}

	return name, nil
}

func (r *CachedResolver) saveToCache(ctx context.Context, latGrid, lngGrid float64, name string) error {
	expiresAt := time.Now().Add(CacheTTL)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (lat_grid, lng_grid, place_name, expires_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			place_name = VALUES(place_name),
			expires_at = VALUES(expires_at),
			created_at = NOW()
	`, latGrid, lngGrid, name, expiresAt)

	if err != nil {
		return fmt.Errorf("failed to save to cache: %w", err)
	}

	return nil
}

// CleanExpiredCache removes expired cache entries.
func (r *CachedResolver) CleanExpiredCache() (int64, error) {
	result, err := r.db.Exec("DELETE FROM geocode_cache WHERE expires_at < NOW()")
	if err != nil {
		return 0, fmt.Errorf("failed to clean expired cache: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}
