package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	// DefaultBaseURL is the public Nominatim API endpoint
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	// UserAgent is required by Nominatim usage policy
	UserAgent = "PetDashboard/1.0 (https://petdash.example.com)"
	// Rate limit: 1 request per second for Nominatim
	minRequestInterval = time.Second

	// UnknownLocation is returned for any lookup that cannot be resolved.
	UnknownLocation = "Unknown Location"
)

// Client performs reverse geocoding against Nominatim with rate limiting.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	lastRequest   time.Time
	rateLimitLock sync.Mutex
}

// NewClient creates a new reverse-geocoding client. An empty baseURL selects
// the public Nominatim endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// nominatimResponse is the subset of the Nominatim reverse response we use.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
}

// enforceRateLimit ensures we don't exceed Nominatim's rate limit
func (c *Client) enforceRateLimit() {
	c.rateLimitLock.Lock()
	defer c.rateLimitLock.Unlock()

	elapsed := time.Since(c.lastRequest)
	if elapsed < minRequestInterval {
		time.Sleep(minRequestInterval - elapsed)
	}
	c.lastRequest = time.Now()
}

// ResolvePlaceName resolves coordinates to a display name. It never fails:
// any network, status or decoding problem degrades to "Unknown Location".
func (c *Client) ResolvePlaceName(ctx context.Context, lat, lng float64) string {
	name, err := c.reverseGeocode(ctx, lat, lng)
	if err != nil {
		log.Printf("WARNING: reverse geocode (%.6f, %.6f) failed: %v", lat, lng, err)
		return UnknownLocation
	}
	return name
}

// reverseGeocode performs one Nominatim lookup and returns the display name.
func (c *Client) reverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	c.enforceRateLimit()

	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", lat))
	params.Set("lon", fmt.Sprintf("%f", lng))
	params.Set("format", "jsonv2")

	reqURL := fmt.Sprintf("%s/reverse?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("nominatim returned status %d: %s", resp.StatusCode, string(body))
	}

	var nomResp nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&nomResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if nomResp.DisplayName == "" {
		return "", fmt.Errorf("response has no display_name")
	}

	return nomResp.DisplayName, nil
}
