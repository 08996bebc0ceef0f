package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolvePlaceName(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{
			name:     "well-formed response",
			status:   http.StatusOK,
			body:     `{"display_name": "123 Main St"}`,
			expected: "123 Main St",
		},
		{
			name:     "malformed JSON",
			status:   http.StatusOK,
			body:     `{"display_name": `,
			expected: UnknownLocation,
		},
		{
			name:     "missing display_name",
			status:   http.StatusOK,
			body:     `{"place_id": 42}`,
			expected: UnknownLocation,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			body:     `oops`,
			expected: UnknownLocation,
		},
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			body:     `slow down`,
			expected: UnknownLocation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/reverse" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if r.Header.Get("User-Agent") != UserAgent {
					t.Errorf("missing user agent header")
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL)
			if got := client.ResolvePlaceName(context.Background(), 40.7128, -74.0060); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestResolvePlaceName_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewClient(server.URL)
	if got := client.ResolvePlaceName(context.Background(), 40.0, -74.0); got != UnknownLocation {
		t.Errorf("expected %q on network failure, got %q", UnknownLocation, got)
	}
}

func TestResolvePlaceName_SendsCoordinates(t *testing.T) {
	var gotLat, gotLon string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLat = r.URL.Query().Get("lat")
		gotLon = r.URL.Query().Get("lon")
		w.Write([]byte(`{"display_name": "Somewhere"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.ResolvePlaceName(context.Background(), 40.712800, -74.006000)

	if gotLat != "40.712800" {
		t.Errorf("unexpected lat param %q", gotLat)
	}
	if gotLon != "-74.006000" {
		t.Errorf("unexpected lon param %q", gotLon)
	}
}
