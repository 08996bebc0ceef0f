package models

import (
	"time"
)

// Report status values as stored in the pet_reports table.
const (
	StatusLost  = "lost"
	StatusFound = "found"
)

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PetReport represents a raw pet report from the database. Reports are
// created by the submission flow and are read-only to this service.
type PetReport struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	PetType   string     `json:"pet_type"`
	PetBreed  string     `json:"pet_breed"`
	PetName   *string    `json:"pet_name,omitempty"`
	ImageURL  *string    `json:"image_url,omitempty"`
	Location  *GeoPoint  `json:"location,omitempty"`
	UserID    *string    `json:"user_id,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// LostPetView is a lost report enriched for display.
type LostPetView struct {
	PetReport
	BehaviorPrediction string `json:"behavior_prediction"`
	Distance           string `json:"distance"`
	SearchProbability  int    `json:"search_probability"`
}

// FoundPetView is a found report enriched for display.
type FoundPetView struct {
	PetReport
	Distance         string `json:"distance"`
	PotentialMatches int    `json:"potential_matches"`
	MatchProbability int    `json:"match_probability"`
}

// Alert represents a raw alert record.
type Alert struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Location    *GeoPoint  `json:"location,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// AlertView is an alert enriched for display.
type AlertView struct {
	Alert
	TimeAgo  string `json:"time_ago"`
	Distance string `json:"distance"`
	Color    string `json:"color"`
}

// CommunityActivity represents an active community search effort.
type CommunityActivity struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	PetName   *string    `json:"pet_name,omitempty"`
	Location  *GeoPoint  `json:"location,omitempty"`
	Details   *string    `json:"details,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// CommunityActivityView is a community activity with its resolved place name.
type CommunityActivityView struct {
	CommunityActivity
	PlaceName string `json:"place_name"`
}

// RefreshState tracks the dashboard refresh lifecycle.
type RefreshState struct {
	LastRefresh *time.Time `json:"last_refresh,omitempty"`
	Loading     bool       `json:"loading"`
	Refreshing  bool       `json:"refreshing"`
	Error       *string    `json:"error,omitempty"`
	AlertsError *string    `json:"alerts_error,omitempty"`
}

// DashboardSnapshot is the full view-model state served to clients.
type DashboardSnapshot struct {
	Lost       []LostPetView           `json:"lost"`
	Found      []FoundPetView          `json:"found"`
	Alerts     []AlertView             `json:"alerts"`
	Activities []CommunityActivityView `json:"activities"`
	Refresh    RefreshState            `json:"refresh"`
}

// UserProfile represents a user record.
type UserProfile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// UserReportsResponse is the response for the owner-scoped reports endpoint.
type UserReportsResponse struct {
	User    UserProfile `json:"user"`
	Reports []PetReport `json:"reports"`
	Count   int         `json:"count"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status           string `json:"status"`
	Message          string `json:"message,omitempty"`
	Service          string `json:"service,omitempty"`
	Timestamp        string `json:"timestamp,omitempty"`
	ConnectedClients int    `json:"connected_clients,omitempty"`
	LastBroadcastSeq int    `json:"last_broadcast_seq,omitempty"`
}

// BroadcastMessage represents a message sent to WebSocket clients.
type BroadcastMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
