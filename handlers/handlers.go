package handlers

import (
	"log"
	"net/http"
	"time"

	"pet-dashboard/middleware"
	"pet-dashboard/models"
	"pet-dashboard/services"

	"github.com/gin-gonic/gin"
)

// DashboardHandler handles HTTP requests for the dashboard view-models.
type DashboardHandler struct {
	dashboard       *services.DashboardService
	databaseService *services.DatabaseService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboard *services.DashboardService, databaseService *services.DatabaseService) *DashboardHandler {
	return &DashboardHandler{
		dashboard:       dashboard,
		databaseService: databaseService,
	}
}

// HealthHandler handles health check requests
func (h *DashboardHandler) HealthHandler(c *gin.Context) {
	response := models.HealthResponse{
		Status:    "healthy",
		Message:   "Pet Dashboard service is running",
		Service:   "pet-dashboard",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	c.JSON(http.StatusOK, response)
}

// SnapshotHandler returns the full dashboard snapshot.
func (h *DashboardHandler) SnapshotHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboard.Snapshot())
}

// LostHandler returns the current lost pets list.
func (h *DashboardHandler) LostHandler(c *gin.Context) {
	lost := h.dashboard.LostPets()
	c.JSON(http.StatusOK, gin.H{"lost": lost, "count": len(lost)})
}

// FoundHandler returns the current found pets list.
func (h *DashboardHandler) FoundHandler(c *gin.Context) {
	found := h.dashboard.FoundPets()
	c.JSON(http.StatusOK, gin.H{"found": found, "count": len(found)})
}

// AlertsHandler returns the current alerts list.
func (h *DashboardHandler) AlertsHandler(c *gin.Context) {
	alerts := h.dashboard.Alerts()
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}

// ActivitiesHandler returns the current community activities list.
func (h *DashboardHandler) ActivitiesHandler(c *gin.Context) {
	activities := h.dashboard.Activities()
	c.JSON(http.StatusOK, gin.H{"activities": activities, "count": len(activities)})
}

// RefreshHandler runs one user-initiated refresh and returns the resulting
// snapshot. Safe to call concurrently; overlapping refreshes interleave.
func (h *DashboardHandler) RefreshHandler(c *gin.Context) {
	h.dashboard.Refresh(c.Request.Context(), true)
	c.JSON(http.StatusOK, h.dashboard.Snapshot())
}

// MyReportsHandler returns the authenticated user's own reports together
// with their profile.
func (h *DashboardHandler) MyReportsHandler(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign in to manage your pet reports"})
		return
	}

	user, err := h.databaseService.GetUserProfile(c.Request.Context(), userID)
	if err != nil {
		log.Printf("Error getting profile for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	reports, err := h.databaseService.GetReportsByUser(c.Request.Context(), userID)
	if err != nil {
		log.Printf("Error getting reports for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, models.UserReportsResponse{
		User:    *user,
		Reports: reports,
		Count:   len(reports),
	})
}
