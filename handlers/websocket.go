package handlers

import (
	"log"
	"net/http"

	"pet-dashboard/middleware"
	"pet-dashboard/models"
	"pet-dashboard/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub *services.WebSocketHub
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WebSocketHub) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
	}
}

// ListenDashboard handles WebSocket connections for live dashboard snapshots
func (h *WebSocketHandler) ListenDashboard(c *gin.Context) {
	userID := middleware.GetUserIDFromContext(c)
	log.Printf("INFO: WebSocket connection request from user %s", userID)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins for now
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Error upgrading connection to WebSocket: %v", err)
		return
	}

	h.hub.RegisterClient(conn, userID)
}

// HealthCheck handles WebSocket health check
func (h *WebSocketHandler) HealthCheck(c *gin.Context) {
	response := models.HealthResponse{
		Status:           "healthy",
		Message:          "Pet Dashboard WebSocket service is running",
		Service:          "pet-dashboard-websocket",
		ConnectedClients: h.hub.GetConnectedClientsCount(),
		LastBroadcastSeq: h.hub.GetLastBroadcastSeq(),
	}
	c.JSON(http.StatusOK, response)
}
