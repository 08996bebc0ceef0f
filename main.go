package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pet-dashboard/config"
	"pet-dashboard/geocode"
	"pet-dashboard/handlers"
	"pet-dashboard/metrics"
	"pet-dashboard/middleware"
	"pet-dashboard/models"
	"pet-dashboard/services"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using system environment variables")
	}

	cfg := config.Load()

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics.Register()

	// Initialize database service
	databaseService, err := services.NewDatabaseService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database service: %v", err)
	}
	defer databaseService.Close()

	// Initialize reverse geocoding with its cache table
	geocodeClient := geocode.NewClient(cfg.NominatimURL)
	resolver := geocode.NewCachedResolver(geocodeClient, databaseService.DB())
	if err := resolver.CreateCacheTable(); err != nil {
		log.Fatalf("Failed to create geocode cache table: %v", err)
	}

	// Initialize aggregation pipeline
	var viewpoint *models.GeoPoint
	if cfg.HasViewpoint() {
		viewpoint = &models.GeoPoint{Latitude: *cfg.ViewpointLat, Longitude: *cfg.ViewpointLng}
		log.Printf("INFO: Dashboard viewpoint configured at (%.4f, %.4f)", viewpoint.Latitude, viewpoint.Longitude)
	}
	pipeline := services.NewPipelineService(viewpoint, resolver)

	// Initialize WebSocket hub
	websocketHub := services.NewWebSocketHub()
	go websocketHub.Start()
	defer websocketHub.Stop()

	// Initialize dashboard service and run the first refresh up front
	dashboard := services.NewDashboardService(databaseService, pipeline, websocketHub)
	dashboard.Refresh(context.Background(), false)
	dashboard.Start(cfg.RefreshInterval)
	defer dashboard.Stop()

	router := setupRouter(cfg, dashboard, databaseService, websocketHub)

	srv := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting Pet Dashboard service on %s:%s", cfg.Host, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dashboard.Stop()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

func setupRouter(cfg *config.Config, dashboard *services.DashboardService, databaseService *services.DatabaseService, hub *services.WebSocketHub) *gin.Engine {
	router := gin.Default()

	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	dashboardHandler := handlers.NewDashboardHandler(dashboard, databaseService)
	websocketHandler := handlers.NewWebSocketHandler(hub)

	// Public endpoints
	router.GET("/health", dashboardHandler.HealthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v3")
	{
		api.GET("/dashboard", dashboardHandler.SnapshotHandler)
		api.GET("/dashboard/lost", dashboardHandler.LostHandler)
		api.GET("/dashboard/found", dashboardHandler.FoundHandler)
		api.GET("/dashboard/alerts", dashboardHandler.AlertsHandler)
		api.GET("/dashboard/activities", dashboardHandler.ActivitiesHandler)
		api.POST("/dashboard/refresh", dashboardHandler.RefreshHandler)
	}

	// Owner-scoped endpoints
	protected := router.Group("/api/v3")
	protected.Use(middleware.AuthMiddleware(cfg))
	{
		protected.GET("/reports/mine", dashboardHandler.MyReportsHandler)
	}

	// WebSocket endpoints
	router.GET("/ws/dashboard", websocketHandler.ListenDashboard)
	router.GET("/ws/health", websocketHandler.HealthCheck)

	return router
}
