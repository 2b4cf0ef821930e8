package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm/logger"

	"github.com/pipewatch/pipewatch/internal/alerts"
	"github.com/pipewatch/pipewatch/internal/config"
	"github.com/pipewatch/pipewatch/internal/database"
	"github.com/pipewatch/pipewatch/internal/events"
	"github.com/pipewatch/pipewatch/internal/handlers"
	"github.com/pipewatch/pipewatch/internal/jobs"
	"github.com/pipewatch/pipewatch/internal/middleware"
	"github.com/pipewatch/pipewatch/internal/services"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it (this is fine if using environment variables): %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting PipeWatch...")

	// Initialize JWT authentication middleware
	jwtAuthMiddleware := middleware.NewJWTAuthMiddleware(&middleware.JWTAuthConfig{
		Enabled:        true,
		JWTSecret:      cfg.JWTSecret,
		JWTExpiryHours: cfg.JWTExpiryHours,
		SkipPaths: []string{
			"/health",
			"/metrics",
			"/auth/register",
			"/auth/login",
		},
	})

	// Initialize database connection
	if err := database.Connect(cfg.DatabaseURL, logger.Warn); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Printf("Database connection established")

	// Run database migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize default database records
	if err := database.InitializeDefaults(); err != nil {
		log.Fatalf("Failed to initialize database defaults: %v", err)
	}

	db := database.GetDB()

	// Alerts engine and the stream fan-out
	engine := alerts.NewEngine(db)
	broadcaster := events.NewBroadcaster()
	engine.SetPublisher(broadcaster)
	log.Printf("Alert engine initialized")

	// Tenant-scoped services
	userService := services.NewUserService(db)
	pipelineService := services.NewPipelineService(db, engine)
	monitoringService := services.NewMonitoringService(db, engine)
	alertService := services.NewAlertService(db, engine)
	dashboardService := services.NewDashboardService(db)

	// API handler with a per-IP limit on credential endpoints
	apiHandler := handlers.NewAPIHandler(
		userService,
		pipelineService,
		monitoringService,
		alertService,
		dashboardService,
		broadcaster,
		jwtAuthMiddleware,
	)
	apiHandler.SetLoginRateLimiter(middleware.NewRateLimiter(cfg.LoginRatePerSecond, cfg.LoginBurst))

	httpHandler := handlers.NewHTTPHandler()

	// Set up HTTP server routes
	mux := http.NewServeMux()
	httpHandler.SetupRoutes(mux)
	apiHandler.SetupRoutes(mux)

	// Middleware chain: request ID, CORS, then JWT authentication
	corsMiddleware := middleware.NewCORSMiddleware(cfg.CORSAllowedOrigins...)
	handler := middleware.RequestIDMiddleware(corsMiddleware.Wrap(jwtAuthMiddleware.Wrap(mux)))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: handler,
	}

	go func() {
		log.Printf("Starting HTTP server on port %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Background escalation sweep
	stopJobs := make(chan struct{})
	escalationJob := jobs.NewEscalationJob(db)
	go escalationJob.Start(time.Duration(cfg.EscalationIntervalSeconds)*time.Second, stopJobs)
	log.Printf("Escalation job running every %ds", cfg.EscalationIntervalSeconds)

	log.Printf("Health check endpoint: http://localhost:%d/health", cfg.HTTPPort)
	log.Printf("Metrics endpoint: http://localhost:%d/metrics", cfg.HTTPPort)
	log.Printf("API base URL: http://localhost:%d/api", cfg.HTTPPort)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Received shutdown signal, cleaning up...")
	close(stopJobs)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	log.Println("Shutdown complete")
}
