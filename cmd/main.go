package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"products-dashboard/internal/clients"
	"products-dashboard/internal/config"
	"products-dashboard/internal/events"
	"products-dashboard/internal/handlers"
	"products-dashboard/internal/middleware"
	"products-dashboard/internal/repository"
	"products-dashboard/internal/services"
)

// @title Products Dashboard API
// @version 1.0.0
// @description Products admin dashboard: search, sort and paginate a product snapshot, edit and create products through the remote API, export the visible page.
// @termsOfService http://swagger.io/terms/

// @contact.name Products Dashboard Support
// @contact.url http://www.example.com/support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8088
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.IsProduction() {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client only if REDIS_URL is set
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Printf("WARNING: Failed to parse Redis URL: %v (snapshot caching will be disabled)", err)
		} else {
			redisClient = redis.NewClient(redisOpts)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.Printf("WARNING: Failed to connect to Redis: %v (snapshot caching will be disabled)", err)
				redisClient.Close()
				redisClient = nil
			} else {
				log.Println("✓ Redis connected successfully")
			}
			cancel()
		}
	} else {
		log.Println("REDIS_URL not set, snapshot caching disabled")
	}

	// Initialize audit database (optional)
	db, err := config.InitAuditDB(cfg)
	if err != nil {
		log.Fatal("Failed to initialize audit database:", err)
	}
	var auditStore services.AuditStore
	if db != nil {
		auditStore = repository.NewAuditRepository(db)
		log.Println("✓ Audit database connected")
	} else {
		log.Println("AUDIT_DB_DRIVER not set, audit trail disabled")
	}

	// Initialize event publisher only if NATS_URL is set
	var eventPublisher services.EventPublisher
	if cfg.NATSURL != "" {
		publisher, err := events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			eventPublisher = publisher
			defer publisher.Close()
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}

	// Initialize repository and clients
	snapshotRepo := repository.NewSnapshotRepository(cfg.SnapshotSource, redisClient, cfg.SnapshotCacheTTL, nil, logger)
	apiClient := clients.NewProductsAPIClient(cfg.APIBaseURL, cfg.APITimeout, logger)

	dashboardService := services.NewDashboardService(snapshotRepo, apiClient, auditStore, eventPublisher, services.Options{
		DefaultItemsPerPage: cfg.DefaultItemsPerPage,
		MaxItemsPerPage:     cfg.MaxItemsPerPage,
		IdleTimeout:         cfg.SessionIdleTimeout,
	}, logger)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	dashboardService.StartJanitor(janitorCtx, time.Minute)

	// Initialize handlers
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	pageHandler := handlers.NewPageHandler(dashboardService)
	healthHandler := handlers.NewHealthHandler(db, redisClient, dashboardService.ActiveSessions)

	tmpl, err := handlers.LoadTemplates()
	if err != nil {
		log.Fatal("Failed to parse templates:", err)
	}

	// Initialize Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.SessionMiddleware(cfg.IsProduction()))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	router.SetHTMLTemplate(tmpl)

	// Health check endpoints
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// Dashboard page
	router.GET("/", pageHandler.Dashboard)

	// API routes
	api := router.Group("/api/v1")
	dashboardHandler.RegisterRoutes(api.Group("/dashboard"))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Products dashboard starting on port %s (snapshot: %s, api: %s)", cfg.Port, snapshotRepo.Source(), apiClient.BaseURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Println("Shutting down products-dashboard...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	if redisClient != nil {
		redisClient.Close()
	}

	log.Println("Products dashboard stopped")
}
