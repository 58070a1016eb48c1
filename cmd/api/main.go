package main

import (
	"log"
	"strings"

	_ "assetdesk/api/swagger" // swagger docs
	"assetdesk/internal/auth"
	"assetdesk/internal/config"
	"assetdesk/internal/database"
	"assetdesk/internal/handler"
	"assetdesk/internal/media"
	"assetdesk/internal/middleware"
	"assetdesk/internal/repository"
	"assetdesk/internal/service"
	"assetdesk/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Asset Desk API
// @version         1.0
// @description     Inventory and asset-request management: role-gated assets, allocation and request workflow.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	db, err := database.NewConnection(cfg.DSN())
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	mediaStore, err := media.NewLocalStore(cfg.MediaDir, cfg.MediaBaseURL, cfg.MediaMaxBytes)
	if err != nil {
		log.Fatalf("Media store unavailable: %v", err)
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	gate := middleware.NewGate(tokens)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statisticsRepo := repository.NewStatisticsRepository(db)

	userService := service.NewUserService(userRepo, auditRepo, txManager, tokens)
	inventoryService := service.NewInventoryService(assetRepo, requestRepo, userRepo, auditRepo, txManager, mediaStore, wsHub)
	requestService := service.NewRequestService(requestRepo, assetRepo, userRepo, auditRepo, txManager, wsHub)
	auditService := service.NewAuditService(auditRepo)
	statisticsService := service.NewStatisticsService(statisticsRepo)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService, gate)
	inventoryHandler := handler.NewInventoryHandler(inventoryService, gate)
	requestHandler := handler.NewRequestHandler(requestService, gate)
	auditHandler := handler.NewAuditHandler(auditService, gate)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService, gate)

	// Set up Gin Router
	router := gin.Default()
	router.MaxMultipartMemory = cfg.MediaMaxBytes

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// Uploaded asset images, unless they are fronted by another host
	if strings.HasPrefix(cfg.MediaBaseURL, "/") {
		router.Static(cfg.MediaBaseURL, mediaStore.Dir())
	}

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, tokens)
	})

	// API Routing
	userHandler.RegisterRoutes(router.Group(""))
	inventoryHandler.RegisterRoutes(router.Group(""))
	requestHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	statisticsHandler.RegisterRoutes(router.Group(""))

	log.Printf("Server listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
