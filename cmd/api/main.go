package main

import (
	"log"
	"os"
	"strings"

	"costportal/internal/database"
	"costportal/internal/handler"
	"costportal/internal/middleware"
	"costportal/internal/notify"
	"costportal/internal/repository"
	"costportal/internal/service"
	"costportal/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// E-mail dispatch via EmailJS
	emailClient := notify.NewClient(os.Getenv("EMAILJS_SERVICE_ID"), os.Getenv("EMAILJS_PUBLIC_KEY"))
	dispatcher := notify.NewDispatcher(
		emailClient,
		os.Getenv("EMAILJS_STAFF_TEMPLATE_ID"),
		os.Getenv("EMAILJS_DECISION_TEMPLATE_ID"),
		os.Getenv("PORTAL_URL"),
	)

	// Set up dependencies (Repository -> Service -> Handler)
	requestRepo := repository.NewRequestRepository(db)
	userRepo := repository.NewUserRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	reasonRepo := repository.NewReasonRepository(db)
	carrierRepo := repository.NewCarrierRepository(db)
	txMgr := repository.NewTransactionManager(db)

	requestService := service.NewRequestService(requestRepo, userRepo, branchRepo, reasonRepo, txMgr, dispatcher, wsHub)
	analyticsService := service.NewAnalyticsService(requestRepo)
	exportService := service.NewExportService(requestRepo, requestService)
	userService := service.NewUserService(userRepo)
	branchService := service.NewBranchService(branchRepo)
	reasonService := service.NewReasonService(reasonRepo)
	carrierService := service.NewCarrierService(carrierRepo)

	// Initialize Handlers
	requestHandler := handler.NewRequestHandler(requestService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService)
	exportHandler := handler.NewExportHandler(exportService)
	userHandler := handler.NewUserHandler(userService)
	referenceHandler := handler.NewReferenceHandler(branchService, reasonService, carrierService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint for the live dashboard feed
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	requestHandler.RegisterRoutes(router.Group(""))
	analyticsHandler.RegisterRoutes(router.Group(""))
	exportHandler.RegisterRoutes(router.Group(""))
	userHandler.RegisterRoutes(router.Group(""))
	referenceHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func allowedOrigins() []string {
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		origins := strings.Split(raw, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		return origins
	}
	return []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"}
}
