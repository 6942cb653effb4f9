package main

import (
	"log"
	"os"

	"invoicely/internal/database"
	"invoicely/internal/handler"
	"invoicely/internal/middleware"
	"invoicely/internal/payment"
	"invoicely/internal/repository"
	"invoicely/internal/service"
	"invoicely/internal/storage"
	"invoicely/internal/websocket"

	_ "invoicely/docs"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Invoicely API
// @version         1.0
// @description     Invoicing backend for small businesses: invoices, payment links, PDF export, live updates.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := getenv("DB_HOST", "localhost")
	dbPort := getenv("DB_PORT", "5432")
	dbUser := getenv("DB_USER", "postgres")
	dbPassword := getenv("DB_PASSWORD", "postgres")
	dbName := getenv("DB_NAME", "postgres")
	dbSslMode := getenv("DB_SSLMODE", "disable")

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Logo storage served from the uploads static route
	uploadDir := getenv("UPLOAD_DIR", "uploads")
	baseURL := getenv("PUBLIC_BASE_URL", "http://localhost:8080")
	logoStore := storage.NewDiskStorage(uploadDir, baseURL+"/uploads")

	// Payment gateway
	paystack := payment.NewClient(os.Getenv("PAYSTACK_SECRET_KEY"))
	callbackURL := getenv("PAYSTACK_CALLBACK_URL", baseURL+"/payment/callback")

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	linkRepo := repository.NewPaymentLinkRepository(db)

	userService := service.NewUserService(userRepo, logoStore)
	invoiceService := service.NewInvoiceService(invoiceRepo, txManager, wsHub)
	paymentService := service.NewPaymentService(paystack, invoiceRepo, userRepo, linkRepo, callbackURL)
	exportService := service.NewExportService(invoiceRepo, userRepo, logoStore)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, paymentService, exportService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"} // Frontend URL
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

	// Uploaded logos
	router.Static("/uploads", uploadDir)

	// WebSocket endpoint for live invoice updates
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	invoiceHandler.RegisterRoutes(router.Group(""))

	port := getenv("PORT", "8080")

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
