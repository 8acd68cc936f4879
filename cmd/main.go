package main

import (
	"context"
	"log"
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

	"catalog-service/internal/config"
	"catalog-service/internal/events"
	"catalog-service/internal/handlers"
	"catalog-service/internal/middleware"
	"catalog-service/internal/repository"
	"catalog-service/internal/services"
)

// @title Catalog Service API
// @version 1.0.0
// @description Product catalog service with CSV/XLSX bulk import

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Redis is optional; without it the repository just skips caching
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		} else {
			redisClient = redis.NewClient(redisOpts)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
				redisClient = nil
			} else {
				log.Println("✓ Redis connected successfully")
			}
			cancel()
		}
	} else {
		log.Println("REDIS_URL not set, caching disabled")
	}

	catalogRepo := repository.NewCatalogRepository(db, redisClient)

	// Event publisher is nil when NATS_URL is unset; its methods are nil-safe
	eventsPublisher, err := events.NewPublisher(cfg.NATSURL, logger)
	if err != nil {
		log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
	} else if eventsPublisher != nil {
		log.Println("✓ Events publisher initialized (NATS connected)")
	}
	defer eventsPublisher.Close()

	importService := services.NewImportService(catalogRepo, logger)

	catalogHandler := handlers.NewCatalogHandler(catalogRepo, eventsPublisher, logger)
	importHandler := handlers.NewImportHandler(importService, eventsPublisher, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.MaxMultipartMemory = cfg.MaxImportFileSize

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.HealthCheck)

	// Admin API
	api := router.Group("/api/v1")
	api.Use(middleware.AdminAuth(cfg.AdminToken))
	{
		products := api.Group("/products")
		{
			products.GET("", catalogHandler.GetProducts)
			products.GET("/:id", catalogHandler.GetProduct)
			products.POST("", catalogHandler.CreateProduct)
			products.PUT("/:id", catalogHandler.UpdateProduct)
			products.DELETE("/:id", catalogHandler.DeleteProduct)

			products.GET("/:id/variants", catalogHandler.GetVariants)
			products.POST("/:id/variants", catalogHandler.CreateVariant)
			products.DELETE("/:id/variants/:variantId", catalogHandler.DeleteVariant)

			products.GET("/:id/images", catalogHandler.GetProductImages)
			products.POST("/:id/images", catalogHandler.AddProductImage)
			products.DELETE("/:id/images/:imageId", catalogHandler.DeleteProductImage)

			products.GET("/:id/reviews", catalogHandler.GetReviews)
			products.DELETE("/:id/reviews/:reviewId", catalogHandler.DeleteReview)

			products.GET("/import/template", importHandler.GetImportTemplate)
			products.POST("/import", importHandler.ImportProducts)
		}

		categories := api.Group("/categories")
		{
			categories.GET("", catalogHandler.GetCategories)
			categories.POST("", catalogHandler.CreateCategory)
			categories.DELETE("/:id", catalogHandler.DeleteCategory)
		}
	}

	// Public storefront endpoints (read-only browsing plus review submission)
	storefront := router.Group("/api/v1/storefront")
	{
		storefront.GET("/products", catalogHandler.GetProducts)
		storefront.GET("/products/:id", catalogHandler.GetProduct)
		storefront.GET("/products/:id/variants", catalogHandler.GetVariants)
		storefront.GET("/products/:id/images", catalogHandler.GetProductImages)
		storefront.GET("/products/:id/reviews", catalogHandler.GetReviews)
		storefront.POST("/products/:id/reviews", catalogHandler.CreateReview)
		storefront.GET("/categories", catalogHandler.GetCategories)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Catalog service starting on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	log.Println("Shutting down catalog-service...")
	log.Println("Catalog service stopped")
}
