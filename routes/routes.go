package routes

import (
	"CNRS/cache"
	"CNRS/config"
	"CNRS/controllers"
	"CNRS/handlers"
	"CNRS/middlewares"
	"CNRS/repositories"
	"CNRS/services"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes initializes the routes and middleware for the server
func SetupRoutes(cache *cache.Cache, config *config.AppConfig, db *gorm.DB) (http.Handler, *services.ReminderService) {
	// Set Gin to release mode
	gin.SetMode(gin.ReleaseMode)

	// Create a Gin router
	router := gin.Default()

	// Apply Bearer token validation to all routes
	router.Use(middlewares.ValidateBearerToken(config.GetBearerToken()))

	// Create and apply CORS middleware configuration
	corsConfig := &middlewares.CorsConfig{
		AllowedOrigins:   []string{"http://localhost:3000", "https://www.example.com", "https://example-dev.com"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}
	router.Use(middlewares.CorsMiddleware(corsConfig))

	// Apply rate limiter middleware
	router.Use(middlewares.NewRateLimiterMiddleware(middlewares.RateLimiterConfig{
		RequestsPerSecond: 15, // 15 requests per second
		Burst:             30, // Burst of 30
	}))

	// Apply logging middleware
	router.Use(middlewares.LoggingMiddleware())

	// Initialize repositories, services, and handlers
	sequenceRepo := repositories.NewSequenceRepository(db)
	eventRepo := repositories.NewEventRepository(db)
	patientRepo := repositories.NewPatientRepository(db, cache)
	caseNoteRepo := repositories.NewCaseNoteRepository(db, cache, sequenceRepo)
	handoverRepo := repositories.NewHandoverRepository(db, cache)
	batchRepo := repositories.NewBatchRepository(db, cache)
	filingRepo := repositories.NewFilingRepository(db)
	userRepo := repositories.NewUserRepository(db, cache)

	caseNoteService := services.NewCaseNoteService(caseNoteRepo, batchRepo, eventRepo, patientRepo)
	handoverService := services.NewHandoverService(handoverRepo)
	batchService := services.NewBatchService(batchRepo, caseNoteService)
	filingService := services.NewFilingService(filingRepo)
	reportService := services.NewReportService(eventRepo, caseNoteRepo)
	patientService := services.NewPatientService(patientRepo)
	userService := services.NewUserService(userRepo)
	reminderService := services.NewReminderService(batchRepo, userRepo)

	caseNoteHandler := handlers.NewCaseNoteHandler(caseNoteService)
	handoverHandler := handlers.NewHandoverHandler(handoverService)
	batchHandler := handlers.NewBatchHandler(batchService)
	filingHandler := handlers.NewFilingHandler(filingService)
	reportHandler := handlers.NewReportHandler(reportService)
	patientHandler := handlers.NewPatientHandler(patientService)
	authHandler := handlers.NewAuthHandler(userService)

	// Register routes
	controllers.SetupCaseNoteRoutes(
		router,
		caseNoteHandler,
		handoverHandler,
		batchHandler,
		filingHandler,
		reportHandler,
		patientHandler,
	)

	authController := controllers.NewAuthController(authHandler)
	authController.RegisterRoutes(router)

	controllers.SetupRootRoute(router)

	return router, reminderService
}
