package router

import (
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/worknet/backend/internal/events"
	"github.com/worknet/backend/internal/handlers"
	"github.com/worknet/backend/internal/middleware"
	"github.com/worknet/backend/internal/models"
	"github.com/worknet/backend/internal/repositories"
	"github.com/worknet/backend/internal/services"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, pgdb *gorm.DB, mgClient *mongo.Client, firebaseAuthClient *auth.Client) {
	// AutoMigrate PostgreSQL models
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.ConnectionRequest{},
		&models.ConnectionEdge{},
		&models.Notification{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}

	// One pending request per unordered pair. AutoMigrate cannot express a
	// partial index, so it is created directly; concurrent sends for the
	// same pair are arbitrated here.
	if err := pgdb.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_connection_requests_pending_pair
		 ON connection_requests (pair_key) WHERE status = 'pending'`,
	).Error; err != nil {
		log.Fatalf("Failed to create pending-pair index: %v", err)
	}
	log.Println("PostgreSQL migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	connectionRepo := repositories.NewPostgresConnectionRepository(pgdb)
	notificationRepo := repositories.NewPostgresNotificationRepository(pgdb)

	// --- Event sinks: in-app notification rows plus the Mongo journal ---
	sink := events.Fanout{
		events.NewNotificationSink(notificationRepo),
		events.NewMongoJournal(mgClient.Database("worknet")),
	}

	// --- Services ---
	connectionService := services.NewConnectionService(connectionRepo, sink)
	mutualResolver := services.NewMutualResolver(connectionRepo)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, firebaseAuthClient)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (local JWT or Firebase ID token) ---
	api := e.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(firebaseAuthClient))
	log.Println("Authentication middleware applied to /api/v1 group.")

	// Connection lifecycle and social graph routes
	connectionHandler := handlers.NewConnectionHandler(connectionService, mutualResolver, userRepo)
	connectionHandler.RegisterConnectionRoutes(api)
	log.Println("Connection routes configured.")

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, userRepo)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")
}
