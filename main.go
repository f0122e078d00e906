package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"notely/internal/handlers"
	"notely/internal/middleware"
	"notely/internal/models"
	"notely/internal/repositories"
	"notely/internal/services"
	"notely/pkg/cloudinary"
	"notely/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("SQLITE_PATH", "notely.db")
	viper.SetDefault("JWT_ACCESS_SECRET", "dev-access-secret")
	viper.SetDefault("JWT_REFRESH_SECRET", "dev-refresh-secret")
	viper.SetDefault("ACCESS_TOKEN_TTL", "15m")
	viper.SetDefault("REFRESH_TOKEN_TTL", "168h")
	viper.SetDefault("CORS_ORIGIN", "http://localhost:5173")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.SetDefault("UPLOAD_TEMP_DIR", "")
	viper.AutomaticEnv()

	// --- Database ---
	// Postgres when DATABASE_URL is set, a local SQLite file otherwise.
	var dialector gorm.Dialector
	if dsn := viper.GetString("DATABASE_URL"); dsn != "" {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(viper.GetString("SQLITE_PATH"))
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Note{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// --- Object store client ---
	storage := cloudinary.NewClient(cloudinary.Config{
		CloudName: viper.GetString("CLOUDINARY_CLOUD_NAME"),
		APIKey:    viper.GetString("CLOUDINARY_API_KEY"),
		APISecret: viper.GetString("CLOUDINARY_API_SECRET"),
	})

	// --- Note-event publisher (optional) ---
	var events services.EventPublisher
	if mqURL := viper.GetString("RABBITMQ_URL"); mqURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: mqURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
		events = mqClient
	} else {
		log.Println("RABBITMQ_URL not set; note events will not be published.")
	}

	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	noteRepo := repositories.NewGORMNoteRepository(db)

	// --- Services ---
	authService := services.NewAuthService(userRepo, services.TokenConfig{
		AccessSecret:  viper.GetString("JWT_ACCESS_SECRET"),
		RefreshSecret: viper.GetString("JWT_REFRESH_SECRET"),
		AccessTTL:     viper.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTTL:    viper.GetDuration("REFRESH_TOKEN_TTL"),
	})
	noteService := services.NewNoteService(noteRepo, storage, events)

	// --- Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	noteHandler := handlers.NewNoteHandler(noteService, viper.GetString("UPLOAD_TEMP_DIR"))

	// --- Fiber app ---
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
	})

	// --- Middleware ---
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     viper.GetString("CORS_ORIGIN"),
		AllowCredentials: true,
	}))

	authRequired := middleware.AuthRequired(authService, userRepo)

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1, authRequired)
	noteHandler.RegisterRoutes(apiV1, authRequired)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Start HTTP Server ---
	appPort := viper.GetString("APP_PORT")
	log.Printf("Starting server on port %s", appPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}
