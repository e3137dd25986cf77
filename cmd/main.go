package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"cinematch-api/internal/ai"
	"cinematch-api/internal/config"
	"cinematch-api/internal/database"
	"cinematch-api/internal/handler"
	"cinematch-api/internal/middleware"
	"cinematch-api/internal/repository"
	"cinematch-api/internal/service"
	"cinematch-api/internal/tmdb"
)

func main() {
	// Structured logging
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.DB)
	if err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to Redis (non-fatal if unavailable)
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		slog.Warn("Redis unavailable, running without cache", "error", err)
	}

	// Provider clients
	tmdbClient := tmdb.NewClient(cfg.TMDB.APIKey, cfg.TMDB.BaseURL)
	aiClient := ai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)

	// Repositories
	movieRepo := repository.NewMovieRepository(db)
	userRepo := repository.NewUserRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	watchlistRepo := repository.NewWatchlistRepository(db)
	recRepo := repository.NewRecommendationRepository(db)

	// Services
	movieSvc := service.NewMovieService(movieRepo, tmdbClient, rdb)
	userSvc := service.NewUserService(userRepo)
	ratingSvc := service.NewRatingService(ratingRepo, movieSvc)
	watchlistSvc := service.NewWatchlistService(watchlistRepo, ratingRepo, movieSvc)
	recSvc := service.NewRecommendationService(
		ratingRepo, watchlistRepo, movieRepo, recRepo,
		tmdbClient, aiClient, rdb, cfg.OpenAI.MaxTokens,
	)

	// Handlers
	movieH := handler.NewMovieHandler(movieSvc)
	userH := handler.NewUserHandler(userSvc)
	ratingH := handler.NewRatingHandler(ratingSvc)
	watchlistH := handler.NewWatchlistHandler(watchlistSvc)
	recH := handler.NewRecommendationHandler(recSvc)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "CineMatch API",
		ServerHeader: "CineMatch",
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			slog.Error("unhandled error", "error", err, "status", code)
			return c.Status(code).JSON(handler.ErrorResponse{Error: err.Error()})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(middleware.Auth())

	// Swagger docs
	swaggerYAML, err := os.ReadFile("docs/swagger.yaml")
	if err != nil {
		slog.Warn("swagger.yaml not found, swagger UI will be unavailable", "error", err)
	} else {
		handler.RegisterSwagger(app, swaggerYAML)
	}

	// API routes
	api := app.Group("/api/v1")
	api.Get("/health", userH.Health)

	api.Get("/movies", movieH.ListMovies)
	api.Get("/movies/search", movieH.SearchMovies)
	api.Get("/movies/:id", movieH.GetMovieDetail)
	api.Post("/admin/sync", movieH.SyncCatalog)

	api.Post("/users", userH.CreateUser)
	api.Get("/users/:id", userH.GetUser)
	api.Delete("/users/:id", userH.DeleteUser)

	api.Get("/users/:id/ratings", ratingH.ListRatings)
	api.Put("/users/:id/ratings/:movieId", ratingH.RateMovie)
	api.Delete("/users/:id/ratings/:movieId", ratingH.DeleteRating)

	api.Get("/users/:id/watchlist", watchlistH.ListWatchlist)
	api.Post("/users/:id/watchlist", watchlistH.AddToWatchlist)
	api.Delete("/users/:id/watchlist/:movieId", watchlistH.RemoveFromWatchlist)

	api.Get("/users/:id/recommendations", recH.GetRecommendations)
	api.Post("/users/:id/recommendations/generate", recH.GenerateRecommendations)
	api.Post("/users/:id/recommendations/:movieId/seen", recH.MarkSeen)
	api.Post("/users/:id/recommendations/:movieId/acted", recH.MarkActedOn)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		slog.Info("shutting down cinematch api...")
		_ = app.Shutdown()
	}()

	// Start server
	addr := ":" + cfg.Port
	slog.Info("starting cinematch api", "addr", addr)
	if err := app.Listen(addr); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
