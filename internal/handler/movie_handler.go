package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"cinematch-api/internal/models"
	"cinematch-api/internal/service"
)

// MovieHandler handles HTTP requests for the movie catalog.
type MovieHandler struct {
	svc *service.MovieService
}

// NewMovieHandler creates a new MovieHandler.
func NewMovieHandler(svc *service.MovieService) *MovieHandler {
	return &MovieHandler{svc: svc}
}

// ListMovies returns a paginated list of catalog movies.
func (h *MovieHandler) ListMovies(c fiber.Ctx) error {
	params := models.MovieListParams{
		Page:     fiber.Query(c, "page", 1),
		PageSize: fiber.Query(c, "page_size", 20),
		SortBy:   c.Query("sort_by", "popularity"),
		Order:    c.Query("order", "desc"),
	}

	result, err := h.svc.ListMovies(c.Context(), params)
	if err != nil {
		slog.Error("failed to list movies", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to retrieve movies",
		})
	}

	return c.JSON(result)
}

// GetMovieDetail returns detailed info for a single movie.
func (h *MovieHandler) GetMovieDetail(c fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid movie ID"})
	}

	detail, err := h.svc.GetMovieDetail(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrMovieNotFound) || errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "movie not found"})
		}
		slog.Error("failed to get movie detail", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "failed to retrieve movie details",
		})
	}

	return c.JSON(detail)
}

// SearchMovies proxies a title search to TMDB.
func (h *MovieHandler) SearchMovies(c fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "query is required"})
	}

	items, err := h.svc.SearchMovies(c.Context(), query)
	if err != nil {
		slog.Error("search failed", "query", query, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "search failed"})
	}

	return c.JSON(fiber.Map{
		"query":   query,
		"results": items,
	})
}

// SyncCatalog triggers a sync of popular movies from TMDB.
func (h *MovieHandler) SyncCatalog(c fiber.Ctx) error {
	pages := fiber.Query(c, "pages", 5)
	if pages < 1 {
		pages = 1
	}
	if pages > 50 {
		pages = 50
	}

	count, err := h.svc.SyncCatalog(c.Context(), pages)
	if err != nil {
		slog.Error("sync failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "sync failed: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message":       "sync completed",
		"movies_synced": count,
		"pages":         pages,
	})
}
