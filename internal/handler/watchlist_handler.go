package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"cinematch-api/internal/models"
	"cinematch-api/internal/service"
)

type WatchlistHandler struct {
	svc *service.WatchlistService
}

func NewWatchlistHandler(svc *service.WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{svc: svc}
}

// ListWatchlist returns the user's watchlist.
func (h *WatchlistHandler) ListWatchlist(c fiber.Ctx) error {
	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid user ID"})
	}

	entries, err := h.svc.List(userID)
	if err != nil {
		slog.Error("failed to list watchlist", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to retrieve watchlist"})
	}

	return c.JSON(fiber.Map{
		"user_id":   userID,
		"watchlist": entries,
	})
}

// AddToWatchlist adds a movie to the user's watchlist.
func (h *WatchlistHandler) AddToWatchlist(c fiber.Ctx) error {
	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid user ID"})
	}

	var req models.AddWatchlistRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	entry, err := h.svc.Add(c.Context(), userID, req)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyRated) {
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: "movie is already rated"})
		}
		if errors.Is(err, service.ErrMovieNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "movie not found"})
		}
		slog.Error("failed to add watchlist entry", "user_id", userID, "movie_id", req.MovieID, "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(entry)
}

// RemoveFromWatchlist removes a movie from the user's watchlist.
func (h *WatchlistHandler) RemoveFromWatchlist(c fiber.Ctx) error {
	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid user ID"})
	}
	movieID, err := strconv.Atoi(c.Params("movieId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid movie ID"})
	}

	if err := h.svc.Remove(userID, movieID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "watchlist entry not found"})
		}
		slog.Error("failed to remove watchlist entry", "user_id", userID, "movie_id", movieID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to remove watchlist entry"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
