package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"cinematch-api/internal/service"
)

type RecommendationHandler struct {
	svc *service.RecommendationService
}

func NewRecommendationHandler(svc *service.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{svc: svc}
}

// GetRecommendations returns the user's stored recommendations.
func (h *RecommendationHandler) GetRecommendations(c fiber.Ctx) error {
	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid user ID"})
	}

	limit := fiber.Query(c, "limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	recs, err := h.svc.GetRecommendations(c.Context(), userID, limit)
	if err != nil {
		slog.Error("failed to fetch recommendations", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to retrieve recommendations"})
	}

	return c.JSON(fiber.Map{
		"user_id":         userID,
		"recommendations": recs,
	})
}

// GenerateRecommendations runs a fresh generation batch for the user.
func (h *RecommendationHandler) GenerateRecommendations(c fiber.Ctx) error {
	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid user ID"})
	}

	batch, err := h.svc.Generate(c.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoRatings):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "rate at least one movie before requesting recommendations",
			})
		case errors.Is(err, service.ErrCompletionFailed),
			errors.Is(err, service.ErrMalformedCompletion):
			slog.Error("generation provider failure", "user_id", userID, "error", err)
			return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
				Error: "recommendation generation failed, try again later",
			})
		case errors.Is(err, service.ErrEmptyBatch):
			slog.Error("generation produced no resolvable candidates", "user_id", userID)
			return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
				Error: "no recommendations could be resolved, try again later",
			})
		default:
			slog.Error("failed to generate recommendations", "user_id", userID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Error: "failed to generate recommendations",
			})
		}
	}

	return c.JSON(batch)
}

// MarkSeen flags a recommendation as seen.
func (h *RecommendationHandler) MarkSeen(c fiber.Ctx) error {
	return h.markFlag(c, h.svc.MarkSeen)
}

// MarkActedOn flags a recommendation as acted on.
func (h *RecommendationHandler) MarkActedOn(c fiber.Ctx) error {
	return h.markFlag(c, h.svc.MarkActedOn)
}

func (h *RecommendationHandler) markFlag(c fiber.Ctx, mark func(userID, movieID int) error) error {
	userID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid user ID"})
	}
	movieID, err := strconv.Atoi(c.Params("movieId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid movie ID"})
	}

	if err := mark(userID, movieID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "recommendation not found"})
		}
		slog.Error("failed to update recommendation", "user_id", userID, "movie_id", movieID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to update recommendation"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
