package service

import (
	"context"
	"fmt"

	"cinematch-api/internal/models"
)

// RatingStore persists user ratings.
type RatingStore interface {
	RateMovie(userID, movieID, rating int) (*models.RatedMovie, error)
	DeleteRating(userID, movieID int) error
	ListRatings(userID int) ([]models.RatedMovie, error)
	HasRating(userID, movieID int) (bool, error)
}

// CatalogEnsurer guarantees a catalog row exists before a user row
// references it.
type CatalogEnsurer interface {
	EnsureCached(ctx context.Context, tmdbID int) error
}

// RatingService handles rating business logic.
type RatingService struct {
	store   RatingStore
	catalog CatalogEnsurer
}

func NewRatingService(store RatingStore, catalog CatalogEnsurer) *RatingService {
	return &RatingService{store: store, catalog: catalog}
}

// Rate upserts the user's rating for a movie. Rating a movie that is
// on the watchlist removes it from the watchlist as a side effect of
// the same transaction.
func (s *RatingService) Rate(ctx context.Context, userID, movieID, rating int) (*models.RatedMovie, error) {
	if rating < 1 || rating > 10 {
		return nil, fmt.Errorf("rating must be between 1 and 10, got %d", rating)
	}
	if movieID <= 0 {
		return nil, fmt.Errorf("invalid movie ID")
	}

	if err := s.catalog.EnsureCached(ctx, movieID); err != nil {
		return nil, err
	}
	return s.store.RateMovie(userID, movieID, rating)
}

// Remove deletes a rating, making the movie eligible for the
// watchlist again.
func (s *RatingService) Remove(userID, movieID int) error {
	return s.store.DeleteRating(userID, movieID)
}

// List returns the user's ratings.
func (s *RatingService) List(userID int) ([]models.RatedMovie, error) {
	ratings, err := s.store.ListRatings(userID)
	if err != nil {
		return nil, err
	}
	if ratings == nil {
		ratings = []models.RatedMovie{}
	}
	return ratings, nil
}
