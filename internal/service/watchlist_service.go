package service

import (
	"context"
	"fmt"

	"cinematch-api/internal/models"
)

// WatchlistStore persists watchlist entries.
type WatchlistStore interface {
	AddEntry(userID, movieID, priority int, note string) (*models.WantToWatchEntry, error)
	RemoveEntry(userID, movieID int) error
	ListEntries(userID int) ([]models.WantToWatchEntry, error)
}

// RatingChecker reports whether a user has rated a movie.
type RatingChecker interface {
	HasRating(userID, movieID int) (bool, error)
}

// WatchlistService handles watchlist business logic.
type WatchlistService struct {
	store   WatchlistStore
	ratings RatingChecker
	catalog CatalogEnsurer
}

func NewWatchlistService(store WatchlistStore, ratings RatingChecker, catalog CatalogEnsurer) *WatchlistService {
	return &WatchlistService{store: store, ratings: ratings, catalog: catalog}
}

// Add puts a movie on the user's watchlist. A movie the user has
// already rated is rejected: rating implies watched.
func (s *WatchlistService) Add(ctx context.Context, userID int, req models.AddWatchlistRequest) (*models.WantToWatchEntry, error) {
	if req.MovieID <= 0 {
		return nil, fmt.Errorf("invalid movie ID")
	}
	if req.Priority < 1 {
		req.Priority = 1
	}

	rated, err := s.ratings.HasRating(userID, req.MovieID)
	if err != nil {
		return nil, err
	}
	if rated {
		return nil, ErrAlreadyRated
	}

	if err := s.catalog.EnsureCached(ctx, req.MovieID); err != nil {
		return nil, err
	}
	return s.store.AddEntry(userID, req.MovieID, req.Priority, req.Note)
}

// Remove deletes a watchlist entry.
func (s *WatchlistService) Remove(userID, movieID int) error {
	return s.store.RemoveEntry(userID, movieID)
}

// List returns the user's watchlist.
func (s *WatchlistService) List(userID int) ([]models.WantToWatchEntry, error) {
	entries, err := s.store.ListEntries(userID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.WantToWatchEntry{}
	}
	return entries, nil
}
