package models

import "time"

// WantToWatchEntry is a user's intent to watch a movie not yet rated.
// Rating the movie removes it from the list (rating implies watched).
type WantToWatchEntry struct {
	ID       int       `json:"id"`
	UserID   int       `json:"user_id"`
	MovieID  int       `json:"movie_id"`
	Title    string    `json:"title"`
	Priority int       `json:"priority"`
	Note     string    `json:"note,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}

// AddWatchlistRequest is the request body for adding a watchlist entry.
type AddWatchlistRequest struct {
	MovieID  int    `json:"movie_id"`
	Priority int    `json:"priority"`
	Note     string `json:"note"`
}
