package models

import "time"

// RatedMovie is a user's numeric judgment of a movie. At most one
// rating exists per (user, movie) pair; re-rating overwrites in place.
type RatedMovie struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	MovieID   int       `json:"movie_id"`
	Title     string    `json:"title"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RateMovieRequest is the request body for rating a movie.
type RateMovieRequest struct {
	Rating int `json:"rating"`
}
