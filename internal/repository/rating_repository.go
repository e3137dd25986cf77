package repository

import (
	"database/sql"
	"fmt"

	"cinematch-api/internal/models"
)

type RatingRepository struct {
	db *sql.DB
}

func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// RateMovie upserts the user's rating for a movie and removes any
// watchlist entry for it in the same transaction: rating implies
// watched, which supersedes want-to-watch.
func (r *RatingRepository) RateMovie(userID, movieID, rating int) (*models.RatedMovie, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin rate transaction: %w", err)
	}
	defer tx.Rollback()

	var rated models.RatedMovie
	err = tx.QueryRow(`
		INSERT INTO ratings (user_id, movie_id, rating)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, movie_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			updated_at = NOW()
		RETURNING id, user_id, movie_id, rating, created_at, updated_at
	`, userID, movieID, rating).Scan(
		&rated.ID, &rated.UserID, &rated.MovieID, &rated.Rating,
		&rated.CreatedAt, &rated.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert rating: %w", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM watchlist_entries WHERE user_id = $1 AND movie_id = $2
	`, userID, movieID); err != nil {
		return nil, fmt.Errorf("remove watchlist entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit rate transaction: %w", err)
	}
	return &rated, nil
}

// DeleteRating removes a rating, making the movie eligible for the
// watchlist again.
func (r *RatingRepository) DeleteRating(userID, movieID int) error {
	result, err := r.db.Exec(`
		DELETE FROM ratings WHERE user_id = $1 AND movie_id = $2
	`, userID, movieID)
	if err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HasRating reports whether the user has rated the movie.
func (r *RatingRepository) HasRating(userID, movieID int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM ratings WHERE user_id = $1 AND movie_id = $2)
	`, userID, movieID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has rating: %w", err)
	}
	return exists, nil
}

// ListRatings returns the user's ratings with catalog titles, most
// recently updated first.
func (r *RatingRepository) ListRatings(userID int) ([]models.RatedMovie, error) {
	rows, err := r.db.Query(`
		SELECT rt.id, rt.user_id, rt.movie_id, m.title, rt.rating, rt.created_at, rt.updated_at
		FROM ratings rt
		INNER JOIN movies m ON m.tmdb_id = rt.movie_id
		WHERE rt.user_id = $1
		ORDER BY rt.updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	var ratings []models.RatedMovie
	for rows.Next() {
		var rated models.RatedMovie
		if err := rows.Scan(
			&rated.ID, &rated.UserID, &rated.MovieID, &rated.Title,
			&rated.Rating, &rated.CreatedAt, &rated.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, rated)
	}
	return ratings, rows.Err()
}
