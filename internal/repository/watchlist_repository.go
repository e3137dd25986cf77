package repository

import (
	"database/sql"
	"fmt"

	"cinematch-api/internal/models"
)

type WatchlistRepository struct {
	db *sql.DB
}

func NewWatchlistRepository(db *sql.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// AddEntry inserts or updates a watchlist entry. Re-adding a listed
// movie refreshes its priority and note rather than duplicating it.
func (r *WatchlistRepository) AddEntry(userID, movieID, priority int, note string) (*models.WantToWatchEntry, error) {
	var entry models.WantToWatchEntry
	err := r.db.QueryRow(`
		INSERT INTO watchlist_entries (user_id, movie_id, priority, note)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, movie_id) DO UPDATE SET
			priority = EXCLUDED.priority,
			note = EXCLUDED.note
		RETURNING id, user_id, movie_id, priority, COALESCE(note, ''), added_at
	`, userID, movieID, priority, note).Scan(
		&entry.ID, &entry.UserID, &entry.MovieID,
		&entry.Priority, &entry.Note, &entry.AddedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("add watchlist entry: %w", err)
	}
	return &entry, nil
}

// RemoveEntry deletes a watchlist entry.
func (r *WatchlistRepository) RemoveEntry(userID, movieID int) error {
	result, err := r.db.Exec(`
		DELETE FROM watchlist_entries WHERE user_id = $1 AND movie_id = $2
	`, userID, movieID)
	if err != nil {
		return fmt.Errorf("remove watchlist entry: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListEntries returns the user's watchlist with catalog titles,
// highest priority first.
func (r *WatchlistRepository) ListEntries(userID int) ([]models.WantToWatchEntry, error) {
	rows, err := r.db.Query(`
		SELECT w.id, w.user_id, w.movie_id, m.title, w.priority, COALESCE(w.note, ''), w.added_at
		FROM watchlist_entries w
		INNER JOIN movies m ON m.tmdb_id = w.movie_id
		WHERE w.user_id = $1
		ORDER BY w.priority DESC, w.added_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	defer rows.Close()

	var entries []models.WantToWatchEntry
	for rows.Next() {
		var entry models.WantToWatchEntry
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.MovieID, &entry.Title,
			&entry.Priority, &entry.Note, &entry.AddedAt,
		); err != nil {
			return nil, fmt.Errorf("scan watchlist entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
