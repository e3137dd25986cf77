package repository

import (
	"database/sql"
	"fmt"

	"cinematch-api/internal/models"
)

type RecommendationRepository struct {
	db *sql.DB
}

func NewRecommendationRepository(db *sql.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// UpsertRecommendation inserts or refreshes the live recommendation
// for (user, movie). On conflict only the generated fields and the
// updated timestamp change; the original creation timestamp and the
// seen/acted_on flags are left untouched, so re-submitting the same
// batch is a no-op update rather than a duplicate insert.
func (r *RecommendationRepository) UpsertRecommendation(userID int, rec models.RecommendationUpsert) (*models.Recommendation, error) {
	var stored models.Recommendation
	err := r.db.QueryRow(`
		INSERT INTO recommendations (user_id, movie_id, reason, personalized_reason,
			match_score, match_level, enhanced_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, movie_id) DO UPDATE SET
			reason = EXCLUDED.reason,
			personalized_reason = EXCLUDED.personalized_reason,
			match_score = EXCLUDED.match_score,
			match_level = EXCLUDED.match_level,
			enhanced_reason = EXCLUDED.enhanced_reason,
			updated_at = NOW()
		RETURNING id, user_id, movie_id, reason, personalized_reason,
			match_score, COALESCE(match_level, ''), COALESCE(enhanced_reason, ''),
			seen, acted_on, created_at, updated_at
	`, userID, rec.MovieID, rec.Reason, rec.PersonalizedReason,
		rec.MatchScore, nullableString(rec.MatchLevel), nullableString(rec.EnhancedReason)).Scan(
		&stored.ID, &stored.UserID, &stored.MovieID, &stored.Reason, &stored.PersonalizedReason,
		&stored.MatchScore, &stored.MatchLevel, &stored.EnhancedReason,
		&stored.Seen, &stored.ActedOn, &stored.CreatedAt, &stored.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert recommendation: %w", err)
	}
	return &stored, nil
}

// ListRecommendations returns the user's stored recommendations with
// catalog titles, most recently refreshed first.
func (r *RecommendationRepository) ListRecommendations(userID, limit int) ([]models.Recommendation, error) {
	rows, err := r.db.Query(`
		SELECT rc.id, rc.user_id, rc.movie_id, m.title, COALESCE(m.poster_path, ''),
			rc.reason, rc.personalized_reason, rc.match_score,
			COALESCE(rc.match_level, ''), COALESCE(rc.enhanced_reason, ''),
			rc.seen, rc.acted_on, rc.created_at, rc.updated_at
		FROM recommendations rc
		INNER JOIN movies m ON m.tmdb_id = rc.movie_id
		WHERE rc.user_id = $1
		ORDER BY rc.updated_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer rows.Close()

	var recs []models.Recommendation
	for rows.Next() {
		var rec models.Recommendation
		var posterPath string
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.MovieID, &rec.Title, &posterPath,
			&rec.Reason, &rec.PersonalizedReason, &rec.MatchScore,
			&rec.MatchLevel, &rec.EnhancedReason,
			&rec.Seen, &rec.ActedOn, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		if posterPath != "" {
			rec.PosterURL = models.TMDBImageBaseW500 + posterPath
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// GetRecommendation returns the stored recommendation for (user, movie).
func (r *RecommendationRepository) GetRecommendation(userID, movieID int) (*models.Recommendation, error) {
	var rec models.Recommendation
	err := r.db.QueryRow(`
		SELECT rc.id, rc.user_id, rc.movie_id, rc.reason, rc.personalized_reason,
			rc.match_score, COALESCE(rc.match_level, ''), COALESCE(rc.enhanced_reason, ''),
			rc.seen, rc.acted_on, rc.created_at, rc.updated_at
		FROM recommendations rc
		WHERE rc.user_id = $1 AND rc.movie_id = $2
	`, userID, movieID).Scan(
		&rec.ID, &rec.UserID, &rec.MovieID, &rec.Reason, &rec.PersonalizedReason,
		&rec.MatchScore, &rec.MatchLevel, &rec.EnhancedReason,
		&rec.Seen, &rec.ActedOn, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkSeen flags the recommendation as seen by the user.
func (r *RecommendationRepository) MarkSeen(userID, movieID int) error {
	return r.setFlag(userID, movieID, "seen")
}

// MarkActedOn flags the recommendation as acted on by the user.
func (r *RecommendationRepository) MarkActedOn(userID, movieID int) error {
	return r.setFlag(userID, movieID, "acted_on")
}

func (r *RecommendationRepository) setFlag(userID, movieID int, column string) error {
	// column is one of the two fixed flag names, never user input.
	result, err := r.db.Exec(fmt.Sprintf(`
		UPDATE recommendations SET %s = TRUE WHERE user_id = $1 AND movie_id = $2
	`, column), userID, movieID)
	if err != nil {
		return fmt.Errorf("mark %s: %w", column, err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
