package repository

import (
	"database/sql"
	"fmt"
	"log/slog"

	"cinematch-api/internal/models"
)

// MovieRepository handles database operations for the catalog cache.
type MovieRepository struct {
	db *sql.DB
}

// NewMovieRepository creates a new MovieRepository.
func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// UpsertMovie inserts or merges a catalog row keyed by TMDB id. The
// merge is field-level: a NULL incoming value never overwrites a
// stored value (see models.MergeMovie for the canonical rule).
func (r *MovieRepository) UpsertMovie(m models.MovieUpsert) error {
	_, err := r.db.Exec(`
		INSERT INTO movies (tmdb_id, title, overview, release_date, poster_path,
			backdrop_path, vote_average, vote_count, popularity, original_language,
			runtime, updated_at)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (tmdb_id) DO UPDATE SET
			title = EXCLUDED.title,
			overview = COALESCE(EXCLUDED.overview, movies.overview),
			release_date = COALESCE(EXCLUDED.release_date, movies.release_date),
			poster_path = COALESCE(EXCLUDED.poster_path, movies.poster_path),
			backdrop_path = COALESCE(EXCLUDED.backdrop_path, movies.backdrop_path),
			vote_average = COALESCE(EXCLUDED.vote_average, movies.vote_average),
			vote_count = COALESCE(EXCLUDED.vote_count, movies.vote_count),
			popularity = COALESCE(EXCLUDED.popularity, movies.popularity),
			original_language = COALESCE(EXCLUDED.original_language, movies.original_language),
			runtime = COALESCE(EXCLUDED.runtime, movies.runtime),
			updated_at = NOW()
	`, m.TMDBId, m.Title, m.Overview, m.ReleaseDate, m.PosterPath,
		m.BackdropPath, m.VoteAverage, m.VoteCount, m.Popularity,
		m.OriginalLanguage, m.Runtime)
	if err != nil {
		return fmt.Errorf("upsert movie: %w", err)
	}
	return nil
}

// MovieExists reports whether a catalog row exists for the TMDB id.
func (r *MovieRepository) MovieExists(tmdbID int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM movies WHERE tmdb_id = $1)`, tmdbID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("movie exists: %w", err)
	}
	return exists, nil
}

// GetMovieByID returns detailed movie information by TMDB id.
func (r *MovieRepository) GetMovieByID(tmdbID int) (*models.MovieDetail, error) {
	var detail models.MovieDetail
	var posterPath, backdropPath string

	err := r.db.QueryRow(`
		SELECT m.tmdb_id, m.title, COALESCE(m.overview, ''),
			COALESCE(TO_CHAR(m.release_date, 'YYYY-MM-DD'), ''),
			COALESCE(m.original_language, ''), COALESCE(m.runtime, 0),
			COALESCE(m.vote_average, 0), COALESCE(m.vote_count, 0),
			COALESCE(m.popularity, 0),
			COALESCE(m.poster_path, ''), COALESCE(m.backdrop_path, '')
		FROM movies m
		WHERE m.tmdb_id = $1
	`, tmdbID).Scan(
		&detail.TMDBId, &detail.Title, &detail.Overview,
		&detail.ReleaseDate, &detail.Language, &detail.Runtime,
		&detail.VoteAverage, &detail.VoteCount, &detail.Popularity,
		&posterPath, &backdropPath,
	)
	if err != nil {
		return nil, err
	}

	if posterPath != "" {
		detail.PosterURL = models.TMDBImageBaseW500 + posterPath
	}
	if backdropPath != "" {
		detail.BackdropURL = models.TMDBImageBaseW780 + backdropPath
	}

	// Fetch genres
	rows, err := r.db.Query(`
		SELECT g.name FROM genres g
		INNER JOIN movie_genres mg ON mg.genre_id = g.id
		WHERE mg.movie_id = $1
		ORDER BY g.name
	`, tmdbID)
	if err != nil {
		return nil, fmt.Errorf("failed to query genres: %w", err)
	}
	defer rows.Close()

	detail.Genres = make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			detail.Genres = append(detail.Genres, name)
		}
	}

	return &detail, nil
}

// ListMovies returns a paginated list of catalog movies.
func (r *MovieRepository) ListMovies(params models.MovieListParams) (*models.MovieListResponse, error) {
	// Validate sort column to prevent SQL injection
	sortColumn := "popularity"
	switch params.SortBy {
	case "release_date":
		sortColumn = "release_date"
	case "title":
		sortColumn = "title"
	}
	orderDir := "DESC"
	if params.Order == "asc" {
		orderDir = "ASC"
	}

	var totalResults int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM movies`).Scan(&totalResults); err != nil {
		return nil, fmt.Errorf("count query failed: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	totalPages := 0
	if totalResults > 0 {
		totalPages = (totalResults + params.PageSize - 1) / params.PageSize
	}

	listQuery := fmt.Sprintf(`
		SELECT m.tmdb_id, m.title,
			COALESCE(TO_CHAR(m.release_date, 'YYYY-MM-DD'), '') AS release_date,
			COALESCE(m.popularity, 0), COALESCE(m.poster_path, '') AS poster_path
		FROM movies m
		ORDER BY m.%s %s NULLS LAST
		LIMIT $1 OFFSET $2
	`, sortColumn, orderDir)

	rows, err := r.db.Query(listQuery, params.PageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list query failed: %w", err)
	}
	defer rows.Close()

	items := make([]models.MovieListItem, 0)
	for rows.Next() {
		var item models.MovieListItem
		var posterPath string
		if err := rows.Scan(&item.TMDBId, &item.Title, &item.ReleaseDate, &item.Popularity, &posterPath); err != nil {
			slog.Error("failed to scan movie row", "error", err)
			continue
		}
		if posterPath != "" {
			item.PosterURL = models.TMDBImageBaseW500 + posterPath
		}
		items = append(items, item)
	}

	return &models.MovieListResponse{
		Page:         params.Page,
		PageSize:     params.PageSize,
		TotalPages:   totalPages,
		TotalResults: totalResults,
		Data:         items,
	}, nil
}

// UpsertGenre inserts or updates a genre.
func (r *MovieRepository) UpsertGenre(tmdbID int, name string) (int, error) {
	var id int
	err := r.db.QueryRow(`
		INSERT INTO genres (tmdb_id, name)
		VALUES ($1, $2)
		ON CONFLICT (tmdb_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, tmdbID, name).Scan(&id)
	return id, err
}

// GetGenreIDByTMDBId returns the internal genre ID for a TMDB genre ID.
func (r *MovieRepository) GetGenreIDByTMDBId(tmdbID int) (int, error) {
	var id int
	err := r.db.QueryRow(`SELECT id FROM genres WHERE tmdb_id = $1`, tmdbID).Scan(&id)
	return id, err
}

// LinkMovieGenre creates the movie-genre association.
func (r *MovieRepository) LinkMovieGenre(movieID, genreID int) error {
	_, err := r.db.Exec(`
		INSERT INTO movie_genres (movie_id, genre_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, movieID, genreID)
	return err
}

// ClearMovieGenres removes all genre links for a movie.
func (r *MovieRepository) ClearMovieGenres(movieID int) error {
	_, err := r.db.Exec(`DELETE FROM movie_genres WHERE movie_id = $1`, movieID)
	return err
}
