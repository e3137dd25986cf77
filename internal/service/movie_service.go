package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"cinematch-api/internal/models"
	"cinematch-api/internal/repository"
	"cinematch-api/internal/tmdb"
)

const (
	movieListCacheTTL   = 5 * time.Minute
	movieDetailCacheTTL = 30 * time.Minute
)

// ErrMovieNotFound is returned when a movie exists neither locally nor
// upstream.
var ErrMovieNotFound = errors.New("movie not found")

// MovieService handles catalog business logic.
type MovieService struct {
	repo       *repository.MovieRepository
	tmdbClient *tmdb.Client
	redis      *redis.Client
}

// NewMovieService creates a new MovieService.
func NewMovieService(repo *repository.MovieRepository, tmdbClient *tmdb.Client, rdb *redis.Client) *MovieService {
	return &MovieService{
		repo:       repo,
		tmdbClient: tmdbClient,
		redis:      rdb,
	}
}

// ListMovies returns a paginated slice of the local catalog.
func (s *MovieService) ListMovies(ctx context.Context, params models.MovieListParams) (*models.MovieListResponse, error) {
	params.Validate()

	cacheKey := fmt.Sprintf("movies:list:%d:%d:%s:%s", params.Page, params.PageSize, params.SortBy, params.Order)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var resp models.MovieListResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	resp, err := s.repo.ListMovies(params)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redis.Set(ctx, cacheKey, data, movieListCacheTTL)
		}
	}
	return resp, nil
}

// GetMovieDetail returns movie detail by TMDB id, fetching through to
// TMDB and caching the metadata locally if the catalog has no row yet.
func (s *MovieService) GetMovieDetail(ctx context.Context, tmdbID int) (*models.MovieDetail, error) {
	cacheKey := fmt.Sprintf("movies:detail:%d", tmdbID)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var detail models.MovieDetail
			if json.Unmarshal([]byte(cached), &detail) == nil {
				return &detail, nil
			}
		}
	}

	detail, err := s.repo.GetMovieByID(tmdbID)
	if errors.Is(err, sql.ErrNoRows) {
		if err := s.EnsureCached(ctx, tmdbID); err != nil {
			return nil, err
		}
		detail, err = s.repo.GetMovieByID(tmdbID)
	}
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(detail); err == nil {
			s.redis.Set(ctx, cacheKey, data, movieDetailCacheTTL)
		}
	}
	return detail, nil
}

// SearchMovies proxies a free-text title search to TMDB.
func (s *MovieService) SearchMovies(ctx context.Context, query string) ([]models.MovieListItem, error) {
	result, err := s.tmdbClient.SearchMovies(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("tmdb search: %w", err)
	}

	items := make([]models.MovieListItem, 0, len(result.Results))
	for _, m := range result.Results {
		item := models.MovieListItem{
			TMDBId:      m.ID,
			Title:       m.Title,
			ReleaseDate: m.ReleaseDate,
			Popularity:  m.Popularity,
		}
		if m.PosterPath != "" {
			item.PosterURL = models.TMDBImageBaseW500 + m.PosterPath
		}
		items = append(items, item)
	}
	return items, nil
}

// EnsureCached guarantees a catalog row exists for the TMDB id,
// fetching full metadata from TMDB on a miss. Used before ratings and
// watchlist entries reference a movie.
func (s *MovieService) EnsureCached(ctx context.Context, tmdbID int) error {
	exists, err := s.repo.MovieExists(tmdbID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	detail, err := s.tmdbClient.GetMovieDetail(ctx, tmdbID)
	if err != nil {
		return fmt.Errorf("%w: tmdb id %d: %v", ErrMovieNotFound, tmdbID, err)
	}

	if err := s.repo.UpsertMovie(movieUpsertFromDetail(detail)); err != nil {
		return err
	}
	s.linkGenres(detail.ID, detail.Genres)
	return nil
}

// SyncCatalog pulls genres and the most popular movies from TMDB into
// the local catalog.
func (s *MovieService) SyncCatalog(ctx context.Context, pages int) (int, error) {
	slog.Info("starting catalog sync", "pages", pages)

	genres, err := s.tmdbClient.GetGenres(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch genres: %w", err)
	}
	for _, g := range genres {
		if _, err := s.repo.UpsertGenre(g.ID, g.Name); err != nil {
			slog.Error("failed to upsert genre", "genre", g.Name, "error", err)
		}
	}

	totalSynced := 0
	for page := 1; page <= pages; page++ {
		result, err := s.tmdbClient.DiscoverMovies(ctx, page)
		if err != nil {
			slog.Error("failed to fetch discover page", "page", page, "error", err)
			continue
		}

		for _, m := range result.Results {
			if err := s.repo.UpsertMovie(movieUpsertFromSearch(m)); err != nil {
				slog.Error("failed to upsert movie", "title", m.Title, "error", err)
				continue
			}

			_ = s.repo.ClearMovieGenres(m.ID)
			for _, genreID := range m.GenreIDs {
				internalGenreID, err := s.repo.GetGenreIDByTMDBId(genreID)
				if err != nil {
					continue
				}
				_ = s.repo.LinkMovieGenre(m.ID, internalGenreID)
			}
			totalSynced++
		}
		slog.Info("synced page", "page", page, "movies", len(result.Results))
	}

	s.invalidateListCache()

	slog.Info("catalog sync completed", "total_synced", totalSynced)
	return totalSynced, nil
}

func (s *MovieService) linkGenres(movieID int, genres []tmdb.TMDBGenre) {
	for _, g := range genres {
		genreID, err := s.repo.UpsertGenre(g.ID, g.Name)
		if err != nil {
			continue
		}
		_ = s.repo.LinkMovieGenre(movieID, genreID)
	}
}

func (s *MovieService) invalidateListCache() {
	if s.redis == nil {
		return
	}
	ctx := context.Background()
	iter := s.redis.Scan(ctx, 0, "movies:list:*", 0).Iterator()
	for iter.Next(ctx) {
		s.redis.Del(ctx, iter.Val())
	}
}

func movieUpsertFromDetail(d *tmdb.TMDBMovieDetail) models.MovieUpsert {
	return models.MovieUpsert{
		TMDBId:           d.ID,
		Title:            d.Title,
		Overview:         strPtr(d.Overview),
		ReleaseDate:      strPtr(d.ReleaseDate),
		PosterPath:       strPtr(d.PosterPath),
		BackdropPath:     strPtr(d.BackdropPath),
		VoteAverage:      floatPtr(d.VoteAverage),
		VoteCount:        intPtr(d.VoteCount),
		Popularity:       floatPtr(d.Popularity),
		OriginalLanguage: strPtr(d.OriginalLanguage),
		Runtime:          intPtr(d.Runtime),
	}
}

func intPtr(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
