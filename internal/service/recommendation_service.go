package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"cinematch-api/internal/ai"
	"cinematch-api/internal/match"
	"cinematch-api/internal/models"
	"cinematch-api/internal/tmdb"
)

const (
	recommendationCount    = 10
	recommendationCacheTTL = 10 * time.Minute
)

const recommendationSystemPrompt = `You are a movie recommendation assistant. ` +
	`Given a user's rated movies and their watchlist, suggest movies they have ` +
	`not seen. Never suggest a movie the user has already rated or listed. ` +
	`Respond with JSON only, in the exact shape ` +
	`{"recommendations":[{"title":"...","reason":"...","personalizedReason":"..."}]}. ` +
	`Each reason is one short sentence about the movie itself; each ` +
	`personalizedReason ties the suggestion to the user's taste profile.`

// RatingLister loads a user's rating history.
type RatingLister interface {
	ListRatings(userID int) ([]models.RatedMovie, error)
}

// WatchlistLister loads a user's watchlist.
type WatchlistLister interface {
	ListEntries(userID int) ([]models.WantToWatchEntry, error)
}

// CatalogWriter upserts catalog cache rows.
type CatalogWriter interface {
	UpsertMovie(m models.MovieUpsert) error
}

// RecommendationStore persists and reads generated recommendations.
type RecommendationStore interface {
	UpsertRecommendation(userID int, rec models.RecommendationUpsert) (*models.Recommendation, error)
	ListRecommendations(userID, limit int) ([]models.Recommendation, error)
	MarkSeen(userID, movieID int) error
	MarkActedOn(userID, movieID int) error
}

// MetadataSearcher resolves free-text titles against the metadata
// provider.
type MetadataSearcher interface {
	SearchMovies(ctx context.Context, query string) (*tmdb.SearchResponse, error)
}

// CompletionProvider produces a structured-output completion.
type CompletionProvider interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// RecommendationService generates, persists and serves personalized
// movie recommendations.
type RecommendationService struct {
	ratings   RatingLister
	watchlist WatchlistLister
	catalog   CatalogWriter
	store     RecommendationStore
	search    MetadataSearcher
	completer CompletionProvider
	redis     *redis.Client
	maxTokens int
}

func NewRecommendationService(
	ratings RatingLister,
	watchlist WatchlistLister,
	catalog CatalogWriter,
	store RecommendationStore,
	search MetadataSearcher,
	completer CompletionProvider,
	rdb *redis.Client,
	maxTokens int,
) *RecommendationService {
	return &RecommendationService{
		ratings:   ratings,
		watchlist: watchlist,
		catalog:   catalog,
		store:     store,
		search:    search,
		completer: completer,
		redis:     rdb,
		maxTokens: maxTokens,
	}
}

type resolvedCandidate struct {
	suggestion models.CandidateSuggestion
	movie      tmdb.TMDBMovie
}

// Generate runs one recommendation batch for the user: one completion
// call, one concurrent metadata lookup per returned title, scoring,
// and reconciliation into the store. Output order follows the order
// the provider produced, with unresolved candidates dropped.
func (s *RecommendationService) Generate(ctx context.Context, userID int) (*models.RecommendationBatch, error) {
	ratings, err := s.ratings.ListRatings(userID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	if len(ratings) == 0 {
		return nil, ErrNoRatings
	}
	watchlist, err := s.watchlist.ListEntries(userID)
	if err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}

	// The prompt tells the model not to suggest rated or listed movies,
	// but the model is not trusted to comply: known ids are filtered
	// out again after resolution.
	known := make(map[int]bool, len(ratings)+len(watchlist))
	for _, r := range ratings {
		known[r.MovieID] = true
	}
	for _, w := range watchlist {
		known[w.MovieID] = true
	}

	prompt := buildPrompt(ratings, watchlist, recommendationCount)
	content, err := s.completer.CompleteJSON(ctx, recommendationSystemPrompt, prompt, s.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}

	suggestions, err := parseSuggestions(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCompletion, err)
	}
	if len(suggestions) == 0 {
		return nil, ErrEmptyBatch
	}

	resolved := s.resolveCandidates(ctx, suggestions, known)
	if len(resolved) == 0 {
		return nil, ErrEmptyBatch
	}

	recs := make([]models.Recommendation, 0, len(resolved))
	for _, cand := range resolved {
		score, level := match.Classify(cand.movie.VoteAverage, cand.movie.VoteCount, cand.movie.Popularity)

		if err := s.catalog.UpsertMovie(movieUpsertFromSearch(cand.movie)); err != nil {
			return nil, fmt.Errorf("upsert catalog movie %d: %w", cand.movie.ID, err)
		}

		stored, err := s.store.UpsertRecommendation(userID, models.RecommendationUpsert{
			MovieID:            cand.movie.ID,
			Reason:             cand.suggestion.Reason,
			PersonalizedReason: cand.suggestion.PersonalizedReason,
			MatchScore:         &score,
			MatchLevel:         string(level),
			EnhancedReason:     enhancedReason(cand.suggestion.Reason, cand.movie),
		})
		if err != nil {
			return nil, fmt.Errorf("upsert recommendation for movie %d: %w", cand.movie.ID, err)
		}

		stored.Title = cand.movie.Title
		if cand.movie.PosterPath != "" {
			stored.PosterURL = models.TMDBImageBaseW500 + cand.movie.PosterPath
		}
		recs = append(recs, *stored)
	}

	s.invalidateCache(userID)

	slog.Info("generated recommendation batch",
		"user_id", userID,
		"suggested", len(suggestions),
		"resolved", len(recs),
	)

	return &models.RecommendationBatch{
		UserID:          userID,
		Recommendations: recs,
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// resolveCandidates looks each suggested title up on the metadata
// provider. Lookups are independent reads, so they run concurrently;
// results keep the suggestion order. A failed or empty search drops
// the candidate, as does a movie in the known set (already rated or
// listed by the user) or one already claimed by an earlier candidate.
func (s *RecommendationService) resolveCandidates(ctx context.Context, suggestions []models.CandidateSuggestion, known map[int]bool) []resolvedCandidate {
	slots := make([]*resolvedCandidate, len(suggestions))

	var wg sync.WaitGroup
	for i, suggestion := range suggestions {
		wg.Add(1)
		go func(i int, suggestion models.CandidateSuggestion) {
			defer wg.Done()
			result, err := s.search.SearchMovies(ctx, suggestion.Title)
			if err != nil {
				slog.Warn("candidate lookup failed, dropping", "title", suggestion.Title, "error", err)
				return
			}
			if len(result.Results) == 0 {
				slog.Warn("candidate not found, dropping", "title", suggestion.Title)
				return
			}
			slots[i] = &resolvedCandidate{suggestion: suggestion, movie: result.Results[0]}
		}(i, suggestion)
	}
	wg.Wait()

	seen := make(map[int]bool)
	resolved := make([]resolvedCandidate, 0, len(suggestions))
	for _, slot := range slots {
		if slot == nil || seen[slot.movie.ID] {
			continue
		}
		if known[slot.movie.ID] {
			slog.Warn("candidate already rated or listed, dropping",
				"title", slot.suggestion.Title, "movie_id", slot.movie.ID)
			continue
		}
		seen[slot.movie.ID] = true
		resolved = append(resolved, *slot)
	}
	return resolved
}

// GetRecommendations returns the user's stored recommendations.
func (s *RecommendationService) GetRecommendations(ctx context.Context, userID, limit int) ([]models.Recommendation, error) {
	cacheKey := fmt.Sprintf("recommendations:%d:%d", userID, limit)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var recs []models.Recommendation
			if json.Unmarshal([]byte(cached), &recs) == nil {
				slog.Debug("recommendations cache hit", "user_id", userID)
				return recs, nil
			}
		}
	}

	recs, err := s.store.ListRecommendations(userID, limit)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []models.Recommendation{}
	}

	if s.redis != nil {
		if data, err := json.Marshal(recs); err == nil {
			s.redis.Set(ctx, cacheKey, data, recommendationCacheTTL)
		}
	}
	return recs, nil
}

// MarkSeen flags a recommendation as seen.
func (s *RecommendationService) MarkSeen(userID, movieID int) error {
	if err := s.store.MarkSeen(userID, movieID); err != nil {
		return err
	}
	s.invalidateCache(userID)
	return nil
}

// MarkActedOn flags a recommendation as acted on.
func (s *RecommendationService) MarkActedOn(userID, movieID int) error {
	if err := s.store.MarkActedOn(userID, movieID); err != nil {
		return err
	}
	s.invalidateCache(userID)
	return nil
}

func (s *RecommendationService) invalidateCache(userID int) {
	if s.redis == nil {
		return
	}
	ctx := context.Background()
	iter := s.redis.Scan(ctx, 0, fmt.Sprintf("recommendations:%d:*", userID), 0).Iterator()
	for iter.Next(ctx) {
		s.redis.Del(ctx, iter.Val())
	}
}

// buildPrompt summarizes the user's taste profile for the provider.
func buildPrompt(ratings []models.RatedMovie, watchlist []models.WantToWatchEntry, count int) string {
	var b strings.Builder
	b.WriteString("Movies the user has rated (1-10):\n")
	for _, r := range ratings {
		fmt.Fprintf(&b, "- %s: %d/10\n", r.Title, r.Rating)
	}
	if len(watchlist) > 0 {
		b.WriteString("\nMovies already on the user's watchlist (do not suggest these):\n")
		for _, w := range watchlist {
			fmt.Fprintf(&b, "- %s\n", w.Title)
		}
	}
	fmt.Fprintf(&b, "\nSuggest exactly %d movies.", count)
	return b.String()
}

// parseSuggestions decodes and validates the provider payload. Any
// shape mismatch fails the batch; there is no best-effort extraction.
// A well-formed empty list is not a parse failure: the caller reports
// it as an empty batch.
func parseSuggestions(content string) ([]models.CandidateSuggestion, error) {
	var parsed struct {
		Recommendations []models.CandidateSuggestion `json:"recommendations"`
	}
	if err := ai.DecodeJSON(content, &parsed); err != nil {
		return nil, err
	}
	for i, suggestion := range parsed.Recommendations {
		if strings.TrimSpace(suggestion.Title) == "" {
			return nil, fmt.Errorf("suggestion %d has no title", i)
		}
		if strings.TrimSpace(suggestion.Reason) == "" {
			return nil, fmt.Errorf("suggestion %d (%q) has no reason", i, suggestion.Title)
		}
	}
	return parsed.Recommendations, nil
}

// enhancedReason augments the provider's reason with vote count and
// trending status when available.
func enhancedReason(reason string, m tmdb.TMDBMovie) string {
	parts := []string{strings.TrimSpace(reason)}
	if m.VoteCount > 0 {
		parts = append(parts, fmt.Sprintf("Rated %.1f/10 by %d viewers.", m.VoteAverage, m.VoteCount))
	}
	if m.Popularity > 50 {
		parts = append(parts, "Currently trending.")
	}
	return strings.Join(parts, " ")
}

func movieUpsertFromSearch(m tmdb.TMDBMovie) models.MovieUpsert {
	return models.MovieUpsert{
		TMDBId:           m.ID,
		Title:            m.Title,
		Overview:         strPtr(m.Overview),
		ReleaseDate:      strPtr(m.ReleaseDate),
		PosterPath:       strPtr(m.PosterPath),
		BackdropPath:     strPtr(m.BackdropPath),
		VoteAverage:      floatPtr(m.VoteAverage),
		VoteCount:        intPtr(m.VoteCount),
		Popularity:       floatPtr(m.Popularity),
		OriginalLanguage: strPtr(m.OriginalLanguage),
	}
}

// strPtr maps an empty string to nil so the catalog merge never
// erases a stored value with a missing one. floatPtr and intPtr do
// the same for zero metrics, which TMDB uses for "no data".
func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func floatPtr(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}
