package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"cinematch-api/internal/models"
	"cinematch-api/internal/tmdb"
)

// ---- fakes ----

type fakeRatings struct {
	ratings []models.RatedMovie
	err     error
}

func (f *fakeRatings) ListRatings(userID int) ([]models.RatedMovie, error) {
	return f.ratings, f.err
}

type fakeWatchlist struct {
	entries []models.WantToWatchEntry
}

func (f *fakeWatchlist) ListEntries(userID int) ([]models.WantToWatchEntry, error) {
	return f.entries, nil
}

// fakeCatalog applies upserts with the canonical coalesce rule so
// tests observe the same merge semantics the SQL upsert implements.
type fakeCatalog struct {
	movies map[int]models.Movie
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{movies: make(map[int]models.Movie)}
}

func (f *fakeCatalog) UpsertMovie(m models.MovieUpsert) error {
	f.movies[m.TMDBId] = models.MergeMovie(f.movies[m.TMDBId], m)
	return nil
}

type fakeRecStore struct {
	recs   map[string]models.Recommendation
	nextID int
}

func newFakeRecStore() *fakeRecStore {
	return &fakeRecStore{recs: make(map[string]models.Recommendation), nextID: 1}
}

func recKey(userID, movieID int) string {
	return fmt.Sprintf("%d:%d", userID, movieID)
}

func (f *fakeRecStore) UpsertRecommendation(userID int, rec models.RecommendationUpsert) (*models.Recommendation, error) {
	key := recKey(userID, rec.MovieID)
	stored, ok := f.recs[key]
	if !ok {
		stored = models.Recommendation{
			ID:        f.nextID,
			UserID:    userID,
			MovieID:   rec.MovieID,
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		f.nextID++
	}
	stored.Reason = rec.Reason
	stored.PersonalizedReason = rec.PersonalizedReason
	stored.MatchScore = rec.MatchScore
	stored.MatchLevel = rec.MatchLevel
	stored.EnhancedReason = rec.EnhancedReason
	stored.UpdatedAt = time.Now()
	f.recs[key] = stored
	return &stored, nil
}

func (f *fakeRecStore) ListRecommendations(userID, limit int) ([]models.Recommendation, error) {
	var out []models.Recommendation
	for _, rec := range f.recs {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecStore) MarkSeen(userID, movieID int) error {
	rec, ok := f.recs[recKey(userID, movieID)]
	if !ok {
		return errors.New("not found")
	}
	rec.Seen = true
	f.recs[recKey(userID, movieID)] = rec
	return nil
}

func (f *fakeRecStore) MarkActedOn(userID, movieID int) error {
	rec, ok := f.recs[recKey(userID, movieID)]
	if !ok {
		return errors.New("not found")
	}
	rec.ActedOn = true
	f.recs[recKey(userID, movieID)] = rec
	return nil
}

type fakeSearcher struct {
	results map[string][]tmdb.TMDBMovie
	errors  map[string]error
}

func (f *fakeSearcher) SearchMovies(ctx context.Context, query string) (*tmdb.SearchResponse, error) {
	if err, ok := f.errors[query]; ok {
		return nil, err
	}
	return &tmdb.SearchResponse{Results: f.results[query]}, nil
}

type fakeCompleter struct {
	content    string
	err        error
	calls      int
	lastPrompt string
}

func (f *fakeCompleter) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	f.calls++
	f.lastPrompt = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

// ---- helpers ----

func someRatings() []models.RatedMovie {
	return []models.RatedMovie{
		{MovieID: 603, Title: "The Matrix", Rating: 9},
		{MovieID: 680, Title: "Pulp Fiction", Rating: 8},
	}
}

func suggestionJSON(titles ...string) string {
	var entries []string
	for _, title := range titles {
		entries = append(entries, fmt.Sprintf(
			`{"title":%q,"reason":"A classic of its genre.","personalizedReason":"Matches your taste for intense thrillers."}`,
			title,
		))
	}
	return `{"recommendations":[` + strings.Join(entries, ",") + `]}`
}

func searchHit(id int, title string, voteAverage float64, voteCount int, popularity float64) []tmdb.TMDBMovie {
	return []tmdb.TMDBMovie{{
		ID: id, Title: title,
		VoteAverage: voteAverage, VoteCount: voteCount, Popularity: popularity,
		PosterPath: "/poster.jpg",
	}}
}

func newTestService(ratings *fakeRatings, watchlist *fakeWatchlist, catalog *fakeCatalog, store *fakeRecStore, search *fakeSearcher, completer *fakeCompleter) *RecommendationService {
	return NewRecommendationService(ratings, watchlist, catalog, store, search, completer, nil, 2048)
}

// ---- tests ----

func TestGenerateSuccess(t *testing.T) {
	search := &fakeSearcher{results: map[string][]tmdb.TMDBMovie{
		"Heat":  searchHit(949, "Heat", 7.9, 7000, 45),
		"Ronin": searchHit(8195, "Ronin", 6.9, 2100, 22),
	}}
	completer := &fakeCompleter{content: suggestionJSON("Heat", "Ronin")}
	catalog := newFakeCatalog()
	store := newFakeRecStore()

	svc := newTestService(&fakeRatings{ratings: someRatings()}, &fakeWatchlist{}, catalog, store, search, completer)
	batch, err := svc.Generate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if completer.calls != 1 {
		t.Errorf("expected one completion call per batch, got %d", completer.calls)
	}
	if len(batch.Recommendations) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(batch.Recommendations))
	}

	// Order follows the provider's output.
	if batch.Recommendations[0].MovieID != 949 || batch.Recommendations[1].MovieID != 8195 {
		t.Errorf("order not preserved: %d, %d",
			batch.Recommendations[0].MovieID, batch.Recommendations[1].MovieID)
	}

	// Heat: avg 7.9 / 7000 votes -> 40, popularity 45 -> +10 = 50.
	first := batch.Recommendations[0]
	if first.MatchScore == nil || *first.MatchScore != 50 {
		t.Errorf("match score = %v, want 50", first.MatchScore)
	}
	if first.MatchLevel != "LOVE IT" {
		t.Errorf("match level = %q, want LOVE IT", first.MatchLevel)
	}
	if !strings.Contains(first.EnhancedReason, "7000 viewers") {
		t.Errorf("enhanced reason missing vote count: %q", first.EnhancedReason)
	}

	// Catalog rows were reconciled.
	if _, ok := catalog.movies[949]; !ok {
		t.Error("catalog row for resolved candidate missing")
	}
	if len(store.recs) != 2 {
		t.Errorf("store has %d rows, want 2", len(store.recs))
	}
}

func TestGeneratePromptContents(t *testing.T) {
	search := &fakeSearcher{results: map[string][]tmdb.TMDBMovie{
		"Heat": searchHit(949, "Heat", 7.9, 7000, 45),
	}}
	completer := &fakeCompleter{content: suggestionJSON("Heat")}
	watchlist := &fakeWatchlist{entries: []models.WantToWatchEntry{
		{MovieID: 27205, Title: "Inception", Priority: 2},
	}}

	svc := newTestService(&fakeRatings{ratings: someRatings()}, watchlist, newFakeCatalog(), newFakeRecStore(), search, completer)
	if _, err := svc.Generate(context.Background(), 1); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	prompt := completer.lastPrompt
	if !strings.Contains(prompt, "The Matrix: 9/10") {
		t.Errorf("prompt missing rated title: %q", prompt)
	}
	if !strings.Contains(prompt, "Inception") {
		t.Errorf("prompt missing watchlist title: %q", prompt)
	}
	if !strings.Contains(prompt, "exactly 10 movies") {
		t.Errorf("prompt missing target count: %q", prompt)
	}
}

func TestGenerateNoRatings(t *testing.T) {
	completer := &fakeCompleter{content: suggestionJSON("Heat")}
	svc := newTestService(&fakeRatings{}, &fakeWatchlist{}, newFakeCatalog(), newFakeRecStore(), &fakeSearcher{}, completer)

	_, err := svc.Generate(context.Background(), 1)
	if !errors.Is(err, ErrNoRatings) {
		t.Fatalf("error = %v, want ErrNoRatings", err)
	}
	if completer.calls != 0 {
		t.Errorf("completer called %d times for a user with no ratings", completer.calls)
	}
}

func TestGenerateCompletionFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("upstream timeout")}
	svc := newTestService(&fakeRatings{ratings: someRatings()}, &fakeWatchlist{}, newFakeCatalog(), newFakeRecStore(), &fakeSearcher{}, completer)

	_, err := svc.Generate(context.Background(), 1)
	if !errors.Is(err, ErrCompletionFailed) {
		t.Fatalf("error = %v, want ErrCompletionFailed", err)
	}
}

func TestGenerateMalformedCompletion(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"prose", "Here are some movies you might like: Heat, Ronin."},
		{"missing title", `{"recommendations":[{"reason":"good","personalizedReason":"for you"}]}`},
		{"missing reason", `{"recommendations":[{"title":"Heat","personalizedReason":"for you"}]}`},
		{"truncated", `{"recommendations":[{"title":"Heat"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &fakeCompleter{content: tt.content}
			svc := newTestService(&fakeRatings{ratings: someRatings()}, &fakeWatchlist{}, newFakeCatalog(), newFakeRecStore(), &fakeSearcher{}, completer)

			_, err := svc.Generate(context.Background(), 1)
			if !errors.Is(err, ErrMalformedCompletion) {
				t.Fatalf("error = %v, want ErrMalformedCompletion", err)
			}
		})
	}
}

func TestGenerateEmptySuggestionList(t *testing.T) {
	// A parseable payload with zero suggestions is an empty batch,
	// not a malformed completion.
	completer := &fakeCompleter{content: `{"recommendations":[]}`}
	svc := newTestService(&fakeRatings{ratings: someRatings()}, &fakeWatchlist{}, newFakeCatalog(), newFakeRecStore(), &fakeSearcher{}, completer)

	_, err := svc.Generate(context.Background(), 1)
	if !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("error = %v, want ErrEmptyBatch", err)
	}
}

func TestGenerateSkipsRatedAndListedMovies(t *testing.T) {
	// The provider ignores the prompt and suggests movies the user has
	// already rated or listed; those must never be persisted.
	search := &fakeSearcher{results: map[string][]tmdb.TMDBMovie{
		"The Matrix": searchHit(603, "The Matrix", 8.2, 24000, 88),
		"Inception":  searchHit(27205, "Inception", 8.3, 33000, 95),
		"Heat":       searchHit(949, "Heat", 7.9, 7000, 45),
	}}
	completer := &fakeCompleter{content: suggestionJSON("The Matrix", "Inception", "Heat")}
	watchlist := &fakeWatchlist{entries: []models.WantToWatchEntry{
		{MovieID: 27205, Title: "Inception", Priority: 2},
	}}
	store := newFakeRecStore()

	svc := newTestService(&fakeRatings{ratings: someRatings()}, watchlist, newFakeCatalog(), store, search, completer)
	batch, err := svc.Generate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if len(batch.Recommendations) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(batch.Recommendations))
	}
	if batch.Recommendations[0].MovieID != 949 {
		t.Errorf("movie %d survived, want 949", batch.Recommendations[0].MovieID)
	}
	if _, ok := store.recs[recKey(1, 603)]; ok {
		t.Error("already-rated movie persisted as a recommendation")
	}
	if _, ok := store.recs[recKey(1, 27205)]; ok {
		t.Error("watchlisted movie persisted as a recommendation")
	}
}

func TestGenerateAllSuggestionsKnown(t *testing.T) {
	search := &fakeSearcher{results: map[string][]tmdb.TMDBMovie{
		"The Matrix": searchHit(603, "The Matrix", 8.2, 24000, 88),
	}}
	completer := &fakeCompleter{content: suggestionJSON("The Matrix")}
	svc := newTestService(&fakeRatings{ratings: someRatings()}, &fakeWatchlist{}, newFakeCatalog(), newFakeRecStore(), search, completer)

	_, err := svc.Generate(context.Background(), 1)
	if !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("error = %v, want ErrEmptyBatch", err)
	}
}

func TestGeneratePartialResolution(t *testing.T) {
	// 10 suggested titles, 3 of which cannot be resolved.
	titles := make([]string, 10)
	results := make(map[string][]tmdb.TMDBMovie)
	searchErrors := make(map[string]error)
	for i := range titles {
		titles[i] = fmt.Sprintf("Movie %d", i)
		switch i {
		case 2, 5:
			// unresolved: empty search result
		case 7:
			searchErrors[titles[i]] = errors.New("tmdb 500")
		default:
			results[titles[i]] = searchHit(1000+i, titles[i], 7.0, 600, 30)
		}
	}

	completer := &fakeCompleter{content: suggestionJSON(titles...)}
	search := &fakeSearcher{results: results, errors: searchErrors}
	svc := newTestService(&fakeRatings{ratings: someRatings()}, &fakeWatchlist{}, newFakeCatalog(), newFakeRecStore(), search, completer)

	batch, err := svc.Generate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(batch.Recommendations) != 7 {
		t.Fatalf("got %d recommendations, want 7", len(batch.Recommendations))
	}

	// Survivors keep the provider's order with the dropped candidates omitted.
	wantIDs := []int{1000, 1001, 1003, 1004, 1006, 1008, 1009}
	for i, rec := range batch.Recommendations {
		if rec.MovieID != wantIDs[i] {
			t.Errorf("position %d: movie %d, want %d", i, rec.MovieID, wantIDs[i])
		}
	}
}

func TestGenerateAllUnresolved(t *testing.T) {
	completer := &fakeCompleter{content: suggestionJSON("Ghost Movie", "Phantom Film")}
	search := &fakeSearcher{results: map[string][]tmdb.TMDBMovie{}}
	svc := newTestService(&fakeRatings{ratings: someRatings()}, &fakeWatchlist{}, newFakeCatalog(), newFakeRecStore(), search, completer)

	_, err := svc.Generate(context.Background(), 1)
	if !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("error = %v, want ErrEmptyBatch", err)
	}
}

func TestGenerateDeduplicatesResolvedMovies(t *testing.T) {
	// Two suggested titles resolve to the same catalog entry.
	hit := searchHit(949, "Heat", 7.9, 7000, 45)
	search := &fakeSearcher{results: map[string][]tmdb.TMDBMovie{
		"Heat":        hit,
		"Heat (1995)": hit,
	}}
	completer := &fakeCompleter{content: suggestionJSON("Heat", "Heat (1995)")}
	store := newFakeRecStore()
	svc := newTestService(&fakeRatings{ratings: someRatings()}, &fakeWatchlist{}, newFakeCatalog(), store, search, completer)

	batch, err := svc.Generate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(batch.Recommendations) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(batch.Recommendations))
	}
	if len(store.recs) != 1 {
		t.Fatalf("store has %d rows, want 1", len(store.recs))
	}
}

func TestGenerateBatchIdempotence(t *testing.T) {
	search := &fakeSearcher{results: map[string][]tmdb.TMDBMovie{
		"Heat":  searchHit(949, "Heat", 7.9, 7000, 45),
		"Ronin": searchHit(8195, "Ronin", 6.9, 2100, 22),
	}}
	completer := &fakeCompleter{content: suggestionJSON("Heat", "Ronin")}
	store := newFakeRecStore()
	svc := newTestService(&fakeRatings{ratings: someRatings()}, &fakeWatchlist{}, newFakeCatalog(), store, search, completer)

	if _, err := svc.Generate(context.Background(), 1); err != nil {
		t.Fatalf("first Generate returned error: %v", err)
	}

	// Mark one row seen between batches; a re-run must not reset it.
	if err := store.MarkSeen(1, 949); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	firstCreated := store.recs[recKey(1, 949)].CreatedAt

	if _, err := svc.Generate(context.Background(), 1); err != nil {
		t.Fatalf("second Generate returned error: %v", err)
	}

	if len(store.recs) != 2 {
		t.Fatalf("row count doubled: got %d rows, want 2", len(store.recs))
	}
	rec := store.recs[recKey(1, 949)]
	if !rec.Seen {
		t.Error("seen flag reset by re-submission")
	}
	if !rec.CreatedAt.Equal(firstCreated) {
		t.Error("creation timestamp changed by re-submission")
	}
}

func TestGenerateCoalesceKeepsCatalogFields(t *testing.T) {
	catalog := newFakeCatalog()
	// Catalog already knows this movie's poster and popularity.
	_ = catalog.UpsertMovie(models.MovieUpsert{
		TMDBId: 949, Title: "Heat",
		PosterPath: strPtr("/existing.jpg"), Popularity: floatPtr(62.5),
	})

	// The search result carries no poster and no popularity this time.
	hit := []tmdb.TMDBMovie{{ID: 949, Title: "Heat", VoteAverage: 7.9, VoteCount: 7000}}
	search := &fakeSearcher{results: map[string][]tmdb.TMDBMovie{"Heat": hit}}
	completer := &fakeCompleter{content: suggestionJSON("Heat")}
	svc := newTestService(&fakeRatings{ratings: someRatings()}, &fakeWatchlist{}, catalog, newFakeRecStore(), search, completer)

	if _, err := svc.Generate(context.Background(), 1); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if got := catalog.movies[949].PosterPath; got != "/existing.jpg" {
		t.Errorf("poster path erased by upsert without poster: got %q", got)
	}
	if got := catalog.movies[949].Popularity; got != 62.5 {
		t.Errorf("popularity erased by upsert with zero popularity: got %v", got)
	}
	if got := catalog.movies[949].VoteCount; got != 7000 {
		t.Errorf("vote count not refreshed: got %d", got)
	}
}
