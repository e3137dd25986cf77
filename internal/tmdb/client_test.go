package tmdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchMovies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/movie" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("query"); got != "Heat" {
			t.Errorf("query = %q, want Heat", got)
		}
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %q, want test-key", got)
		}
		resp := SearchResponse{
			Page: 1,
			Results: []TMDBMovie{
				{ID: 949, Title: "Heat", VoteAverage: 7.9, VoteCount: 7000, Popularity: 45.2},
				{ID: 1247, Title: "Heat", VoteAverage: 5.8, VoteCount: 120},
			},
			TotalResults: 2,
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	result, err := client.SearchMovies(context.Background(), "Heat")
	if err != nil {
		t.Fatalf("SearchMovies returned error: %v", err)
	}
	if len(result.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(result.Results))
	}
	if result.Results[0].ID != 949 {
		t.Fatalf("top result id = %d, want 949", result.Results[0].ID)
	}
}

func TestSearchMoviesEscapesQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("query"); got != "The Good, the Bad & the Ugly" {
			t.Errorf("query = %q", got)
		}
		_ = json.NewEncoder(w).Encode(SearchResponse{})
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	if _, err := client.SearchMovies(context.Background(), "The Good, the Bad & the Ugly"); err != nil {
		t.Fatalf("SearchMovies returned error: %v", err)
	}
}

func TestGetMovieDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/949" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		detail := TMDBMovieDetail{
			ID: 949, Title: "Heat", Runtime: 170,
			Genres: []TMDBGenre{{ID: 28, Name: "Action"}, {ID: 80, Name: "Crime"}},
		}
		if err := json.NewEncoder(w).Encode(detail); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	detail, err := client.GetMovieDetail(context.Background(), 949)
	if err != nil {
		t.Fatalf("GetMovieDetail returned error: %v", err)
	}
	if detail.Title != "Heat" || detail.Runtime != 170 {
		t.Fatalf("unexpected detail %+v", detail)
	}
	if len(detail.Genres) != 2 {
		t.Fatalf("got %d genres, want 2", len(detail.Genres))
	}
}

func TestErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_message":"The resource you requested could not be found."}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	if _, err := client.GetMovieDetail(context.Background(), 0); err == nil {
		t.Fatal("expected error for 404 status")
	}
	if _, err := client.SearchMovies(context.Background(), "x"); err == nil {
		t.Fatal("expected error for 404 status")
	}
}
