package models

import "time"

// Movie is the locally cached projection of TMDB metadata, keyed by
// the TMDB id. A row may start life as a placeholder (title only) the
// first time a rating, watchlist entry or recommendation references
// it, and is filled in as metadata becomes available.
type Movie struct {
	TMDBId           int       `json:"tmdb_id"`
	Title            string    `json:"title"`
	Overview         string    `json:"overview"`
	ReleaseDate      string    `json:"release_date"`
	PosterPath       string    `json:"poster_path"`
	BackdropPath     string    `json:"backdrop_path"`
	VoteAverage      float64   `json:"vote_average"`
	VoteCount        int       `json:"vote_count"`
	Popularity       float64   `json:"popularity"`
	OriginalLanguage string    `json:"original_language"`
	Runtime          int       `json:"runtime"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MovieUpsert carries the fields of a catalog upsert. Title is always
// required; nil pointer fields mean "no incoming value" and must never
// overwrite a stored value (coalesce merge).
type MovieUpsert struct {
	TMDBId           int
	Title            string
	Overview         *string
	ReleaseDate      *string
	PosterPath       *string
	BackdropPath     *string
	VoteAverage      *float64
	VoteCount        *int
	Popularity       *float64
	OriginalLanguage *string
	Runtime          *int
}

// MergeMovie applies an upsert to a stored movie under the coalesce
// rule: every non-nil incoming field overwrites the stored field, and
// nil incoming fields leave the stored value untouched. The SQL upsert
// in the movie repository follows the same rule; this is the canonical
// statement of the contract.
func MergeMovie(stored Movie, in MovieUpsert) Movie {
	out := stored
	out.TMDBId = in.TMDBId
	if in.Title != "" {
		out.Title = in.Title
	}
	if in.Overview != nil {
		out.Overview = *in.Overview
	}
	if in.ReleaseDate != nil {
		out.ReleaseDate = *in.ReleaseDate
	}
	if in.PosterPath != nil {
		out.PosterPath = *in.PosterPath
	}
	if in.BackdropPath != nil {
		out.BackdropPath = *in.BackdropPath
	}
	if in.VoteAverage != nil {
		out.VoteAverage = *in.VoteAverage
	}
	if in.VoteCount != nil {
		out.VoteCount = *in.VoteCount
	}
	if in.Popularity != nil {
		out.Popularity = *in.Popularity
	}
	if in.OriginalLanguage != nil {
		out.OriginalLanguage = *in.OriginalLanguage
	}
	if in.Runtime != nil {
		out.Runtime = *in.Runtime
	}
	return out
}

// Genre represents a movie genre.
type Genre struct {
	ID     int    `json:"id"`
	TMDBId int    `json:"tmdb_id"`
	Name   string `json:"name"`
}

// MovieListItem is the response shape for movie listing.
type MovieListItem struct {
	TMDBId      int     `json:"tmdb_id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	Popularity  float64 `json:"popularity"`
	PosterURL   string  `json:"poster_url"`
}

// MovieListResponse is the paginated movie listing response.
type MovieListResponse struct {
	Page         int             `json:"page"`
	PageSize     int             `json:"page_size"`
	TotalPages   int             `json:"total_pages"`
	TotalResults int             `json:"total_results"`
	Data         []MovieListItem `json:"data"`
}

// MovieDetail is the response shape for movie detail.
type MovieDetail struct {
	TMDBId      int      `json:"tmdb_id"`
	Title       string   `json:"title"`
	Overview    string   `json:"overview"`
	ReleaseDate string   `json:"release_date"`
	Genres      []string `json:"genres"`
	Language    string   `json:"language"`
	Runtime     int      `json:"runtime"`
	VoteAverage float64  `json:"vote_average"`
	VoteCount   int      `json:"vote_count"`
	Popularity  float64  `json:"popularity"`
	PosterURL   string   `json:"poster_url"`
	BackdropURL string   `json:"backdrop_url"`
}

// MovieListParams holds query parameters for movie listing.
type MovieListParams struct {
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
	SortBy   string `query:"sort_by"`
	Order    string `query:"order"`
}

// Validate sets defaults and validates parameters.
func (p *MovieListParams) Validate() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}
	validSorts := map[string]bool{"release_date": true, "title": true, "popularity": true}
	if !validSorts[p.SortBy] {
		p.SortBy = "popularity"
	}
	if p.Order != "asc" && p.Order != "desc" {
		p.Order = "desc"
	}
}

const (
	TMDBImageBaseW500 = "https://image.tmdb.org/t/p/w500"
	TMDBImageBaseW780 = "https://image.tmdb.org/t/p/w780"
)
