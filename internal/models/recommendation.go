package models

import "time"

// Recommendation is a system-generated, scored movie suggestion. At
// most one live recommendation exists per (user, movie) pair: a later
// batch that includes the same movie updates the row rather than
// duplicating it, and rows are never deleted automatically.
type Recommendation struct {
	ID                 int       `json:"id"`
	UserID             int       `json:"user_id"`
	MovieID            int       `json:"movie_id"`
	Title              string    `json:"title"`
	PosterURL          string    `json:"poster_url,omitempty"`
	Reason             string    `json:"reason"`
	PersonalizedReason string    `json:"personalized_reason"`
	MatchScore         *int      `json:"match_score,omitempty"`
	MatchLevel         string    `json:"match_level,omitempty"`
	EnhancedReason     string    `json:"enhanced_reason,omitempty"`
	Seen               bool      `json:"seen"`
	ActedOn            bool      `json:"acted_on"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// RecommendationUpsert carries the generated fields written by one
// batch. The reconciliation upsert refreshes exactly these fields plus
// the updated timestamp; created_at and the seen/acted_on flags of an
// existing row stay untouched.
type RecommendationUpsert struct {
	MovieID            int
	Reason             string
	PersonalizedReason string
	MatchScore         *int
	MatchLevel         string
	EnhancedReason     string
}

// RecommendationBatch wraps the result of one generation run.
type RecommendationBatch struct {
	UserID          int              `json:"user_id"`
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     string           `json:"generated_at"`
}

// CandidateSuggestion is one structured suggestion parsed from the
// text-generation provider's response.
type CandidateSuggestion struct {
	Title              string `json:"title"`
	Reason             string `json:"reason"`
	PersonalizedReason string `json:"personalizedReason"`
}
