package service

import "errors"

// Typed failure modes of the recommendation engine and user actions.
// Handlers select HTTP status codes with errors.Is against these.
var (
	// ErrNoRatings is returned when generation is requested for a user
	// with no rated movies; the prompt would have no grounding.
	ErrNoRatings = errors.New("recommendation generation requires at least one rated movie")

	// ErrCompletionFailed wraps a failed text-generation provider call.
	// The whole batch fails; there is no partial result.
	ErrCompletionFailed = errors.New("text-generation request failed")

	// ErrMalformedCompletion is returned when the provider's output
	// cannot be parsed as the expected structured suggestion list.
	ErrMalformedCompletion = errors.New("text-generation output was not parseable")

	// ErrEmptyBatch is returned when the provider suggested nothing or
	// every generated candidate was dropped during resolution. A batch
	// that recommends nothing is a reportable failure, not an empty
	// success.
	ErrEmptyBatch = errors.New("no recommendation candidates could be resolved")

	// ErrAlreadyRated rejects adding a rated movie to the watchlist;
	// a rating supersedes want-to-watch.
	ErrAlreadyRated = errors.New("movie is already rated")
)
