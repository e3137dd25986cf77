// Package match computes the confidence score and tier for a candidate
// movie from its aggregate public rating, vote count and popularity.
package match

// Level is an ordered confidence tier for a recommendation.
type Level string

const (
	LevelLoveIt Level = "LOVE IT"
	LevelLikeIt Level = "LIKE IT"
	LevelMaybe  Level = "MAYBE"
	LevelRisky  Level = "RISKY"
)

// Score computes the match score. The base component comes from the
// first matching (vote average, vote count) rule; the popularity bonus
// is additive on top.
func Score(voteAverage float64, voteCount int, popularity float64) int {
	score := 0

	switch {
	case voteAverage >= 7.5 && voteCount >= 1000:
		score += 40
	case voteAverage >= 7.0 && voteCount >= 500:
		score += 30
	case voteAverage >= 6.5 && voteCount >= 100:
		score += 20
	case voteAverage >= 6.0:
		score += 10
	}

	switch {
	case popularity > 100:
		score += 20
	case popularity > 50:
		score += 15
	case popularity > 20:
		score += 10
	}

	return score
}

// LevelFor maps a match score to its confidence tier.
func LevelFor(score int) Level {
	switch {
	case score >= 50:
		return LevelLoveIt
	case score >= 35:
		return LevelLikeIt
	case score >= 20:
		return LevelMaybe
	default:
		return LevelRisky
	}
}

// Classify returns both the score and its tier.
func Classify(voteAverage float64, voteCount int, popularity float64) (int, Level) {
	score := Score(voteAverage, voteCount, popularity)
	return score, LevelFor(score)
}
