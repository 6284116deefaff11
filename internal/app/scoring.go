package app

// Scoring constants for a correct answer: a flat base plus a bonus per
// second left on the clock when the answer landed.
const (
	basePoints      = 100
	timeBonusFactor = 2
)

// ScoreAnswer returns the points awarded for a single question. A wrong or
// missing answer scores zero; a correct one scores the base plus the time
// bonus. secondsRemaining is clamped to >= 0 so a late tick can never
// subtract points.
func ScoreAnswer(correct bool, secondsRemaining int) int {
	if !correct {
		return 0
	}
	if secondsRemaining < 0 {
		secondsRemaining = 0
	}
	return basePoints + timeBonusFactor*secondsRemaining
}

// Accuracy returns the percentage of correct answers. correctCount is
// tracked explicitly alongside the score, never back-derived from it.
func Accuracy(correctCount, totalQuestions int) float64 {
	if totalQuestions == 0 {
		return 0
	}
	return float64(correctCount) / float64(totalQuestions) * 100
}
