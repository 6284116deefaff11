package app

import (
	"math"
	"math/rand"

	"medprep-exam-service/internal/domain"
)

// SampleExam assembles a paper of targetCount questions from pool following
// the subject weight distribution.
//
// Each subject contributes floor(targetCount*fraction) questions, capped by
// the subject's own inventory. Shortfalls (a subject with fewer questions
// than its quota) are backfilled from the leftover questions of every
// subject, pooled and shuffled so the backfill is unbiased. The final list
// is shuffled once more so subjects interleave instead of appearing in
// blocks.
//
// If the whole pool cannot satisfy targetCount, the selection is returned
// together with an *domain.InventoryError carrying the available count; the
// caller decides whether a shorter paper is acceptable.
func SampleExam(pool []domain.Question, weights []domain.SubjectWeight, targetCount int, rnd *rand.Rand) ([]domain.Question, error) {
	if targetCount <= 0 {
		return nil, nil
	}

	bySubject := make(map[string][]domain.Question)
	for _, q := range pool {
		bySubject[q.SubjectID] = append(bySubject[q.SubjectID], q)
	}
	for subject, qs := range bySubject {
		bySubject[subject] = shuffleQuestions(qs, rnd)
	}

	selected := make([]domain.Question, 0, targetCount)
	for _, w := range weights {
		quota := int(math.Floor(float64(targetCount) * w.Fraction))
		sub := bySubject[w.Subject]
		take := quota
		if take > len(sub) {
			take = len(sub)
		}
		selected = append(selected, sub[:take]...)
		bySubject[w.Subject] = sub[take:]
	}

	// Backfill any shortfall from the pooled leftovers, weighted subjects
	// and unweighted ones alike.
	if remaining := targetCount - len(selected); remaining > 0 {
		var leftovers []domain.Question
		for _, sub := range bySubject {
			leftovers = append(leftovers, sub...)
		}
		leftovers = shuffleQuestions(leftovers, rnd)
		if remaining > len(leftovers) {
			remaining = len(leftovers)
		}
		selected = append(selected, leftovers[:remaining]...)
	}

	// Floor quotas plus exact backfill can only overshoot through a bug;
	// truncate so the invariant holds regardless.
	if len(selected) > targetCount {
		selected = selected[:targetCount]
	}

	selected = shuffleQuestions(selected, rnd)

	if len(selected) < targetCount {
		return selected, &domain.InventoryError{Requested: targetCount, Available: len(selected)}
	}
	return selected, nil
}
