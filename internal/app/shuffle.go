package app

import (
	"math/rand"

	"medprep-exam-service/internal/domain"
)

// shuffleStrings returns a uniformly-random permutation of items without
// modifying the input slice.
func shuffleStrings(items []string, rnd *rand.Rand) []string {
	out := make([]string, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// shuffleQuestions returns a uniformly-random permutation of questions
// without modifying the input slice.
func shuffleQuestions(questions []domain.Question, rnd *rand.Rand) []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	for i := len(out) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ShuffleOptions builds the session-scoped view of a question with its
// options re-ordered. The source question is left untouched. If the stored
// correct-answer text matches none of the options the question bank is
// inconsistent and ErrCorrectOptionMissing is returned; callers must skip
// the question rather than coerce the index.
func ShuffleOptions(q domain.Question, rnd *rand.Rand) (domain.ShuffledQuestion, error) {
	shuffled := shuffleStrings(q.Options, rnd)

	correctIndex := -1
	for i, opt := range shuffled {
		if opt == q.CorrectOption {
			correctIndex = i
			break
		}
	}
	if correctIndex == -1 {
		return domain.ShuffledQuestion{}, domain.ErrCorrectOptionMissing
	}

	return domain.ShuffledQuestion{
		ID:              q.ID,
		Text:            q.Text,
		ShuffledOptions: shuffled,
		CorrectIndex:    correctIndex,
		Explanation:     q.Explanation,
		SubjectID:       q.SubjectID,
		ChapterID:       q.ChapterID,
	}, nil
}
