package app

import (
	"math/rand"

	"timed-quiz-service/internal/domain"
)

// Shuffle returns a uniformly random permutation of items (Fisher–Yates).
// The input slice is left untouched.
func Shuffle[T any](items []T, rnd *rand.Rand) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// BuildSequence lays out one session: for every genre, in the given order, a
// notice followed by up to picksPerGenre randomly drawn questions. Genres with
// no questions are skipped entirely. The returned total is the number of
// question slots actually emitted.
func BuildSequence(pool []domain.Question, genres []string, picksPerGenre int, rnd *rand.Rand) ([]domain.SequenceItem, int, error) {
	var (
		seq   []domain.SequenceItem
		total int
	)
	for _, genre := range genres {
		var matches []domain.Question
		for _, q := range pool {
			if q.Genre == genre {
				matches = append(matches, q)
			}
		}
		if len(matches) == 0 {
			continue
		}

		shuffled := Shuffle(matches, rnd)
		picks := shuffled
		if len(picks) > picksPerGenre {
			picks = picks[:picksPerGenre]
		}
		if len(picks) == 0 {
			continue
		}

		seq = append(seq, domain.Notice(genre))
		for i, q := range picks {
			seq = append(seq, domain.QuestionSlot(genre, q, i+1))
		}
		total += len(picks)
	}
	if total == 0 {
		return nil, 0, domain.ErrEmptySequence
	}
	return seq, total, nil
}

// CountQuestions returns the number of question slots in seq.
func CountQuestions(seq []domain.SequenceItem) int {
	n := 0
	for _, item := range seq {
		if item.Kind == domain.ItemQuestion {
			n++
		}
	}
	return n
}
