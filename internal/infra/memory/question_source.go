package memory

import (
	"context"

	"timed-quiz-service/internal/domain"
)

// StaticQuestionSource serves a fixed pool (useful for tests/demos).
type StaticQuestionSource struct {
	questions []domain.Question
	err       error
}

func NewStaticQuestionSource(questions []domain.Question) *StaticQuestionSource {
	return &StaticQuestionSource{questions: questions}
}

// NewFailingQuestionSource always fails with err.
func NewFailingQuestionSource(err error) *StaticQuestionSource {
	return &StaticQuestionSource{err: err}
}

func (s *StaticQuestionSource) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.Question, len(s.questions))
	copy(out, s.questions)
	return out, nil
}
