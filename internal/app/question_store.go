package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"timed-quiz-service/internal/domain"
)

// QuestionSource fetches the raw question pool (static file, HTTP, Postgres, cache).
type QuestionSource interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}

// QuestionStore holds the pool loaded once at startup.
type QuestionStore struct {
	source QuestionSource
	log    logrus.FieldLogger

	once  sync.Once
	done  chan struct{}
	mu    sync.RWMutex
	pool  []domain.Question
	err   error
	ready bool
}

func NewQuestionStore(source QuestionSource, log logrus.FieldLogger) *QuestionStore {
	return &QuestionStore{source: source, log: log, done: make(chan struct{})}
}

// Load fetches the pool on the first call and memoises the result, failures
// included. There is no retry.
func (s *QuestionStore) Load(ctx context.Context) ([]domain.Question, error) {
	s.once.Do(func() {
		defer close(s.done)
		pool, err := s.source.LoadQuestions(ctx)
		if err == nil && len(pool) == 0 {
			err = fmt.Errorf("empty question list")
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.err = fmt.Errorf("%w: %v", domain.ErrLoad, err)
			s.log.WithError(err).Error("question pool load failed")
			return
		}
		s.pool = pool
		s.ready = true
		s.log.WithField("questions", len(pool)).Info("question pool loaded")
	})

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool, s.err
}

// Done is closed once the single load attempt has finished, either way.
func (s *QuestionStore) Done() <-chan struct{} {
	return s.done
}

// IsReady reports whether a non-empty pool has been loaded.
func (s *QuestionStore) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Failed reports whether the single load attempt has failed.
func (s *QuestionStore) Failed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err != nil
}

// Pool returns the loaded questions, nil before a successful load.
func (s *QuestionStore) Pool() []domain.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool
}
