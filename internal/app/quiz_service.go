package app

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"timed-quiz-service/internal/domain"
)

// SessionRepository abstracts how open sessions are tracked (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
}

// sessionToucher is implemented by repositories that keep an expiring record
// of open sessions.
type sessionToucher interface {
	Touch(session *Session)
}

// QuizService opens and closes player sessions over a shared question store.
type QuizService struct {
	sessions  SessionRepository
	store     *QuestionStore
	settings  Settings
	scheduler Scheduler
	log       logrus.FieldLogger

	// mu guards the factories and makes replace/close of one id atomic.
	mu       sync.Mutex
	newRand  func() *rand.Rand
	onFinish func(id string, results *Results)
}

func NewQuizService(sessions SessionRepository, store *QuestionStore, settings Settings, scheduler Scheduler, log logrus.FieldLogger) *QuizService {
	if scheduler == nil {
		scheduler = RealScheduler{}
	}
	return &QuizService{
		sessions:  sessions,
		store:     store,
		settings:  settings,
		scheduler: scheduler,
		log:       log,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// SetRandSource replaces the per-session random source factory (tests use a fixed seed).
func (s *QuizService) SetRandSource(fn func() *rand.Rand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newRand = fn
}

// OnFinish registers a hook called with the results of every finished run.
func (s *QuizService) OnFinish(fn func(id string, results *Results)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFinish = fn
}

func (s *QuizService) Store() *QuestionStore { return s.store }

func (s *QuizService) Settings() Settings { return s.settings }

// Open creates a session for id, replacing and closing any previous session
// with the same id. An empty id gets a random one.
func (s *QuizService) Open(id string, presenter Presenter, audio AudioPlayer) *Session {
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.sessions.Get(id); ok {
		old.Close()
		s.sessions.Delete(id)
	}

	var onStart func(*Session)
	if toucher, ok := s.sessions.(sessionToucher); ok {
		onStart = toucher.Touch
	}
	session := NewSession(id, SessionDeps{
		Settings:  s.settings,
		Store:     s.store,
		Presenter: presenter,
		Audio:     audio,
		Scheduler: s.scheduler,
		Rand:      s.newRand(),
		Logger:    s.log,
		OnStart:   onStart,
		OnFinish:  s.onFinish,
	})
	s.sessions.Put(session)
	s.log.WithField("session", id).Debug("session opened")
	return session
}

// Session looks up an open session.
func (s *QuizService) Session(id string) (*Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Close stops whatever session is open under id and forgets it.
func (s *QuizService) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions.Get(id)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(id)
	s.log.WithField("session", id).Debug("session closed")
}

// CloseSession stops session and forgets it, unless its id has since been
// taken over by a newer session, which is left untouched.
func (s *QuizService) CloseSession(session *Session) {
	session.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions.Get(session.ID()); ok && current == session {
		s.sessions.Delete(session.ID())
		s.log.WithField("session", session.ID()).Debug("session closed")
	}
}
