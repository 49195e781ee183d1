package app

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"timed-quiz-service/internal/domain"
)

// Presenter renders session state. Implementations must not call back into
// the Session synchronously. A detail with Number 0 is the placeholder hint
// shown before any outcome is selected.
type Presenter interface {
	ShowView(view domain.View)
	RenderMeta(text string)
	RenderProgress(current, total int)
	RenderQuestionText(text string)
	RenderCountdownTicks(total, elapsed int)
	RenderResultSummary(correct int, outcomes []domain.Outcome)
	RenderOutcomeDetail(detail domain.OutcomeDetail)
	SetStartEnabled(enabled bool)
}

// AudioPlayer plays cues.
type AudioPlayer interface {
	PlayOnce(cue domain.Cue)
	PlayLoop(cue domain.Cue, rate float64)
	Stop(cue domain.Cue)
}

// Controls delivers player input to registered handlers.
type Controls interface {
	OnAnswerChosen(fn func(choice bool))
	OnStartRequested(fn func())
	OnQuitRequested(fn func())
	OnRestartRequested(fn func())
	OnOutcomeSelected(fn func(index int))
}

// Session runs one player's quiz: it owns the State, feeds events through
// Transition and performs the resulting effects. All events, whether from
// timers or input, are serialised by mu.
type Session struct {
	id        string
	createdAt time.Time
	settings  Settings
	store     *QuestionStore
	presenter Presenter
	audio     AudioPlayer
	scheduler Scheduler
	rnd       *rand.Rand
	log       logrus.FieldLogger
	onStart   func(s *Session)
	onFinish  func(id string, results *Results)

	mu      sync.Mutex
	state   State
	gen     uint64
	cancels []func()
	results *Results
	closed  bool
	stop    chan struct{}
}

// SessionDeps are the collaborators of a Session.
type SessionDeps struct {
	Settings  Settings
	Store     *QuestionStore
	Presenter Presenter
	Audio     AudioPlayer
	Scheduler Scheduler
	Rand      *rand.Rand
	Logger    logrus.FieldLogger
	Now       func() time.Time
	// OnStart runs after every successful start, under the session lock.
	OnStart  func(s *Session)
	OnFinish func(id string, results *Results)
}

func NewSession(id string, deps SessionDeps) *Session {
	if deps.Scheduler == nil {
		deps.Scheduler = RealScheduler{}
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	return &Session{
		id:        id,
		createdAt: deps.Now(),
		settings:  deps.Settings,
		store:     deps.Store,
		presenter: deps.Presenter,
		audio:     deps.Audio,
		scheduler: deps.Scheduler,
		rnd:       deps.Rand,
		log:       deps.Logger.WithField("session", id),
		onStart:   deps.OnStart,
		onFinish:  deps.OnFinish,
		state:     NewState(),
		stop:      make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Bind registers the session's input handlers on c and renders the menu. If
// the pool is still loading, the start control is enabled once it arrives.
func (s *Session) Bind(c Controls) {
	c.OnAnswerChosen(s.Answer)
	c.OnStartRequested(func() { _ = s.Start() })
	c.OnQuitRequested(s.Quit)
	c.OnRestartRequested(func() { _ = s.Restart() })
	c.OnOutcomeSelected(func(i int) { _ = s.SelectOutcome(i) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.presenter.ShowView(domain.ViewMenu)
	s.presenter.SetStartEnabled(s.store.IsReady())
	s.renderPoolStatusLocked()
	if !s.store.IsReady() && !s.store.Failed() {
		go s.awaitPool()
	}
}

func (s *Session) awaitPool() {
	select {
	case <-s.store.Done():
	case <-s.stop:
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.presenter.SetStartEnabled(s.store.IsReady())
	s.renderPoolStatusLocked()
}

func (s *Session) renderPoolStatusLocked() {
	if s.store.Failed() {
		s.presenter.RenderQuestionText(s.settings.Labels.LoadFailed)
	}
}

// Start builds a fresh sequence and begins play, discarding any run in
// progress. It fails with domain.ErrNotReady before the pool is loaded and
// with domain.ErrEmptySequence when no genre has questions; in both cases the
// player stays on the menu with a diagnostic.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

// Restart stops the current run and starts a new one.
func (s *Session) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimersLocked()
	s.audio.Stop(domain.CueCountdown)
	s.audio.Stop(domain.CueFailure)
	s.state = NewState()
	return s.startLocked()
}

func (s *Session) startLocked() error {
	if s.closed {
		return domain.ErrSessionNotFound
	}
	if !s.store.IsReady() {
		s.presenter.RenderQuestionText(s.settings.Labels.WaitForLoad)
		return domain.ErrNotReady
	}

	seq, total, err := BuildSequence(s.store.Pool(), s.settings.Genres, s.settings.PicksPerGenre, s.rnd)
	if err != nil {
		s.log.WithError(err).Warn("quiz not started")
		s.presenter.RenderQuestionText(s.settings.Labels.EmptySequence)
		s.presenter.ShowView(domain.ViewMenu)
		return err
	}

	s.results = nil
	s.log.WithFields(logrus.Fields{"items": len(seq), "questions": total}).Info("quiz started")
	s.dispatchLocked(EventStart{Sequence: seq, Total: total})
	if s.onStart != nil {
		s.onStart(s)
	}
	return nil
}

// Answer submits a choice for the current question. It is a no-op while
// input is locked.
func (s *Session) Answer(choice bool) {
	s.dispatch(EventAnswer{Choice: choice})
}

// Timeout forces the countdown to expire. It is a no-op while input is locked.
func (s *Session) Timeout() {
	s.dispatch(EventTimeout{})
}

// Quit abandons the run and returns to the menu.
func (s *Session) Quit() {
	s.dispatch(EventQuit{})
}

// SelectOutcome renders the detail of the i-th outcome of the last finished run.
func (s *Session) SelectOutcome(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.results == nil {
		return domain.ErrOutcomeNotFound
	}
	detail, err := s.results.Detail(i)
	if err != nil {
		return err
	}
	s.presenter.RenderOutcomeDetail(detail)
	return nil
}

// Results returns the summary of the last finished run.
func (s *Session) Results() (*Results, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results, s.results != nil
}

// State returns a snapshot of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close cancels pending timers and silences the loop; later events are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cancelTimersLocked()
	s.audio.Stop(domain.CueCountdown)
	s.audio.Stop(domain.CueFailure)
	s.closed = true
	close(s.stop)
}

func (s *Session) dispatch(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.dispatchLocked(ev)
}

// fire delivers a timer event unless the timer was cancelled in the meantime.
func (s *Session) fire(gen uint64, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		return
	}
	s.dispatchLocked(ev)
}

func (s *Session) dispatchLocked(ev Event) {
	prev := s.state.Phase
	next, effects := Transition(s.settings, s.state, ev)
	s.state = next
	if next.Phase != prev {
		s.log.WithFields(logrus.Fields{
			"event": ev.eventName(),
			"from":  prev.String(),
			"to":    next.Phase.String(),
			"index": next.Index,
		}).Debug("transition")
	}
	for _, fx := range effects {
		s.applyLocked(fx)
	}
}

func (s *Session) applyLocked(fx Effect) {
	switch e := fx.(type) {
	case ShowView:
		s.presenter.ShowView(e.View)
	case RenderMeta:
		s.presenter.RenderMeta(e.Text)
	case RenderProgress:
		s.presenter.RenderProgress(e.Current, e.Total)
	case RenderQuestionText:
		s.presenter.RenderQuestionText(e.Text)
	case RenderCountdownTicks:
		s.presenter.RenderCountdownTicks(e.Total, e.Elapsed)
	case RenderResultSummary:
		s.presenter.RenderResultSummary(e.Correct, e.Outcomes)
	case PlayOnce:
		s.audio.PlayOnce(e.Cue)
	case PlayLoop:
		s.audio.PlayLoop(e.Cue, e.Rate)
	case StopCue:
		s.audio.Stop(e.Cue)
	case Schedule:
		gen, ev := s.gen, e.Event
		s.cancels = append(s.cancels, s.scheduler.After(e.After, func() { s.fire(gen, ev) }))
	case StartTicker:
		gen := s.gen
		s.cancels = append(s.cancels, s.scheduler.Every(e.Every, func() { s.fire(gen, EventTick{}) }))
	case CancelTimers:
		s.cancelTimersLocked()
	case Finish:
		s.results = NewResults(e.Results, s.settings.Labels)
		s.presenter.RenderOutcomeDetail(domain.OutcomeDetail{
			Explanation: s.settings.Labels.ResultHint,
			Markup:      EscapeMarkup(s.settings.Labels.ResultHint),
		})
		s.log.WithFields(logrus.Fields{
			"correct": e.Results.Correct,
			"total":   len(e.Results.Outcomes),
		}).Info("quiz finished")
		if s.onFinish != nil {
			s.onFinish(s.id, s.results)
		}
	}
}

// cancelTimersLocked stops every pending timer and invalidates callbacks
// already in flight.
func (s *Session) cancelTimersLocked() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
	s.gen++
}
