package app

import (
	"fmt"
	"time"

	"timed-quiz-service/internal/domain"
)

// Phase is the position of a session in the quiz state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseNotice
	PhaseQuestionReveal
	PhaseCountdown
	PhaseAnswered
	PhaseTimedOut
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseNotice:
		return "notice"
	case PhaseQuestionReveal:
		return "question-reveal"
	case PhaseCountdown:
		return "countdown"
	case PhaseAnswered:
		return "answered"
	case PhaseTimedOut:
		return "timed-out"
	case PhaseFinished:
		return "finished"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// State is everything one quiz run knows. Transition never mutates the
// State it is given.
//
// Locked is set for every asynchronous step (notice, question reveal, answer
// and timeout delays) and cleared only when the countdown of a revealed
// question starts. Remaining is reset to the countdown length exactly when a
// question is revealed.
type State struct {
	Phase          Phase
	Sequence       []domain.SequenceItem
	Total          int
	Index          int
	Answered       int
	Remaining      int
	Locked         bool
	Current        *domain.SequenceItem
	QuestionNumber int
	// LoopRate is the playback rate of the countdown loop, 0 when silent.
	LoopRate float64
	Results  domain.ResultState
}

// NewState returns an idle, locked state with no sequence.
func NewState() State {
	return State{Phase: PhaseIdle, Locked: true}
}

// Event drives the state machine.
type Event interface {
	eventName() string
}

type (
	// EventStart begins a run over a freshly built sequence.
	EventStart struct {
		Sequence []domain.SequenceItem
		Total    int
	}
	// EventAdvance moves the cursor past the current item once its delay elapsed.
	EventAdvance struct{}
	// EventReveal shows the text of the current question and starts its countdown.
	EventReveal struct{}
	// EventTick is one countdown interval.
	EventTick struct{}
	// EventAnswer is a player's true/false choice.
	EventAnswer struct{ Choice bool }
	// EventTimeout fires when the countdown reaches zero.
	EventTimeout struct{}
	// EventQuit abandons the run and returns to the menu.
	EventQuit struct{}
)

func (EventStart) eventName() string   { return "start" }
func (EventAdvance) eventName() string { return "advance" }
func (EventReveal) eventName() string  { return "reveal" }
func (EventTick) eventName() string    { return "tick" }
func (EventAnswer) eventName() string  { return "answer" }
func (EventTimeout) eventName() string { return "timeout" }
func (EventQuit) eventName() string    { return "quit" }

// Effect is a side effect requested by a transition. Effects are executed in
// order by the Session.
type Effect interface {
	isEffect()
}

type (
	ShowView             struct{ View domain.View }
	RenderMeta           struct{ Text string }
	RenderProgress       struct{ Current, Total int }
	RenderQuestionText   struct{ Text string }
	RenderCountdownTicks struct{ Total, Elapsed int }
	RenderResultSummary  struct {
		Correct  int
		Outcomes []domain.Outcome
	}
	PlayOnce struct{ Cue domain.Cue }
	PlayLoop struct {
		Cue  domain.Cue
		Rate float64
	}
	StopCue struct{ Cue domain.Cue }
	// Schedule delivers Event once After has elapsed.
	Schedule struct {
		After time.Duration
		Event Event
	}
	// StartTicker delivers EventTick every interval until timers are cancelled.
	StartTicker struct{ Every time.Duration }
	// CancelTimers drops every pending Schedule and ticker.
	CancelTimers struct{}
	// Finish hands the final results to the aggregator.
	Finish struct{ Results domain.ResultState }
)

func (ShowView) isEffect()             {}
func (RenderMeta) isEffect()           {}
func (RenderProgress) isEffect()       {}
func (RenderQuestionText) isEffect()   {}
func (RenderCountdownTicks) isEffect() {}
func (RenderResultSummary) isEffect()  {}
func (PlayOnce) isEffect()             {}
func (PlayLoop) isEffect()             {}
func (StopCue) isEffect()              {}
func (Schedule) isEffect()             {}
func (StartTicker) isEffect()          {}
func (CancelTimers) isEffect()         {}
func (Finish) isEffect()               {}

// Transition applies ev to s and returns the next state along with the
// effects to perform. Events that do not apply to the current phase, and any
// input arriving while locked, leave the state unchanged and yield no effects.
func Transition(cfg Settings, s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case EventStart:
		next := State{
			Phase:    PhaseIdle,
			Sequence: e.Sequence,
			Total:    e.Total,
			Locked:   true,
			Results:  domain.ResultState{Outcomes: []domain.Outcome{}},
		}
		fx := []Effect{CancelTimers{}, StopCue{domain.CueCountdown}, StopCue{domain.CueFailure}, ShowView{domain.ViewQuiz}}
		return enter(cfg, next, fx)
	case EventAdvance:
		switch s.Phase {
		case PhaseNotice, PhaseAnswered, PhaseTimedOut:
			s.Index++
			return enter(cfg, s, nil)
		}
		return s, nil
	case EventReveal:
		if s.Phase != PhaseQuestionReveal {
			return s, nil
		}
		return reveal(cfg, s)
	case EventTick:
		if s.Phase != PhaseCountdown {
			return s, nil
		}
		return tick(cfg, s)
	case EventAnswer:
		return answer(cfg, s, e.Choice)
	case EventTimeout:
		return timeout(cfg, s, nil)
	case EventQuit:
		return NewState(), []Effect{
			CancelTimers{},
			StopCue{domain.CueCountdown},
			StopCue{domain.CueFailure},
			ShowView{domain.ViewMenu},
		}
	}
	return s, nil
}

func enter(cfg Settings, s State, fx []Effect) (State, []Effect) {
	if s.Index >= len(s.Sequence) {
		return finish(cfg, s, fx)
	}
	item := s.Sequence[s.Index]
	if item.Kind == domain.ItemNotice {
		return notice(cfg, s, item, fx)
	}
	return question(cfg, s, item, fx)
}

func notice(cfg Settings, s State, item domain.SequenceItem, fx []Effect) (State, []Effect) {
	s.Phase = PhaseNotice
	s.Locked = true
	s.Current = nil
	s.LoopRate = 0
	fx = append(fx,
		CancelTimers{},
		StopCue{domain.CueCountdown},
		StopCue{domain.CueFailure},
		RenderCountdownTicks{Total: 0, Elapsed: 0},
		RenderMeta{fmt.Sprintf(cfg.Labels.NoticeMeta, item.Genre)},
		RenderProgress{Current: s.Answered, Total: s.Total},
		RenderQuestionText{fmt.Sprintf(cfg.Labels.NoticeText, item.Genre)},
		Schedule{After: cfg.NoticeDelay, Event: EventAdvance{}},
	)
	return s, fx
}

func question(cfg Settings, s State, item domain.SequenceItem, fx []Effect) (State, []Effect) {
	s.Phase = PhaseQuestionReveal
	s.Locked = true
	s.Current = &item
	s.QuestionNumber = s.Answered + 1
	s.LoopRate = 0
	label := cfg.Labels.QuestionLabel(s.QuestionNumber)
	fx = append(fx,
		RenderMeta{label + " " + item.Question.Genre},
		RenderProgress{Current: s.QuestionNumber, Total: s.Total},
		StopCue{domain.CueCountdown},
		StopCue{domain.CueFailure},
		RenderQuestionText{label},
		PlayOnce{domain.CueQuestionStart},
		RenderCountdownTicks{Total: cfg.CountdownTicks, Elapsed: 0},
		Schedule{After: cfg.RevealDelay, Event: EventReveal{}},
	)
	return s, fx
}

func reveal(cfg Settings, s State) (State, []Effect) {
	s.Phase = PhaseCountdown
	s.Remaining = cfg.CountdownTicks
	s.LoopRate = loopRate(cfg, s.Remaining)
	s.Locked = false
	return s, []Effect{
		RenderQuestionText{s.Current.Question.Question},
		CancelTimers{},
		StopCue{domain.CueCountdown},
		RenderCountdownTicks{Total: cfg.CountdownTicks, Elapsed: 0},
		PlayLoop{Cue: domain.CueCountdown, Rate: s.LoopRate},
		StartTicker{Every: cfg.TickInterval},
	}
}

func tick(cfg Settings, s State) (State, []Effect) {
	s.Remaining--
	fx := []Effect{RenderCountdownTicks{Total: cfg.CountdownTicks, Elapsed: cfg.CountdownTicks - s.Remaining}}
	if s.Remaining <= 0 {
		return timeout(cfg, s, fx)
	}
	// The loop is only restarted when its rate has to change.
	if rate := loopRate(cfg, s.Remaining); rate != s.LoopRate {
		s.LoopRate = rate
		fx = append(fx, StopCue{domain.CueCountdown}, PlayLoop{Cue: domain.CueCountdown, Rate: rate})
	}
	return s, fx
}

func answer(cfg Settings, s State, choice bool) (State, []Effect) {
	if s.Locked || s.Phase != PhaseCountdown || s.Current == nil {
		return s, nil
	}
	q := s.Current.Question
	correct := choice == q.Answer.IsTrue()

	s.Locked = true
	s.Phase = PhaseAnswered
	s.LoopRate = 0
	s = record(s, q, correct)
	return s, []Effect{
		CancelTimers{},
		StopCue{domain.CueCountdown},
		Schedule{After: cfg.AnswerDelay, Event: EventAdvance{}},
	}
}

func timeout(cfg Settings, s State, fx []Effect) (State, []Effect) {
	if s.Locked || s.Phase != PhaseCountdown || s.Current == nil {
		return s, fx
	}
	s.Locked = true
	s.Phase = PhaseTimedOut
	s.LoopRate = 0
	s = record(s, s.Current.Question, false)
	fx = append(fx,
		CancelTimers{},
		StopCue{domain.CueCountdown},
		RenderQuestionText{cfg.Labels.TimeOver},
		PlayOnce{domain.CueFailure},
		Schedule{After: cfg.TimeoutDelay, Event: EventAdvance{}},
	)
	return s, fx
}

// record appends exactly one outcome for the current question slot.
func record(s State, q domain.Question, correct bool) State {
	if correct {
		s.Results.Correct++
	}
	outcomes := s.Results.Outcomes[:len(s.Results.Outcomes):len(s.Results.Outcomes)]
	s.Results.Outcomes = append(outcomes, domain.Outcome{
		Number:      s.QuestionNumber,
		Summary:     SummarizeQuestion(q.Question, SummaryLength),
		Explanation: q.Explanation,
		Correct:     correct,
	})
	s.Answered++
	return s
}

func finish(cfg Settings, s State, fx []Effect) (State, []Effect) {
	s.Phase = PhaseFinished
	s.Locked = true
	s.Current = nil
	s.LoopRate = 0

	cue := domain.CueLevelDown
	if s.Results.Correct >= cfg.PassThreshold {
		cue = domain.CueLevelUp
	}
	fx = append(fx,
		CancelTimers{},
		ShowView{domain.ViewResult},
		StopCue{domain.CueCountdown},
		StopCue{domain.CueFailure},
		StopCue{domain.CueLevelUp},
		StopCue{domain.CueLevelDown},
		PlayOnce{cue},
		RenderResultSummary{Correct: s.Results.Correct, Outcomes: s.Results.Outcomes},
		Finish{Results: s.Results},
	)
	return s, fx
}

func loopRate(cfg Settings, remaining int) float64 {
	if remaining > cfg.FastCueAt {
		return 1
	}
	return cfg.FastCueRate
}
