package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"timed-quiz-service/internal/domain"
)

// Adapter turns presenter and audio calls into Bubble Tea messages and holds
// the input handlers registered by the session.
type Adapter struct {
	msgs chan tea.Msg
	done chan struct{}
	once sync.Once

	mu sync.Mutex
	h  handlers
}

type handlers struct {
	answer        func(bool)
	start         func()
	quit          func()
	restart       func()
	selectOutcome func(int)
}

func NewAdapter() *Adapter {
	return &Adapter{
		msgs: make(chan tea.Msg, 256),
		done: make(chan struct{}),
		h: handlers{
			answer:        func(bool) {},
			start:         func() {},
			quit:          func() {},
			restart:       func() {},
			selectOutcome: func(int) {},
		},
	}
}

// Messages is the stream consumed by the Model.
func (a *Adapter) Messages() <-chan tea.Msg { return a.msgs }

// Close stops delivery; later presenter calls are dropped.
func (a *Adapter) Close() {
	a.once.Do(func() { close(a.done) })
}

func (a *Adapter) push(msg tea.Msg) {
	select {
	case a.msgs <- msg:
	case <-a.done:
	}
}

func (a *Adapter) handlers() handlers {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.h
}

type (
	viewMsg      struct{ view domain.View }
	metaMsg      struct{ text string }
	progressMsg  struct{ current, total int }
	questionMsg  struct{ text string }
	countdownMsg struct{ total, elapsed int }
	summaryMsg   struct {
		correct  int
		outcomes []domain.Outcome
	}
	detailMsg struct{ detail domain.OutcomeDetail }
	readyMsg  struct{ enabled bool }
	audioMsg  struct {
		action string
		cue    domain.Cue
		rate   float64
	}
)

func (a *Adapter) ShowView(view domain.View)      { a.push(viewMsg{view}) }
func (a *Adapter) RenderMeta(text string)         { a.push(metaMsg{text}) }
func (a *Adapter) RenderQuestionText(text string) { a.push(questionMsg{text}) }
func (a *Adapter) SetStartEnabled(enabled bool)   { a.push(readyMsg{enabled}) }

func (a *Adapter) RenderProgress(current, total int) {
	a.push(progressMsg{current: current, total: total})
}

func (a *Adapter) RenderCountdownTicks(total, elapsed int) {
	a.push(countdownMsg{total: total, elapsed: elapsed})
}

func (a *Adapter) RenderResultSummary(correct int, outcomes []domain.Outcome) {
	a.push(summaryMsg{correct: correct, outcomes: outcomes})
}

func (a *Adapter) RenderOutcomeDetail(detail domain.OutcomeDetail) {
	a.push(detailMsg{detail})
}

func (a *Adapter) PlayOnce(cue domain.Cue) { a.push(audioMsg{action: "play", cue: cue}) }
func (a *Adapter) PlayLoop(cue domain.Cue, rate float64) {
	a.push(audioMsg{action: "loop", cue: cue, rate: rate})
}
func (a *Adapter) Stop(cue domain.Cue) { a.push(audioMsg{action: "stop", cue: cue}) }

func (a *Adapter) OnAnswerChosen(fn func(bool)) {
	a.mu.Lock()
	a.h.answer = fn
	a.mu.Unlock()
}

func (a *Adapter) OnStartRequested(fn func()) {
	a.mu.Lock()
	a.h.start = fn
	a.mu.Unlock()
}

func (a *Adapter) OnQuitRequested(fn func()) {
	a.mu.Lock()
	a.h.quit = fn
	a.mu.Unlock()
}

func (a *Adapter) OnRestartRequested(fn func()) {
	a.mu.Lock()
	a.h.restart = fn
	a.mu.Unlock()
}

func (a *Adapter) OnOutcomeSelected(fn func(int)) {
	a.mu.Lock()
	a.h.selectOutcome = fn
	a.mu.Unlock()
}
