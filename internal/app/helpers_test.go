package app_test

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
	"timed-quiz-service/internal/logging"
)

// recorder captures presenter, audio and control traffic.
type recorder struct {
	mu        sync.Mutex
	calls     []string
	views     []domain.View
	texts     []string
	cues      []string
	summaries []domain.ResultState
	details   []domain.OutcomeDetail
	ready     []bool

	answer        func(bool)
	start         func()
	quit          func()
	restart       func()
	selectOutcome func(int)
}

func (r *recorder) log(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) ShowView(view domain.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, view)
	r.log("view %s", view)
}

func (r *recorder) RenderMeta(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log("meta %s", text)
}

func (r *recorder) RenderProgress(current, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log("progress %d/%d", current, total)
}

func (r *recorder) RenderQuestionText(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	r.log("text %s", text)
}

func (r *recorder) RenderCountdownTicks(total, elapsed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log("ticks %d/%d", elapsed, total)
}

func (r *recorder) RenderResultSummary(correct int, outcomes []domain.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, domain.ResultState{Correct: correct, Outcomes: outcomes})
	r.log("summary %d", correct)
}

func (r *recorder) RenderOutcomeDetail(detail domain.OutcomeDetail) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.details = append(r.details, detail)
}

func (r *recorder) SetStartEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = append(r.ready, enabled)
}

func (r *recorder) PlayOnce(cue domain.Cue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, "play "+string(cue))
}

func (r *recorder) PlayLoop(cue domain.Cue, rate float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, fmt.Sprintf("loop %s x%g", cue, rate))
}

func (r *recorder) Stop(cue domain.Cue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, "stop "+string(cue))
}

func (r *recorder) OnAnswerChosen(fn func(bool))   { r.answer = fn }
func (r *recorder) OnStartRequested(fn func())     { r.start = fn }
func (r *recorder) OnQuitRequested(fn func())      { r.quit = fn }
func (r *recorder) OnRestartRequested(fn func())   { r.restart = fn }
func (r *recorder) OnOutcomeSelected(fn func(int)) { r.selectOutcome = fn }

func (r *recorder) lastText() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.texts) == 0 {
		return ""
	}
	return r.texts[len(r.texts)-1]
}

func (r *recorder) lastView() domain.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.views) == 0 {
		return ""
	}
	return r.views[len(r.views)-1]
}

func (r *recorder) countCue(entry string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.cues {
		if c == entry {
			n++
		}
	}
	return n
}

// samplePool has three questions for each default genre; answers alternate.
func samplePool() []domain.Question {
	var pool []domain.Question
	for _, genre := range app.DefaultGenres {
		for i := 1; i <= 3; i++ {
			answer := domain.Answer("true")
			if i%2 == 0 {
				answer = "false"
			}
			pool = append(pool, domain.Question{
				Genre:       genre,
				Question:    fmt.Sprintf("%s question %d", genre, i),
				Answer:      answer,
				Explanation: fmt.Sprintf("%s explanation %d", genre, i),
			})
		}
	}
	return pool
}

func loadedStore(t *testing.T, pool []domain.Question) *app.QuestionStore {
	t.Helper()
	store := app.NewQuestionStore(memory.NewStaticQuestionSource(pool), logging.Discard())
	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return store
}

type harness struct {
	session  *app.Session
	sched    *app.ManualScheduler
	rec      *recorder
	settings app.Settings
}

func newHarness(t *testing.T, store *app.QuestionStore) *harness {
	t.Helper()
	settings := app.DefaultSettings()
	sched := app.NewManualScheduler()
	rec := &recorder{}
	session := app.NewSession("s1", app.SessionDeps{
		Settings:  settings,
		Store:     store,
		Presenter: rec,
		Audio:     rec,
		Scheduler: sched,
		Rand:      rand.New(rand.NewSource(7)),
		Logger:    logging.Discard(),
	})
	session.Bind(rec)
	return &harness{session: session, sched: sched, rec: rec, settings: settings}
}

// playThrough drives the session to the result screen, answering each
// question with choose. A nil choose lets every countdown run out.
func (h *harness) playThrough(t *testing.T, choose func(domain.Question) bool) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		st := h.session.State()
		switch st.Phase {
		case app.PhaseNotice:
			h.sched.Advance(h.settings.NoticeDelay)
		case app.PhaseQuestionReveal:
			h.sched.Advance(h.settings.RevealDelay)
		case app.PhaseCountdown:
			if choose == nil {
				h.sched.Advance(h.settings.TickInterval)
				continue
			}
			h.session.Answer(choose(st.Current.Question))
		case app.PhaseAnswered:
			h.sched.Advance(h.settings.AnswerDelay)
		case app.PhaseTimedOut:
			h.sched.Advance(h.settings.TimeoutDelay)
		case app.PhaseFinished:
			return
		default:
			t.Fatalf("unexpected phase %s", st.Phase)
		}
	}
	t.Fatalf("session did not finish")
}

func answerCorrectly(q domain.Question) bool { return q.Answer.IsTrue() }

func answerWrongly(q domain.Question) bool { return !q.Answer.IsTrue() }
