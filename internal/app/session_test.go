package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
	"timed-quiz-service/internal/logging"
)

func TestSessionPlaysFullRun(t *testing.T) {
	h := newHarness(t, loadedStore(t, samplePool()))
	if got := h.rec.lastView(); got != domain.ViewMenu {
		t.Fatalf("expected menu after bind, got %s", got)
	}
	if len(h.rec.ready) != 1 || !h.rec.ready[0] {
		t.Fatalf("expected start enabled, got %v", h.rec.ready)
	}

	if err := h.session.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	h.playThrough(t, answerCorrectly)

	results, ok := h.session.Results()
	if !ok {
		t.Fatalf("expected results")
	}
	outcomes := results.Outcomes()
	if len(outcomes) != 10 || results.CorrectCount() != 10 {
		t.Fatalf("expected 10/10, got %d/%d", results.CorrectCount(), len(outcomes))
	}
	for i, o := range outcomes {
		if o.Number != i+1 {
			t.Fatalf("outcome %d has number %d", i, o.Number)
		}
	}
	if h.rec.lastView() != domain.ViewResult {
		t.Fatalf("expected result view, got %s", h.rec.lastView())
	}
	if h.rec.countCue("play level-up") != 1 || h.rec.countCue("play level-down") != 0 {
		t.Fatalf("expected a single level-up cue, got %v", h.rec.cues)
	}
	if h.sched.Pending() != 0 {
		t.Fatalf("expected no timers after finish, got %d", h.sched.Pending())
	}
	if len(h.rec.details) != 1 || h.rec.details[0].Number != 0 {
		t.Fatalf("expected the placeholder hint, got %+v", h.rec.details)
	}

	h.rec.selectOutcome(3)
	last := h.rec.details[len(h.rec.details)-1]
	if last.Number != 4 {
		t.Fatalf("expected detail of question 4, got %+v", last)
	}
	if err := h.session.SelectOutcome(10); !errors.Is(err, domain.ErrOutcomeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSessionTimeoutsRecordWrongAnswers(t *testing.T) {
	h := newHarness(t, loadedStore(t, samplePool()))
	if err := h.session.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	h.playThrough(t, nil)

	results, _ := h.session.Results()
	if results.CorrectCount() != 0 || len(results.Outcomes()) != 10 {
		t.Fatalf("expected 0/10, got %d/%d", results.CorrectCount(), len(results.Outcomes()))
	}
	if n := h.rec.countCue("play failure"); n != 10 {
		t.Fatalf("expected 10 failure cues, got %d", n)
	}
	if h.rec.countCue("play level-down") != 1 {
		t.Fatalf("expected level-down cue")
	}
}

func TestSessionPassThresholdUsesCorrectCount(t *testing.T) {
	h := newHarness(t, loadedStore(t, samplePool()))
	_ = h.session.Start()
	h.playThrough(t, answerWrongly)
	results, _ := h.session.Results()
	if results.CorrectCount() != 0 || h.rec.countCue("play level-down") != 1 {
		t.Fatalf("expected failing run, got %d correct", results.CorrectCount())
	}
}

func TestSessionRestartDropsPendingTimers(t *testing.T) {
	h := newHarness(t, loadedStore(t, samplePool()))
	_ = h.session.Start()
	h.sched.Advance(h.settings.NoticeDelay + h.settings.RevealDelay)
	if h.session.State().Phase != app.PhaseCountdown {
		t.Fatalf("expected countdown, got %s", h.session.State().Phase)
	}

	h.rec.restart()
	st := h.session.State()
	if st.Phase != app.PhaseNotice || st.Index != 0 || st.Answered != 0 {
		t.Fatalf("expected fresh notice, got %s index=%d", st.Phase, st.Index)
	}
	if h.sched.Pending() != 1 {
		t.Fatalf("expected only the notice delay pending, got %d", h.sched.Pending())
	}

	// The old ticker must not advance the new run.
	h.sched.Advance(h.settings.NoticeDelay - 1)
	if h.session.State().Phase != app.PhaseNotice {
		t.Fatalf("stale timer advanced the run to %s", h.session.State().Phase)
	}
}

func TestSessionQuitReturnsToMenu(t *testing.T) {
	h := newHarness(t, loadedStore(t, samplePool()))
	_ = h.session.Start()
	h.sched.Advance(h.settings.NoticeDelay)

	h.rec.quit()
	if h.session.State().Phase != app.PhaseIdle {
		t.Fatalf("expected idle, got %s", h.session.State().Phase)
	}
	if h.sched.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", h.sched.Pending())
	}
	if h.rec.lastView() != domain.ViewMenu {
		t.Fatalf("expected menu, got %s", h.rec.lastView())
	}
	if h.rec.countCue("stop countdown-loop") == 0 {
		t.Fatalf("expected the countdown loop to be stopped")
	}
}

func TestSessionStartBeforeLoad(t *testing.T) {
	store := app.NewQuestionStore(memory.NewStaticQuestionSource(samplePool()), logging.Discard())
	h := newHarness(t, store)
	if len(h.rec.ready) != 1 || h.rec.ready[0] {
		t.Fatalf("expected start disabled, got %v", h.rec.ready)
	}
	if err := h.session.Start(); !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
	if h.rec.lastText() != h.settings.Labels.WaitForLoad {
		t.Fatalf("expected wait hint, got %q", h.rec.lastText())
	}

	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	waitUntil(t, func() bool {
		h.rec.mu.Lock()
		defer h.rec.mu.Unlock()
		return len(h.rec.ready) == 2 && h.rec.ready[1]
	})
	if err := h.session.Start(); err != nil {
		t.Fatalf("start after load failed: %v", err)
	}
}

func TestSessionLoadFailureShowsDiagnostic(t *testing.T) {
	store := app.NewQuestionStore(memory.NewFailingQuestionSource(errors.New("boom")), logging.Discard())
	_, _ = store.Load(context.Background())
	h := newHarness(t, store)
	if h.rec.lastText() != h.settings.Labels.LoadFailed {
		t.Fatalf("expected load failure text, got %q", h.rec.lastText())
	}
	if err := h.session.Start(); !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func TestSessionEmptySequenceStaysOnMenu(t *testing.T) {
	pool := []domain.Question{{Genre: "unrelated", Question: "q", Answer: "true"}}
	h := newHarness(t, loadedStore(t, pool))
	if err := h.session.Start(); !errors.Is(err, domain.ErrEmptySequence) {
		t.Fatalf("expected empty sequence, got %v", err)
	}
	if h.rec.lastView() != domain.ViewMenu || h.rec.lastText() != h.settings.Labels.EmptySequence {
		t.Fatalf("expected menu with diagnostic, got %s %q", h.rec.lastView(), h.rec.lastText())
	}
	if h.session.State().Phase != app.PhaseIdle {
		t.Fatalf("expected idle, got %s", h.session.State().Phase)
	}
}

func TestSessionCloseIgnoresLaterEvents(t *testing.T) {
	h := newHarness(t, loadedStore(t, samplePool()))
	_ = h.session.Start()
	h.session.Close()
	if h.sched.Pending() != 0 {
		t.Fatalf("expected timers cancelled on close, got %d", h.sched.Pending())
	}
	h.session.Answer(true)
	if err := h.session.Start(); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected closed session error, got %v", err)
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}
