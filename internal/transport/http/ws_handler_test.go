package http

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
	"timed-quiz-service/internal/logging"
)

func TestWebSocketQuizFlow(t *testing.T) {
	service, sched, store := newTestService(t)
	server := httptest.NewServer(NewRouter(NewWSHandler(service, logging.Discard()), store, logging.Discard()))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?playerId=p1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	frames := collect(conn)

	session := frames.wait(t, "session")
	if session["sessionId"] != "p1" {
		t.Fatalf("expected session p1, got %v", session)
	}
	if ready := frames.wait(t, "ready"); ready["enabled"] != true {
		t.Fatalf("expected start enabled, got %v", ready)
	}

	settings := service.Settings()
	send(t, conn, "start", nil)
	waitPhase(t, service, "p1", app.PhaseNotice)
	sched.Advance(settings.NoticeDelay)
	sched.Advance(settings.RevealDelay)
	waitPhase(t, service, "p1", app.PhaseCountdown)

	send(t, conn, "answer", map[string]any{"choice": true})
	waitPhase(t, service, "p1", app.PhaseAnswered)
	sched.Advance(settings.AnswerDelay)
	sched.Advance(settings.NoticeDelay)
	sched.Advance(settings.RevealDelay)
	waitPhase(t, service, "p1", app.PhaseCountdown)

	send(t, conn, "answer", map[string]any{"choice": false})
	waitPhase(t, service, "p1", app.PhaseAnswered)
	sched.Advance(settings.AnswerDelay)

	summary := frames.wait(t, "summary")
	if summary["correct"] != float64(2) {
		t.Fatalf("expected 2 correct, got %v", summary)
	}
	if outcomes, _ := summary["outcomes"].([]any); len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %v", summary["outcomes"])
	}
	if hint := frames.wait(t, "detail"); hint["number"] != float64(0) {
		t.Fatalf("expected placeholder detail, got %v", hint)
	}

	send(t, conn, "select", map[string]any{"index": 1})
	detail := frames.wait(t, "detail")
	if detail["number"] != float64(2) || detail["label"] != "第2問 ○" {
		t.Fatalf("unexpected detail %v", detail)
	}

	send(t, conn, "bogus", nil)
	if e := frames.wait(t, "error"); e["message"] != "unsupported message type" {
		t.Fatalf("unexpected error frame %v", e)
	}
}

func TestWebSocketDisconnectClosesSession(t *testing.T) {
	service, _, store := newTestService(t)
	server := httptest.NewServer(NewRouter(NewWSHandler(service, logging.Discard()), store, logging.Discard()))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws?playerId=gone", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	frames := collect(conn)
	frames.wait(t, "session")
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := service.Session("gone"); err != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session still open after disconnect")
}

func TestWebSocketReconnectKeepsNewSession(t *testing.T) {
	service, sched, store := newTestService(t)
	server := httptest.NewServer(NewRouter(NewWSHandler(service, logging.Discard()), store, logging.Discard()))
	defer server.Close()
	u := "ws" + server.URL[len("http"):] + "/ws?playerId=p"

	first, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial first: %v", err)
	}
	collect(first).wait(t, "session")
	old, err := service.Session("p")
	if err != nil {
		t.Fatalf("expected first session: %v", err)
	}

	second, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer second.Close()
	frames := collect(second)
	frames.wait(t, "session")
	frames.wait(t, "ready")

	current, err := service.Session("p")
	if err != nil || current == old {
		t.Fatalf("expected the second socket to own the id, err=%v", err)
	}

	// The first tab goes away after the second one connected.
	first.Close()
	time.Sleep(100 * time.Millisecond)

	if got, err := service.Session("p"); err != nil || got != current {
		t.Fatalf("expected the new session to survive the old disconnect, err=%v", err)
	}

	settings := service.Settings()
	send(t, second, "start", nil)
	waitPhase(t, service, "p", app.PhaseNotice)
	sched.Advance(settings.NoticeDelay)
	sched.Advance(settings.RevealDelay)
	waitPhase(t, service, "p", app.PhaseCountdown)
	send(t, second, "answer", map[string]any{"choice": true})
	waitPhase(t, service, "p", app.PhaseAnswered)
}

func TestWriteLoopGivesUpOnStalledClient(t *testing.T) {
	prev := writeWait
	writeWait = 50 * time.Millisecond
	defer func() { writeWait = prev }()

	client := newWSClient()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client.writeLoop(conn, logging.Discard())
	}))
	defer server.Close()

	// The dialing side never reads.
	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):], nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	chunk := strings.Repeat("x", 256<<10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 400; i++ {
			select {
			case <-client.writerDone:
				return
			default:
			}
			client.emit("question", textPayload{Text: chunk})
		}
	}()

	select {
	case <-client.writerDone:
	case <-time.After(10 * time.Second):
		t.Fatalf("writer still blocked on a client that stopped reading")
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("emit kept blocking after the writer stopped")
	}
	// Frames after the writer stopped are dropped without blocking.
	client.emit("meta", textPayload{Text: "late"})
}

func newTestService(t *testing.T) (*app.QuizService, *app.ManualScheduler, *app.QuestionStore) {
	t.Helper()
	pool := []domain.Question{
		{Genre: "a", Question: "A is true", Answer: "true", Explanation: "a"},
		{Genre: "b", Question: "B is false", Answer: "false", Explanation: "b"},
	}
	store := app.NewQuestionStore(memory.NewStaticQuestionSource(pool), logging.Discard())
	if _, err := store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	settings := app.DefaultSettings()
	settings.Genres = []string{"a", "b"}
	settings.PicksPerGenre = 1

	sched := app.NewManualScheduler()
	service := app.NewQuizService(memory.NewSessionStore(), store, settings, sched, logging.Discard())
	service.SetRandSource(func() *rand.Rand { return rand.New(rand.NewSource(1)) })
	return service, sched, store
}

type frame struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// frameLog reads every frame in the background so the server never blocks.
type frameLog struct {
	mu     sync.Mutex
	frames []frame
	next   int
}

func collect(conn *websocket.Conn) *frameLog {
	l := &frameLog{}
	go func() {
		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			l.mu.Lock()
			l.frames = append(l.frames, f)
			l.mu.Unlock()
		}
	}()
	return l
}

// wait returns the payload of the next frame of type typ, skipping others.
func (l *frameLog) wait(t *testing.T, typ string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		l.mu.Lock()
		for l.next < len(l.frames) {
			f := l.frames[l.next]
			l.next++
			if f.Type == typ {
				l.mu.Unlock()
				return f.Payload
			}
		}
		l.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s frame", typ)
	return nil
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	raw, _ := json.Marshal(payload)
	msg := map[string]any{"type": typ, "payload": json.RawMessage(raw)}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func waitPhase(t *testing.T, service *app.QuizService, id string, phase app.Phase) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if session, err := service.Session(id); err == nil && session.State().Phase == phase {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for phase %s", phase)
}
