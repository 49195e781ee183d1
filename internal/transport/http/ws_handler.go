package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Choice bool `json:"choice"`
}

type selectPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type sessionPayload struct {
	SessionID string `json:"sessionId"`
}

type viewPayload struct {
	View domain.View `json:"view"`
}

type textPayload struct {
	Text string `json:"text"`
}

type progressPayload struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

type countdownPayload struct {
	Total   int `json:"total"`
	Elapsed int `json:"elapsed"`
}

type summaryPayload struct {
	Correct  int              `json:"correct"`
	Outcomes []domain.Outcome `json:"outcomes"`
}

type readyPayload struct {
	Enabled bool `json:"enabled"`
}

type audioPayload struct {
	Action string     `json:"action"`
	Cue    domain.Cue `json:"cue"`
	Rate   float64    `json:"rate,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and attaches a quiz session
// whose presenter, audio player and controls are the socket itself.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	client := newWSClient()
	go client.writeLoop(conn, h.log)

	session := h.service.Open(playerID, client, client)
	log := h.log.WithField("session", session.ID())
	client.emit("session", sessionPayload{SessionID: session.ID()})
	session.Bind(client)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			client.handlers().start()
		case "quit", "menu":
			client.handlers().quit()
		case "restart":
			client.handlers().restart()
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				client.emit("error", errorPayload{Message: "invalid answer payload"})
				continue
			}
			client.handlers().answer(payload.Choice)
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				client.emit("error", errorPayload{Message: "invalid select payload"})
				continue
			}
			client.handlers().selectOutcome(payload.Index)
		default:
			client.emit("error", errorPayload{Message: "unsupported message type"})
		}
	}

	// Closing the session first guarantees no presenter call races the
	// shutdown of the send channel. A reconnect under the same player id may
	// already own the id; only this socket's session is closed.
	h.service.CloseSession(session)
	client.shutdown()
	log.Debug("ws client disconnected")
}

// wsClient adapts one websocket connection to app.Presenter, app.AudioPlayer
// and app.Controls.
type wsClient struct {
	send       chan outboundMessage[any]
	writerDone chan struct{}

	mu sync.Mutex
	h  controlHandlers
}

type controlHandlers struct {
	answer        func(bool)
	start         func()
	quit          func()
	restart       func()
	selectOutcome func(int)
}

func newWSClient() *wsClient {
	return &wsClient{
		send:       make(chan outboundMessage[any], 64),
		writerDone: make(chan struct{}),
		h: controlHandlers{
			answer:        func(bool) {},
			start:         func() {},
			quit:          func() {},
			restart:       func() {},
			selectOutcome: func(int) {},
		},
	}
}

// writeWait bounds a single frame write to a client that stopped reading.
var writeWait = 10 * time.Second

func (c *wsClient) writeLoop(conn *websocket.Conn, log logrus.FieldLogger) {
	defer close(c.writerDone)
	for msg := range c.send {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			log.WithError(err).Warn("ws write error")
			// Unblocks the read loop so the session is closed.
			_ = conn.Close()
			return
		}
	}
}

// emit queues a frame; frames are dropped once the writer has stopped.
func (c *wsClient) emit(typ string, payload any) {
	select {
	case c.send <- outboundMessage[any]{Type: typ, Payload: payload}:
	case <-c.writerDone:
	}
}

func (c *wsClient) shutdown() {
	close(c.send)
	<-c.writerDone
}

func (c *wsClient) handlers() controlHandlers {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.h
}

func (c *wsClient) ShowView(view domain.View)      { c.emit("view", viewPayload{View: view}) }
func (c *wsClient) RenderMeta(text string)         { c.emit("meta", textPayload{Text: text}) }
func (c *wsClient) RenderQuestionText(text string) { c.emit("question", textPayload{Text: text}) }
func (c *wsClient) SetStartEnabled(enabled bool)   { c.emit("ready", readyPayload{Enabled: enabled}) }

func (c *wsClient) RenderProgress(current, total int) {
	c.emit("progress", progressPayload{Current: current, Total: total})
}

func (c *wsClient) RenderCountdownTicks(total, elapsed int) {
	c.emit("countdown", countdownPayload{Total: total, Elapsed: elapsed})
}

func (c *wsClient) RenderResultSummary(correct int, outcomes []domain.Outcome) {
	c.emit("summary", summaryPayload{Correct: correct, Outcomes: outcomes})
}

func (c *wsClient) RenderOutcomeDetail(detail domain.OutcomeDetail) {
	c.emit("detail", detail)
}

func (c *wsClient) PlayOnce(cue domain.Cue) {
	c.emit("audio", audioPayload{Action: "play", Cue: cue})
}

func (c *wsClient) PlayLoop(cue domain.Cue, rate float64) {
	c.emit("audio", audioPayload{Action: "loop", Cue: cue, Rate: rate})
}

func (c *wsClient) Stop(cue domain.Cue) {
	c.emit("audio", audioPayload{Action: "stop", Cue: cue})
}

func (c *wsClient) OnAnswerChosen(fn func(bool)) {
	c.mu.Lock()
	c.h.answer = fn
	c.mu.Unlock()
}

func (c *wsClient) OnStartRequested(fn func()) {
	c.mu.Lock()
	c.h.start = fn
	c.mu.Unlock()
}

func (c *wsClient) OnQuitRequested(fn func()) {
	c.mu.Lock()
	c.h.quit = fn
	c.mu.Unlock()
}

func (c *wsClient) OnRestartRequested(fn func()) {
	c.mu.Lock()
	c.h.restart = fn
	c.mu.Unlock()
}

func (c *wsClient) OnOutcomeSelected(fn func(int)) {
	c.mu.Lock()
	c.h.selectOutcome = fn
	c.mu.Unlock()
}
