package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
)

// Options configures the terminal quiz model.
type Options struct {
	Labels  app.Labels
	NoColor bool
}

// Model renders a quiz session in the terminal using Bubble Tea.
type Model struct {
	adapter *Adapter
	labels  app.Labels
	styles  styles

	view         domain.View
	startEnabled bool
	meta         string
	progress     progressMsg
	question     string
	countdown    countdownMsg
	correct      int
	outcomes     []domain.Outcome
	selected     int
	detail       domain.OutcomeDetail
	loop         string
	lastCue      string
}

func NewModel(adapter *Adapter, opts Options) Model {
	return Model{
		adapter: adapter,
		labels:  opts.Labels,
		styles:  newStyles(opts.NoColor),
		view:    domain.ViewMenu,
	}
}

// Init waits for the first presenter message.
func (m Model) Init() tea.Cmd {
	return waitForMsg(m.adapter.Messages())
}

// Update consumes presenter messages and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(key)
	}
	next, handled := m.apply(msg)
	if !handled {
		return m, nil
	}
	return next, waitForMsg(m.adapter.Messages())
}

func (m Model) apply(msg tea.Msg) (Model, bool) {
	switch typed := msg.(type) {
	case viewMsg:
		m.view = typed.view
		if typed.view == domain.ViewResult {
			m.selected = 0
		}
	case metaMsg:
		m.meta = typed.text
	case progressMsg:
		m.progress = typed
	case questionMsg:
		m.question = typed.text
	case countdownMsg:
		m.countdown = typed
	case summaryMsg:
		m.correct = typed.correct
		m.outcomes = typed.outcomes
	case detailMsg:
		m.detail = typed.detail
	case readyMsg:
		m.startEnabled = typed.enabled
	case audioMsg:
		m = applyAudio(m, typed)
	default:
		return m, false
	}
	return m, true
}

func applyAudio(m Model, msg audioMsg) Model {
	switch msg.action {
	case "loop":
		m.loop = fmt.Sprintf("♪ %s x%g", msg.cue, msg.rate)
	case "stop":
		if msg.cue == domain.CueCountdown {
			m.loop = ""
		}
	case "play":
		m.lastCue = "♪ " + string(msg.cue)
	}
	return m
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	h := m.adapter.handlers()
	switch key.String() {
	case "ctrl+c":
		return m, tea.Quit
	}

	switch m.view {
	case domain.ViewMenu:
		switch key.String() {
		case "s", "enter":
			if m.startEnabled {
				return m, call(h.start)
			}
		case "q":
			return m, tea.Quit
		}
	case domain.ViewQuiz:
		switch key.String() {
		case "t", "o":
			return m, func() tea.Msg { h.answer(true); return nil }
		case "f", "x":
			return m, func() tea.Msg { h.answer(false); return nil }
		case "esc", "q":
			return m, call(h.quit)
		}
	case domain.ViewResult:
		switch key.String() {
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.outcomes)-1 {
				m.selected++
			}
		case "enter":
			i := m.selected
			return m, func() tea.Msg { h.selectOutcome(i); return nil }
		case "r":
			return m, call(h.restart)
		case "m", "esc":
			return m, call(h.quit)
		case "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

// View renders the current screen.
func (m Model) View() string {
	switch m.view {
	case domain.ViewQuiz:
		return m.renderQuiz()
	case domain.ViewResult:
		return m.renderResult()
	}
	return m.renderMenu()
}

func (m Model) renderMenu() string {
	hint := "s: start  q: quit"
	if !m.startEnabled {
		hint = "loading…  q: quit"
	}
	parts := []string{m.styles.title.Render("Quiz")}
	if m.question != "" {
		parts = append(parts, m.styles.notice.Render(m.question))
	}
	parts = append(parts, m.styles.footer.Render(hint))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderQuiz() string {
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.meta.Render(m.meta),
		m.styles.progress.Render(fmt.Sprintf("%d/%d", m.progress.current, m.progress.total)),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.styles.question.Render(m.question),
		m.styles.countdown.Render(countdownBar(m.countdown.total, m.countdown.elapsed)),
		m.styles.audio.Render(strings.TrimSpace(m.loop+"  "+m.lastCue)),
		m.styles.footer.Render("t: ○ true  f: × false  esc: menu"),
	)
}

func (m Model) renderResult() string {
	lines := []string{m.styles.title.Render(fmt.Sprintf("%d", m.correct))}
	for i, o := range m.outcomes {
		mark := m.labels.MarkWrong
		style := m.styles.wrong
		if o.Correct {
			mark = m.labels.MarkCorrect
			style = m.styles.correct
		}
		cursor := "  "
		if i == m.selected {
			cursor = "> "
		}
		lines = append(lines, cursor+style.Render(m.labels.QuestionLabel(o.Number)+" "+mark))
	}
	lines = append(lines, m.styles.detail.Render(renderDetail(m.detail)))
	lines = append(lines, m.styles.footer.Render("↑/↓ select  enter: explain  r: restart  m: menu  q: quit"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderDetail(d domain.OutcomeDetail) string {
	if d.Number == 0 {
		return d.Explanation
	}
	return fmt.Sprintf("%s\n「%s」\n%s", d.Label, d.Summary, d.Explanation)
}

// countdownBar draws one cell per tick, spent ticks hollow.
func countdownBar(total, elapsed int) string {
	if total <= 0 {
		return ""
	}
	if elapsed > total {
		elapsed = total
	}
	return strings.Repeat("□", elapsed) + strings.Repeat("■", total-elapsed)
}

func call(fn func()) tea.Cmd {
	return func() tea.Msg {
		fn()
		return nil
	}
}

// waitForMsg blocks until the adapter delivers a message.
func waitForMsg(msgs <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-msgs
		if !ok {
			return tea.Quit()
		}
		return msg
	}
}

type styles struct {
	title     lipgloss.Style
	meta      lipgloss.Style
	progress  lipgloss.Style
	question  lipgloss.Style
	notice    lipgloss.Style
	countdown lipgloss.Style
	audio     lipgloss.Style
	correct   lipgloss.Style
	wrong     lipgloss.Style
	detail    lipgloss.Style
	footer    lipgloss.Style
}

func newStyles(noColor bool) styles {
	s := styles{
		title:     lipgloss.NewStyle().Bold(true).MarginBottom(1),
		meta:      lipgloss.NewStyle().Bold(true).PaddingRight(2),
		progress:  lipgloss.NewStyle(),
		question:  lipgloss.NewStyle().Padding(1, 0).Width(60),
		notice:    lipgloss.NewStyle().Italic(true),
		countdown: lipgloss.NewStyle(),
		audio:     lipgloss.NewStyle().Faint(true),
		correct:   lipgloss.NewStyle(),
		wrong:     lipgloss.NewStyle(),
		detail:    lipgloss.NewStyle().MarginTop(1).Width(60),
		footer:    lipgloss.NewStyle().Faint(true).MarginTop(1),
	}
	if noColor {
		return s
	}
	s.title = s.title.Foreground(lipgloss.Color("#22d3ee"))
	s.countdown = s.countdown.Foreground(lipgloss.Color("#22d3ee"))
	s.correct = s.correct.Foreground(lipgloss.Color("#22d3ee"))
	s.wrong = s.wrong.Foreground(lipgloss.Color("#f87171"))
	return s
}
