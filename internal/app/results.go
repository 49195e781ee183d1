package app

import (
	"fmt"
	"strings"

	"timed-quiz-service/internal/domain"
)

// SummaryLength is how many characters of a question are kept in an outcome.
const SummaryLength = 40

// SummarizeQuestion collapses whitespace, keeps at most max characters and
// always appends "...", whether or not anything was cut.
func SummarizeQuestion(text string, max int) string {
	clean := strings.Join(strings.Fields(text), " ")
	if runes := []rune(clean); len(runes) > max {
		clean = string(runes[:max])
	}
	return clean + "..."
}

var markupEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeMarkup escapes text for inclusion in HTML.
func EscapeMarkup(text string) string {
	return markupEscaper.Replace(text)
}

// Results is the read-only summary of a finished run.
type Results struct {
	state  domain.ResultState
	labels Labels
}

func NewResults(state domain.ResultState, labels Labels) *Results {
	outcomes := make([]domain.Outcome, len(state.Outcomes))
	copy(outcomes, state.Outcomes)
	return &Results{
		state:  domain.ResultState{Correct: state.Correct, Outcomes: outcomes},
		labels: labels,
	}
}

func (r *Results) CorrectCount() int {
	return r.state.Correct
}

// Outcomes returns the outcomes in play order.
func (r *Results) Outcomes() []domain.Outcome {
	out := make([]domain.Outcome, len(r.state.Outcomes))
	copy(out, r.state.Outcomes)
	return out
}

// Detail renders the i-th outcome (0-based) for display.
func (r *Results) Detail(i int) (domain.OutcomeDetail, error) {
	if i < 0 || i >= len(r.state.Outcomes) {
		return domain.OutcomeDetail{}, domain.ErrOutcomeNotFound
	}
	o := r.state.Outcomes[i]

	explanation := o.Explanation
	if explanation == "" {
		explanation = r.labels.NoExplanation
	}
	number := r.labels.QuestionLabel(o.Number)
	markup := fmt.Sprintf(`%s: <span class="question-highlight">「%s」</span><br>%s`,
		number,
		EscapeMarkup(o.Summary),
		strings.ReplaceAll(EscapeMarkup(explanation), "\n", "<br>"),
	)

	return domain.OutcomeDetail{
		Number:      o.Number,
		Correct:     o.Correct,
		Label:       r.Label(i),
		Summary:     o.Summary,
		Explanation: explanation,
		Markup:      markup,
	}, nil
}

// Label is the list entry text of the i-th outcome, e.g. "第3問 ○".
func (r *Results) Label(i int) string {
	if i < 0 || i >= len(r.state.Outcomes) {
		return ""
	}
	o := r.state.Outcomes[i]
	mark := r.labels.MarkWrong
	if o.Correct {
		mark = r.labels.MarkCorrect
	}
	return r.labels.QuestionLabel(o.Number) + " " + mark
}
