package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Answer holds the correct answer of a true/false question. Question files
// carry it either as a JSON boolean or as a string such as "true" or "FALSE".
type Answer string

// IsTrue reports whether the answer is the literal "true", ignoring case.
func (a Answer) IsTrue() bool {
	return strings.EqualFold(string(a), "true")
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*a = Answer(strconv.FormatBool(b))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*a = Answer(s)
	return nil
}

// Question models one true/false question of the pool.
type Question struct {
	Genre       string `json:"genre"`
	Question    string `json:"question"`
	Answer      Answer `json:"answer"`
	Explanation string `json:"explanation"`
}

// ItemKind tags a SequenceItem.
type ItemKind int

const (
	ItemNotice ItemKind = iota
	ItemQuestion
)

func (k ItemKind) String() string {
	if k == ItemQuestion {
		return "question"
	}
	return "notice"
}

// SequenceItem is either a genre notice or a question slot. Question and
// PositionWithinGenre are only set for ItemQuestion.
type SequenceItem struct {
	Kind                ItemKind
	Genre               string
	Question            Question
	PositionWithinGenre int
}

// Notice builds a notice item announcing genre.
func Notice(genre string) SequenceItem {
	return SequenceItem{Kind: ItemNotice, Genre: genre}
}

// QuestionSlot builds a question item at the 1-based position within its genre.
func QuestionSlot(genre string, q Question, position int) SequenceItem {
	return SequenceItem{Kind: ItemQuestion, Genre: genre, Question: q, PositionWithinGenre: position}
}

// Outcome is the recorded result of one answered or timed-out question.
type Outcome struct {
	Number      int    `json:"number"`
	Summary     string `json:"summary"`
	Explanation string `json:"explanation"`
	Correct     bool   `json:"correct"`
}

// ResultState accumulates outcomes during play.
type ResultState struct {
	Correct  int       `json:"correct"`
	Outcomes []Outcome `json:"outcomes"`
}

// OutcomeDetail is the display-ready form of one outcome.
type OutcomeDetail struct {
	Number      int    `json:"number"`
	Correct     bool   `json:"correct"`
	Label       string `json:"label"`
	Summary     string `json:"summary"`
	Explanation string `json:"explanation"`
	Markup      string `json:"markup"`
}

// View names one of the screens a presenter can show.
type View string

const (
	ViewMenu   View = "menu"
	ViewQuiz   View = "quiz"
	ViewResult View = "result"
)

// Cue identifies an audio cue.
type Cue string

const (
	CueQuestionStart Cue = "question-start"
	CueCountdown     Cue = "countdown-loop"
	CueFailure       Cue = "failure"
	CueLevelUp       Cue = "level-up"
	CueLevelDown     Cue = "level-down"
)
