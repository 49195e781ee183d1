package app

import (
	"strconv"
	"time"
)

// DefaultGenres is the order in which genres are played.
var DefaultGenres = []string{"検察庁", "検察官", "検察事務官", "高松地方検察庁", "香川県"}

// Settings holds every knob of a quiz session.
type Settings struct {
	Genres         []string
	PicksPerGenre  int
	CountdownTicks int
	TickInterval   time.Duration
	NoticeDelay    time.Duration
	RevealDelay    time.Duration
	AnswerDelay    time.Duration
	TimeoutDelay   time.Duration
	// FastCueAt is the remaining tick count at or below which the countdown
	// loop plays at FastCueRate.
	FastCueAt   int
	FastCueRate float64
	// PassThreshold is compared against the correct count as is; it is not
	// scaled to the number of questions actually built.
	PassThreshold int
	Labels        Labels
}

// Labels are the user-facing strings emitted by the state machine.
type Labels struct {
	QuestionPrefix string
	QuestionSuffix string
	NoticeMeta     string
	NoticeText     string
	TimeOver       string
	LoadFailed     string
	WaitForLoad    string
	EmptySequence  string
	ResultHint     string
	NoExplanation  string
	MarkCorrect    string
	MarkWrong      string
}

// DefaultLabels returns the stock Japanese labels.
func DefaultLabels() Labels {
	return Labels{
		QuestionPrefix: "第",
		QuestionSuffix: "問",
		NoticeMeta:     "%sの案内",
		NoticeText:     "%sに関する問題です。",
		TimeOver:       "時間オーバー",
		LoadFailed:     "問題データを読み込めませんでした。",
		WaitForLoad:    "問題データの読み込みをお待ちください。",
		EmptySequence:  "ごめんなさい。questions.json を確認してください。",
		ResultHint:     "ボタンをクリックすると問題の概要と解説を表示します。",
		NoExplanation:  "解説はありません。",
		MarkCorrect:    "○",
		MarkWrong:      "×",
	}
}

// DefaultSettings returns the stock quiz timings.
func DefaultSettings() Settings {
	genres := make([]string, len(DefaultGenres))
	copy(genres, DefaultGenres)
	return Settings{
		Genres:         genres,
		PicksPerGenre:  2,
		CountdownTicks: 30,
		TickInterval:   time.Second,
		NoticeDelay:    1200 * time.Millisecond,
		RevealDelay:    700 * time.Millisecond,
		AnswerDelay:    350 * time.Millisecond,
		TimeoutDelay:   1000 * time.Millisecond,
		FastCueAt:      10,
		FastCueRate:    2,
		PassThreshold:  5,
		Labels:         DefaultLabels(),
	}
}

// QuestionLabel renders "第N問".
func (l Labels) QuestionLabel(n int) string {
	return l.QuestionPrefix + strconv.Itoa(n) + l.QuestionSuffix
}
