package domain

import "errors"

var (
	// ErrLoad is returned when the question pool could not be fetched or decoded.
	ErrLoad = errors.New("question data could not be loaded")
	// ErrNotReady is returned when a quiz is started before the pool finished loading.
	ErrNotReady = errors.New("question data not ready")
	// ErrEmptySequence indicates that no configured genre yielded a question.
	ErrEmptySequence = errors.New("no questions matched any genre")
	// ErrSessionNotFound is returned when a quiz session has not been opened.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrOutcomeNotFound indicates a selected outcome index is out of range.
	ErrOutcomeNotFound = errors.New("outcome not found")
)
