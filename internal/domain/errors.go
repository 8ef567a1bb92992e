package domain

import "errors"

var (
	// ErrSessionNotFound is returned when an event references an unknown session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned when a session id is already registered.
	ErrSessionExists = errors.New("session already exists")
	// ErrDuplicateName is returned when a display name is taken within a session.
	ErrDuplicateName = errors.New("name already taken in this session")
	// ErrAlreadyRegistered is returned when a connection registers twice in one session.
	ErrAlreadyRegistered = errors.New("connection already registered in session")
	// ErrNotPresenter is returned when a presenter-only event comes from another connection.
	ErrNotPresenter = errors.New("connection is not a presenter of this session")
	// ErrQuestionOpen is returned when a setting cannot change while a question timer runs.
	ErrQuestionOpen = errors.New("question timer is running")
	// ErrValidation marks malformed or out-of-range input.
	ErrValidation = errors.New("invalid input")
	// ErrQuizNotFound indicates the quiz content could not be located.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrStorage indicates the quiz content could not be read, parsed or written.
	ErrStorage = errors.New("quiz storage failure")
)
