package app

import (
	"context"
	"time"

	"quiz-orchestrator/internal/domain"
)

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	// Create registers a new session; it fails with domain.ErrSessionExists when
	// the id is taken. The check and the insert are one step.
	Create(ctx context.Context, id, hostConnID string, now time.Time) (*Session, error)
	Get(id string) (*Session, bool)
	// Delete removes the session and everything stored for it.
	Delete(ctx context.Context, id string) bool
	Sessions() []*Session
	Len() int
}

// QuizRepository loads, lists and stores quiz documents by filename.
type QuizRepository interface {
	ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error)
	GetQuiz(ctx context.Context, filename string) (domain.Quiz, error)
	// SaveQuiz stores the quiz under filename or, when taken, the first free
	// name_N.json, and returns the name used.
	SaveQuiz(ctx context.Context, filename string, quiz domain.Quiz) (string, error)
}

// KeepAliver is implemented by session stores that hold external leases which
// must be refreshed while sessions stay registered.
type KeepAliver interface {
	KeepAlive(ctx context.Context, ids []string) error
}

// Conn is a connected client as seen by the router.
type Conn interface {
	ID() string
	// Send queues msg without blocking; it reports false when the message was dropped.
	Send(msg Message) bool
}

// Message is one outbound event.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}
