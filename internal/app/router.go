package app

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"quiz-orchestrator/internal/domain"
	"quiz-orchestrator/internal/telemetry"
)

const (
	inboxSize        = 1024
	sessionCodeLen   = 8
	sessionCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

const (
	// DefaultQuizFile is loaded on start when the presenter selected nothing.
	DefaultQuizFile = "quiz.json"
	// DefaultStorageTimeout bounds every storage call the router makes.
	DefaultStorageTimeout = 10 * time.Second
)

// RouterConfig wires a Router.
type RouterConfig struct {
	Sessions    SessionRepository
	Quizzes     QuizRepository
	DefaultQuiz string
	// EnforceHost rejects presenter-only events from connections that neither
	// created nor joined the session as presenter.
	EnforceHost bool
	// StorageTimeout bounds session registry calls made on the event loop and
	// quiz loads made off it.
	StorageTimeout time.Duration
	Logger         *slog.Logger
	Clock          func() time.Time
}

// Router drives the quiz protocol. Every event, sweep and storage completion
// runs on the single goroutine started by Run, so session state needs no locks.
type Router struct {
	sessions    SessionRepository
	quizzes     QuizRepository
	defaultQuiz string
	enforceHost bool
	timeout     time.Duration
	log         *slog.Logger
	now         func() time.Time

	inbox chan func()
	done  chan struct{}
	ctx   context.Context

	conns map[string]Conn
	// participantOf maps a connection to the one session it is registered in.
	participantOf map[string]string
	// roomsOf maps a connection to every session room it has joined.
	roomsOf map[string]map[string]struct{}
}

type handlerFunc func(r *Router, connID string, payload json.RawMessage) error

var handlers = map[string]handlerFunc{
	EventCreateSession:       (*Router).createSession,
	EventSetQuestionDuration: (*Router).setQuestionDuration,
	EventUploadQuiz:          (*Router).uploadQuiz,
	EventRegister:            (*Router).register,
	EventRequestQuizList:     (*Router).requestQuizList,
	EventSelectQuiz:          (*Router).selectQuiz,
	EventJoinPresenter:       (*Router).joinPresenter,
	EventSetScoreMode:        (*Router).setScoreMode,
	EventStartQuiz:           (*Router).startQuiz,
	EventNextQuestion:        (*Router).nextQuestion,
	EventEndTime:             (*Router).endTime,
	EventAnswer:              (*Router).answer,
	EventShowRanking:         (*Router).showRanking,
}

func NewRouter(c RouterConfig) *Router {
	r := &Router{
		sessions:      c.Sessions,
		quizzes:       c.Quizzes,
		defaultQuiz:   c.DefaultQuiz,
		enforceHost:   c.EnforceHost,
		timeout:       c.StorageTimeout,
		log:           c.Logger,
		now:           c.Clock,
		inbox:         make(chan func(), inboxSize),
		done:          make(chan struct{}),
		ctx:           context.Background(),
		conns:         make(map[string]Conn),
		participantOf: make(map[string]string),
		roomsOf:       make(map[string]map[string]struct{}),
	}
	if r.defaultQuiz == "" {
		r.defaultQuiz = DefaultQuizFile
	}
	if r.timeout <= 0 {
		r.timeout = DefaultStorageTimeout
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Run processes queued work until ctx is canceled.
func (r *Router) Run(ctx context.Context) error {
	r.ctx = ctx
	defer close(r.done)

	r.log.InfoContext(ctx, "router: event loop started")
	for {
		select {
		case fn := <-r.inbox:
			fn()
		case <-ctx.Done():
			r.log.InfoContext(ctx, "router: event loop stopped")
			return nil
		}
	}
}

// post queues fn for the event loop. It never blocks once the loop has stopped.
func (r *Router) post(fn func()) bool {
	select {
	case r.inbox <- fn:
		return true
	case <-r.done:
		return false
	}
}

// Connect makes conn reachable for replies and broadcasts.
func (r *Router) Connect(conn Conn) {
	r.post(func() {
		r.conns[conn.ID()] = conn
	})
}

// Dispatch queues one inbound event from connID.
func (r *Router) Dispatch(connID, eventType string, payload json.RawMessage) {
	r.post(func() {
		r.handle(connID, eventType, payload)
	})
}

// Disconnect removes connID from every session it was part of.
func (r *Router) Disconnect(connID string) {
	r.post(func() {
		r.disconnect(connID)
	})
}

func (r *Router) handle(connID, eventType string, payload json.RawMessage) {
	h, ok := handlers[eventType]
	if !ok {
		telemetry.Events.WithLabelValues("unsupported", telemetry.OutcomeUnknown).Inc()
		r.reply(connID, Message{Type: OutError, Payload: "unsupported message type"})
		return
	}

	if err := h(r, connID, payload); err != nil {
		telemetry.Events.WithLabelValues(eventType, telemetry.OutcomeRejected).Inc()
		r.log.Debug("router: event rejected", "type", eventType, "conn", connID, "error", err)
		r.reject(connID, eventType, err)
		return
	}
	telemetry.Events.WithLabelValues(eventType, telemetry.OutcomeOK).Inc()
}

// reject sends a single rejection notice to the originating connection.
func (r *Router) reject(connID, eventType string, err error) {
	typ := OutError
	if eventType == EventCreateSession {
		typ = OutSessionError
	}
	r.reply(connID, Message{Type: typ, Payload: rejectionText(err)})
}

func rejectionText(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return err.Error()
	case errors.Is(err, domain.ErrSessionNotFound):
		return "session not found"
	case errors.Is(err, domain.ErrSessionExists):
		return "session already exists"
	case errors.Is(err, domain.ErrDuplicateName):
		return "name already taken"
	case errors.Is(err, domain.ErrNotPresenter):
		return "only the presenter can do that"
	case errors.Is(err, domain.ErrAlreadyRegistered):
		return "already registered in this session"
	case errors.Is(err, domain.ErrQuestionOpen):
		return "wait for the question to end"
	default:
		return "internal error"
	}
}

func (r *Router) reply(connID string, msg Message) {
	conn, ok := r.conns[connID]
	if !ok {
		return
	}
	if !conn.Send(msg) {
		r.log.Warn("router: dropped message for slow connection", "conn", connID, "type", msg.Type)
	}
}

// broadcast sends msg to every connection joined to the session's room.
func (r *Router) broadcast(s *Session, msg Message) {
	for _, connID := range s.Room() {
		r.reply(connID, msg)
	}
}

func (r *Router) joinRoom(s *Session, connID string) {
	s.joinRoom(connID)
	rooms, ok := r.roomsOf[connID]
	if !ok {
		rooms = make(map[string]struct{})
		r.roomsOf[connID] = rooms
	}
	rooms[s.ID()] = struct{}{}
}

func (r *Router) lookup(id string) (*Session, error) {
	s, ok := r.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("lookup %q: %w", id, domain.ErrSessionNotFound)
	}
	return s, nil
}

// presenterSession resolves a session for a presenter-only event.
func (r *Router) presenterSession(connID, id string) (*Session, error) {
	s, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	if r.enforceHost && !s.isPresenter(connID) {
		return nil, domain.ErrNotPresenter
	}
	return s, nil
}

func (r *Router) quizData(s *Session) Message {
	q := s.Quiz()
	questions := q.Questions
	if questions == nil {
		questions = []domain.Question{}
	}
	return Message{Type: OutQuizData, Payload: QuizData{
		Title:     q.DisplayTitle(),
		Questions: questions,
		Duration:  s.Duration(),
	}}
}

func (r *Router) participants(s *Session) Message {
	return Message{Type: OutParticipants, Payload: s.Participants()}
}

// disconnect detaches connID from its participant session and from
// every room it joined, broadcasting the updated participant list.
func (r *Router) disconnect(connID string) {
	now := r.now()
	if id, ok := r.participantOf[connID]; ok {
		delete(r.participantOf, connID)
		if s, ok := r.sessions.Get(id); ok && s.removeParticipant(connID) {
			s.touch(now)
			r.broadcast(s, r.participants(s))
			r.log.Info("router: participant left", "session", id, "conn", connID)
		}
	}
	for id := range r.roomsOf[connID] {
		if s, ok := r.sessions.Get(id); ok {
			s.leaveRoom(connID)
		}
	}
	delete(r.roomsOf, connID)
	delete(r.conns, connID)
}

// detach removes the session from the connection indexes after eviction.
func (r *Router) detach(s *Session) {
	for _, p := range s.participants {
		if r.participantOf[p.ConnID] == s.ID() {
			delete(r.participantOf, p.ConnID)
		}
	}
	for connID := range s.room {
		if rooms, ok := r.roomsOf[connID]; ok {
			delete(rooms, s.ID())
			if len(rooms) == 0 {
				delete(r.roomsOf, connID)
			}
		}
	}
}

// storageCtx bounds a registry call made on the event loop, so a slow store
// delays other sessions by at most the storage timeout.
func (r *Router) storageCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.ctx, r.timeout)
}

// async runs blocking storage work off the loop and posts done back onto it.
func (r *Router) async(work func(ctx context.Context) func()) {
	parent, timeout := r.ctx, r.timeout
	go func() {
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		done := work(ctx)
		r.post(done)
	}()
}

func newSessionCode() (string, error) {
	buf := make([]byte, sessionCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session code: %w", err)
	}
	out := make([]byte, sessionCodeLen)
	for i := range out {
		out[i] = sessionCodeChars[int(buf[i])%len(sessionCodeChars)]
	}
	return string(out), nil
}
