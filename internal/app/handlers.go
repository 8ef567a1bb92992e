package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quiz-orchestrator/internal/domain"
	"quiz-orchestrator/internal/telemetry"
	"quiz-orchestrator/internal/validation"
)

// createSession registers a new session with connID as host. An empty id asks
// the server for a random code.
func (r *Router) createSession(connID string, payload json.RawMessage) error {
	raw, err := decodeSessionArg(payload)
	if err != nil {
		return err
	}

	id := raw
	if id == "" {
		if id, err = r.freeSessionCode(); err != nil {
			return err
		}
	} else if id, err = validation.SessionID(raw); err != nil {
		return err
	}

	ctx, cancel := r.storageCtx()
	s, err := r.sessions.Create(ctx, id, connID, r.now())
	cancel()
	if err != nil {
		return err
	}
	r.joinRoom(s, connID)
	telemetry.SessionsCreated.Inc()
	telemetry.SessionsActive.Set(float64(r.sessions.Len()))

	r.reply(connID, Message{Type: OutSessionCreated, Payload: id})
	r.log.Info("router: session created", "session", id, "conn", connID)
	return nil
}

func (r *Router) freeSessionCode() (string, error) {
	for {
		code, err := newSessionCode()
		if err != nil {
			return "", err
		}
		if _, taken := r.sessions.Get(code); !taken {
			return code, nil
		}
	}
}

// joinPresenter lets a presenter (re)attach to an existing session.
func (r *Router) joinPresenter(connID string, payload json.RawMessage) error {
	raw, err := decodeSessionArg(payload)
	if err != nil {
		return err
	}
	id, err := validation.SessionID(raw)
	if err != nil {
		return err
	}
	s, err := r.lookup(id)
	if err != nil {
		return err
	}

	s.addPresenter(connID)
	r.joinRoom(s, connID)
	s.touch(r.now())

	r.reply(connID, Message{Type: OutSessionCreated, Payload: id})
	r.broadcast(s, r.participants(s))
	r.log.Info("router: presenter joined", "session", id, "conn", connID)
	return nil
}

func (r *Router) setQuestionDuration(connID string, payload json.RawMessage) error {
	p, raw, err := decodeDuration(payload)
	if err != nil {
		return err
	}
	id, err := validation.SessionID(p.SessionID)
	if err != nil {
		return err
	}
	duration, err := validation.QuestionDuration(raw)
	if err != nil {
		return err
	}
	s, err := r.presenterSession(connID, id)
	if err != nil {
		return err
	}
	// Participants already in the room got the duration with quizData, so it
	// only changes before the first question or after endTime.
	if s.timerRunning {
		return fmt.Errorf("set duration of %q: %w", id, domain.ErrQuestionOpen)
	}

	s.duration = duration
	s.touch(r.now())
	r.log.Debug("router: question duration set", "session", id, "seconds", duration)
	return nil
}

func (r *Router) setScoreMode(connID string, payload json.RawMessage) error {
	var p modePayload
	if err := decodeObject(payload, &p, "score mode"); err != nil {
		return err
	}
	id, err := validation.SessionID(p.SessionID)
	if err != nil {
		return err
	}
	mode, err := validation.ScoreMode(p.Mode)
	if err != nil {
		return err
	}
	s, err := r.presenterSession(connID, id)
	if err != nil {
		return err
	}

	s.scoreMode = mode
	s.touch(r.now())
	r.log.Debug("router: score mode set", "session", id, "mode", mode)
	return nil
}

func (r *Router) selectQuiz(connID string, payload json.RawMessage) error {
	var p filePayload
	if err := decodeObject(payload, &p, "quiz selection"); err != nil {
		return err
	}
	id, err := validation.SessionID(p.SessionID)
	if err != nil {
		return err
	}
	filename, err := validation.Filename(p.Filename)
	if err != nil {
		return err
	}
	s, err := r.presenterSession(connID, id)
	if err != nil {
		return err
	}

	s.selectedQuiz = filename
	s.touch(r.now())
	r.log.Debug("router: quiz selected", "session", id, "quiz", filename)
	return nil
}

// register adds connID as a participant. Late joiners are caught up with the
// quiz and the last question served, even after quizEnd.
func (r *Router) register(connID string, payload json.RawMessage) error {
	p, err := decodeRegister(payload)
	if err != nil {
		return err
	}
	name, err := validation.ParticipantName(p.Name)
	if err != nil {
		return err
	}
	id, err := validation.SessionID(p.SessionID)
	if err != nil {
		return err
	}
	s, err := r.lookup(id)
	if err != nil {
		return err
	}
	if _, ok := s.Score(connID); ok {
		return domain.ErrAlreadyRegistered
	}
	if s.hasName(name) {
		return fmt.Errorf("register %q in %q: %w", name, id, domain.ErrDuplicateName)
	}

	// A connection takes part in one session at a time.
	if prev, ok := r.participantOf[connID]; ok && prev != id {
		r.disconnectFrom(prev, connID)
	}

	if err := s.addParticipant(connID, name); err != nil {
		return err
	}
	r.joinRoom(s, connID)
	r.participantOf[connID] = id
	s.touch(r.now())

	r.broadcast(s, r.participants(s))
	r.log.Info("router: participant registered", "session", id, "conn", connID, "name", name)

	if s.Phase() == PhaseLobby {
		return nil
	}
	r.reply(connID, r.quizData(s))
	if idx, ok := s.catchUpIndex(); ok {
		r.reply(connID, Message{Type: OutQuestionChange, Payload: idx})
	} else {
		r.reply(connID, Message{Type: OutQuizEnd})
	}
	return nil
}

// disconnectFrom removes connID from a single session it moved away from.
func (r *Router) disconnectFrom(id, connID string) {
	delete(r.participantOf, connID)
	s, ok := r.sessions.Get(id)
	if !ok || !s.removeParticipant(connID) {
		return
	}
	if rooms, ok := r.roomsOf[connID]; ok {
		delete(rooms, id)
	}
	s.touch(r.now())
	r.broadcast(s, r.participants(s))
	r.log.Info("router: participant moved to another session", "session", id, "conn", connID)
}

// startQuiz loads the selected quiz off the event loop and installs it when
// the load completes.
func (r *Router) startQuiz(connID string, payload json.RawMessage) error {
	raw, err := decodeSessionArg(payload)
	if err != nil {
		return err
	}
	id, err := validation.SessionID(raw)
	if err != nil {
		return err
	}
	s, err := r.presenterSession(connID, id)
	if err != nil {
		return err
	}

	filename := s.SelectedQuiz()
	if filename == "" {
		filename = r.defaultQuiz
	}
	s.touch(r.now())

	r.async(func(ctx context.Context) func() {
		quiz, err := r.quizzes.GetQuiz(ctx, filename)
		return func() {
			r.installQuiz(connID, s, filename, quiz, err)
		}
	})
	return nil
}

func (r *Router) installQuiz(connID string, s *Session, filename string, quiz domain.Quiz, err error) {
	if err != nil {
		r.log.Error("router: load quiz failed", "session", s.ID(), "quiz", filename, "error", err)
		r.reply(connID, Message{Type: OutError, Payload: fmt.Sprintf("could not load quiz %s", filename)})
		return
	}
	// The session may have been evicted, and its id reused, while loading.
	if current, ok := r.sessions.Get(s.ID()); !ok || current != s {
		r.log.Warn("router: session gone before quiz loaded", "session", s.ID(), "quiz", filename)
		return
	}

	started := s.start(quiz)
	s.touch(r.now())
	r.broadcast(s, r.quizData(s))
	if !started {
		r.broadcast(s, Message{Type: OutQuizEnd})
		r.log.Warn("router: started quiz has no questions", "session", s.ID(), "quiz", filename)
		return
	}
	r.broadcast(s, Message{Type: OutQuestionChange, Payload: 0})
	r.log.Info("router: quiz started", "session", s.ID(), "quiz", filename, "title", s.Quiz().Title)
}

func (r *Router) nextQuestion(connID string, payload json.RawMessage) error {
	raw, err := decodeSessionArg(payload)
	if err != nil {
		return err
	}
	id, err := validation.SessionID(raw)
	if err != nil {
		return err
	}
	s, err := r.presenterSession(connID, id)
	if err != nil {
		return err
	}

	s.touch(r.now())
	idx, ok := s.advance()
	if !ok {
		r.broadcast(s, Message{Type: OutQuizEnd})
		r.log.Info("router: quiz ended", "session", id)
		return nil
	}
	r.broadcast(s, Message{Type: OutQuestionChange, Payload: idx})
	r.log.Info("router: question sent", "session", id, "index", idx)
	return nil
}

func (r *Router) endTime(connID string, payload json.RawMessage) error {
	raw, err := decodeSessionArg(payload)
	if err != nil {
		return err
	}
	id, err := validation.SessionID(raw)
	if err != nil {
		return err
	}
	s, err := r.presenterSession(connID, id)
	if err != nil {
		return err
	}

	s.touch(r.now())
	s.stopTimer()
	r.broadcast(s, Message{Type: OutForceDisable})
	r.log.Info("router: answering closed", "session", id)
	return nil
}

// answer scores the submission in the session the connection registered in.
// Submissions with no live question are ignored.
func (r *Router) answer(connID string, payload json.RawMessage) error {
	letters, err := decodeAnswer(payload)
	if err != nil {
		return err
	}
	selected, err := validation.AnswerLetters(letters)
	if err != nil {
		return err
	}

	id, ok := r.participantOf[connID]
	if !ok {
		return nil
	}
	s, ok := r.sessions.Get(id)
	if !ok {
		return nil
	}
	total, ok := s.recordAnswer(connID, selected)
	if !ok {
		return nil
	}
	s.touch(r.now())
	telemetry.AnswersScored.WithLabelValues(string(s.ScoreMode())).Inc()

	r.reply(connID, Message{Type: OutScoreUpdate, Payload: total})
	return nil
}

func (r *Router) showRanking(connID string, payload json.RawMessage) error {
	raw, err := decodeSessionArg(payload)
	if err != nil {
		return err
	}
	id, err := validation.SessionID(raw)
	if err != nil {
		return err
	}
	s, err := r.presenterSession(connID, id)
	if err != nil {
		return err
	}

	s.touch(r.now())
	r.broadcast(s, Message{Type: OutRanking, Payload: s.ranking()})
	r.log.Info("router: ranking sent", "session", id, "participants", len(s.participants))
	return nil
}

func (r *Router) requestQuizList(connID string, _ json.RawMessage) error {
	r.async(func(ctx context.Context) func() {
		list, err := r.quizzes.ListQuizzes(ctx)
		return func() {
			r.replyQuizList(connID, list, err)
		}
	})
	return nil
}

// uploadQuiz stores a new quiz under a free name and returns the refreshed list.
func (r *Router) uploadQuiz(connID string, payload json.RawMessage) error {
	raw, quiz, err := decodeUpload(payload)
	if err != nil {
		return err
	}
	filename, err := validation.Filename(raw)
	if err != nil {
		return err
	}
	if err := validation.QuizDocument(quiz); err != nil {
		return err
	}

	r.async(func(ctx context.Context) func() {
		saved, err := r.quizzes.SaveQuiz(ctx, filename, quiz)
		if err != nil {
			return func() {
				r.log.Error("router: save quiz failed", "quiz", filename, "error", err)
				r.reply(connID, Message{Type: OutError, Payload: "could not save quiz"})
			}
		}
		list, listErr := r.quizzes.ListQuizzes(ctx)
		return func() {
			r.log.Info("router: quiz uploaded", "quiz", saved, "conn", connID)
			r.replyQuizList(connID, list, listErr)
		}
	})
	return nil
}

func (r *Router) replyQuizList(connID string, list []domain.QuizSummary, err error) {
	if err != nil {
		r.log.Error("router: list quizzes failed", "error", err)
		if errors.Is(err, context.Canceled) {
			return
		}
		list = nil
	}
	if list == nil {
		list = []domain.QuizSummary{}
	}
	r.reply(connID, Message{Type: OutQuizList, Payload: list})
}
