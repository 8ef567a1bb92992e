package app

import (
	"slices"
	"strings"
	"time"

	"quiz-orchestrator/internal/domain"
)

const (
	DefaultQuestionDuration = 60
	DefaultScoreMode        = domain.ScoreComplete
)

// Phase is the lifecycle state of a session.
type Phase int

const (
	// PhaseLobby: no quiz has been started yet.
	PhaseLobby Phase = iota
	// PhaseInProgress: a quiz is loaded and a question is live.
	PhaseInProgress
	// PhaseEnded: the presenter advanced past the last question.
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseLobby:
		return "lobby"
	case PhaseInProgress:
		return "in_progress"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Session is one running or pending quiz instance. It is not safe for
// concurrent use; the router's event loop is its only caller.
type Session struct {
	id           string
	hostConnID   string
	presenters   map[string]struct{}
	room         map[string]struct{}
	participants []domain.Participant
	scores       map[string]int

	quiz         domain.Quiz
	phase        Phase
	next         int
	duration     int
	scoreMode    domain.ScoreMode
	selectedQuiz string
	// timerRunning is set while the presenter's answer timer for the served
	// question is running.
	timerRunning bool

	createdAt    time.Time
	lastActivity time.Time
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id, hostConnID string, now time.Time) *Session {
	s := &Session{
		id:           id,
		hostConnID:   hostConnID,
		presenters:   make(map[string]struct{}),
		room:         make(map[string]struct{}),
		scores:       make(map[string]int),
		duration:     DefaultQuestionDuration,
		scoreMode:    DefaultScoreMode,
		createdAt:    now,
		lastActivity: now,
	}
	if hostConnID != "" {
		s.presenters[hostConnID] = struct{}{}
		s.room[hostConnID] = struct{}{}
	}
	return s
}

func (s *Session) ID() string                  { return s.id }
func (s *Session) HostConnID() string          { return s.hostConnID }
func (s *Session) Phase() Phase                { return s.phase }
func (s *Session) Duration() int               { return s.duration }
func (s *Session) ScoreMode() domain.ScoreMode { return s.scoreMode }
func (s *Session) SelectedQuiz() string        { return s.selectedQuiz }
func (s *Session) LastActivity() time.Time     { return s.lastActivity }
func (s *Session) Quiz() domain.Quiz           { return s.quiz }

// NextIndex is the index of the question the next advance will serve.
func (s *Session) NextIndex() int { return s.next }

// Participants returns a copy of the participant list in join order.
func (s *Session) Participants() []domain.Participant {
	return append(make([]domain.Participant, 0, len(s.participants)), s.participants...)
}

// Score returns the running total of a participant connection.
func (s *Session) Score(connID string) (int, bool) {
	score, ok := s.scores[connID]
	return score, ok
}

// Room returns the connection ids joined to the session's broadcast group.
func (s *Session) Room() []string {
	ids := make([]string, 0, len(s.room))
	for id := range s.room {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Session) touch(now time.Time) {
	s.lastActivity = now
}

func (s *Session) joinRoom(connID string) {
	s.room[connID] = struct{}{}
}

func (s *Session) leaveRoom(connID string) {
	delete(s.room, connID)
	delete(s.presenters, connID)
}

func (s *Session) addPresenter(connID string) {
	s.presenters[connID] = struct{}{}
	s.hostConnID = connID
	s.joinRoom(connID)
}

func (s *Session) isPresenter(connID string) bool {
	_, ok := s.presenters[connID]
	return ok
}

func (s *Session) hasName(name string) bool {
	for _, p := range s.participants {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// addParticipant appends the participant and seeds its score in one step.
func (s *Session) addParticipant(connID, name string) error {
	if s.hasName(name) {
		return domain.ErrDuplicateName
	}
	s.participants = append(s.participants, domain.Participant{ConnID: connID, Name: name})
	s.scores[connID] = 0
	s.joinRoom(connID)
	return nil
}

// removeParticipant drops the connection from participants, scores and room.
// It reports whether the connection was a participant.
func (s *Session) removeParticipant(connID string) bool {
	idx := slices.IndexFunc(s.participants, func(p domain.Participant) bool {
		return p.ConnID == connID
	})
	if idx < 0 {
		return false
	}
	s.participants = slices.Delete(s.participants, idx, idx+1)
	delete(s.scores, connID)
	s.leaveRoom(connID)
	return true
}

// start installs a quiz run and serves question 0. It reports false when the
// quiz has no questions, in which case the session is already ended.
func (s *Session) start(quiz domain.Quiz) bool {
	s.quiz = domain.Quiz{Title: quiz.DisplayTitle(), Questions: slices.Clone(quiz.Questions)}
	s.next = 0
	if len(s.quiz.Questions) == 0 {
		s.phase = PhaseEnded
		s.timerRunning = false
		return false
	}
	s.phase = PhaseInProgress
	s.next = 1
	s.timerRunning = true
	return true
}

// advance serves the next question. ok is false once every question has been
// served; the session is then ended and stays there on repeated calls. next
// never moves past len(questions).
func (s *Session) advance() (index int, ok bool) {
	if s.phase == PhaseLobby {
		return 0, false
	}
	if s.next >= len(s.quiz.Questions) {
		s.phase = PhaseEnded
		s.timerRunning = false
		return 0, false
	}
	index = s.next
	s.next++
	s.timerRunning = true
	return index, true
}

// stopTimer marks the served question's timer as expired.
func (s *Session) stopTimer() {
	s.timerRunning = false
}

// liveQuestion returns the last question served. It stays answerable after
// quizEnd until another quiz is started.
func (s *Session) liveQuestion() (domain.Question, int, bool) {
	if s.phase == PhaseLobby {
		return domain.Question{}, 0, false
	}
	idx := s.next - 1
	if idx < 0 || idx >= len(s.quiz.Questions) {
		return domain.Question{}, 0, false
	}
	return s.quiz.Questions[idx], idx, true
}

// catchUpIndex is the question a late joiner should be shown. ok is false only
// when no question was ever served.
func (s *Session) catchUpIndex() (int, bool) {
	_, idx, ok := s.liveQuestion()
	return idx, ok
}

// recordAnswer scores selected against the live question and returns the new
// total. ok is false when there is no live question or the connection has no
// score entry.
func (s *Session) recordAnswer(connID string, selected []string) (total int, ok bool) {
	current, has := s.scores[connID]
	if !has {
		return 0, false
	}
	question, _, live := s.liveQuestion()
	if !live {
		return 0, false
	}
	total = current + ScoreAnswer(s.scoreMode, question.Correct, selected)
	s.scores[connID] = total
	return total, true
}

// ranking lists every participant by descending score, ties in join order.
func (s *Session) ranking() []domain.RankingEntry {
	entries := make([]domain.RankingEntry, 0, len(s.participants))
	for _, p := range s.participants {
		entries = append(entries, domain.RankingEntry{Name: p.Name, Score: s.scores[p.ConnID]})
	}
	slices.SortStableFunc(entries, func(a, b domain.RankingEntry) int {
		return b.Score - a.Score
	})
	return entries
}
