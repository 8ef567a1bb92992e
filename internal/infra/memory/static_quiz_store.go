package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"quiz-orchestrator/internal/domain"
)

// StaticQuizStore is a QuizStore backed by a map (useful for tests/demos).
type StaticQuizStore struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewStaticQuizStore(quizzes map[string]domain.Quiz) *StaticQuizStore {
	copied := make(map[string]domain.Quiz, len(quizzes))
	for name, q := range quizzes {
		copied[name] = q
	}
	return &StaticQuizStore{quizzes: copied}
}

func (s *StaticQuizStore) LoadQuiz(_ context.Context, filename string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if quiz, ok := s.quizzes[filename]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, fmt.Errorf("load %q: %w", filename, domain.ErrQuizNotFound)
}

func (s *StaticQuizStore) ListQuizzes(_ context.Context) ([]domain.QuizSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizSummary, 0, len(s.quizzes))
	for name, q := range s.quizzes {
		title := q.Title
		if title == "" {
			title = name
		}
		out = append(out, domain.QuizSummary{Filename: name, Title: title})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

func (s *StaticQuizStore) SaveQuiz(_ context.Context, filename string, quiz domain.Quiz) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; ; attempt++ {
		name := domain.QuizFilenameCandidate(filename, attempt)
		if _, taken := s.quizzes[name]; !taken {
			s.quizzes[name] = quiz
			return name, nil
		}
	}
}
