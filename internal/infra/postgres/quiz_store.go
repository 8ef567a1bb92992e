package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-orchestrator/internal/domain"
)

// QuizStore keeps quiz documents as JSONB rows keyed by filename.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

func (s *QuizStore) LoadQuiz(ctx context.Context, filename string) (domain.Quiz, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE filename=$1`, filename).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, fmt.Errorf("load quiz %q: %w", filename, domain.ErrQuizNotFound)
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz %q: %v: %w", filename, err, domain.ErrStorage)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz %q: %v: %w", filename, err, domain.ErrStorage)
	}
	return quiz, nil
}

func (s *QuizStore) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	rows, err := s.pool.Query(ctx, `SELECT filename, COALESCE(NULLIF(title, ''), filename) FROM quizzes ORDER BY filename`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %v: %w", err, domain.ErrStorage)
	}
	defer rows.Close()

	out := []domain.QuizSummary{}
	for rows.Next() {
		var q domain.QuizSummary
		if err := rows.Scan(&q.Filename, &q.Title); err != nil {
			return nil, fmt.Errorf("scan quiz: %v: %w", err, domain.ErrStorage)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list quizzes: %v: %w", err, domain.ErrStorage)
	}
	return out, nil
}

// SaveQuiz inserts under the first free candidate name. The primary key makes
// concurrent saves of the same name pick different candidates.
func (s *QuizStore) SaveQuiz(ctx context.Context, filename string, quiz domain.Quiz) (string, error) {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return "", fmt.Errorf("marshal quiz: %v: %w", err, domain.ErrStorage)
	}
	for attempt := 0; ; attempt++ {
		name := domain.QuizFilenameCandidate(filename, attempt)
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO quizzes (filename, title, data) VALUES ($1, $2, $3) ON CONFLICT (filename) DO NOTHING`,
			name, quiz.Title, raw)
		if err != nil {
			return "", fmt.Errorf("save quiz %q: %v: %w", name, err, domain.ErrStorage)
		}
		if tag.RowsAffected() == 1 {
			return name, nil
		}
	}
}
