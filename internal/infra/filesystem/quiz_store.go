package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"quiz-orchestrator/internal/domain"
)

// QuizStore reads and writes quiz documents as *.json files in one directory.
type QuizStore struct {
	dir string
	log *slog.Logger
}

func NewQuizStore(dir string, log *slog.Logger) *QuizStore {
	if log == nil {
		log = slog.Default()
	}
	return &QuizStore{dir: dir, log: log}
}

func (s *QuizStore) LoadQuiz(_ context.Context, filename string) (domain.Quiz, error) {
	raw, err := os.ReadFile(s.path(filename))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Quiz{}, fmt.Errorf("load %q: %w", filename, domain.ErrQuizNotFound)
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("read %q: %v: %w", filename, err, domain.ErrStorage)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("parse %q: %v: %w", filename, err, domain.ErrStorage)
	}
	return quiz, nil
}

// ListQuizzes returns every readable quiz sorted by filename. A missing
// directory is an empty list; unparseable files are skipped.
func (s *QuizStore) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.QuizSummary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %q: %v: %w", s.dir, err, domain.ErrStorage)
	}

	out := make([]domain.QuizSummary, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		quiz, err := s.LoadQuiz(ctx, e.Name())
		if err != nil {
			s.log.Warn("filesystem: skipping quiz file", "file", e.Name(), "error", err)
			continue
		}
		title := quiz.Title
		if title == "" {
			title = e.Name()
		}
		out = append(out, domain.QuizSummary{Filename: e.Name(), Title: title})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

// SaveQuiz writes the quiz under filename or the first free name_N.json.
// Names are claimed with O_EXCL, so concurrent saves never overwrite each other.
func (s *QuizStore) SaveQuiz(_ context.Context, filename string, quiz domain.Quiz) (string, error) {
	raw, err := json.MarshalIndent(quiz, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal quiz: %v: %w", err, domain.ErrStorage)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create %q: %v: %w", s.dir, err, domain.ErrStorage)
	}

	for attempt := 0; ; attempt++ {
		name := domain.QuizFilenameCandidate(filename, attempt)
		f, err := os.OpenFile(s.path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %q: %v: %w", name, err, domain.ErrStorage)
		}
		_, werr := f.Write(raw)
		cerr := f.Close()
		if werr != nil || cerr != nil {
			_ = os.Remove(s.path(name))
			return "", fmt.Errorf("write %q: %v: %w", name, errors.Join(werr, cerr), domain.ErrStorage)
		}
		return name, nil
	}
}

func (s *QuizStore) path(filename string) string {
	return filepath.Join(s.dir, filepath.Base(filename))
}
