// Package validation holds the pure checks run on every inbound payload before
// any session state is touched.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"quiz-orchestrator/internal/domain"
)

const (
	MinNameLength     = 2
	MaxNameLength     = 30
	MinDuration       = 5
	MaxDuration       = 300
	MaxFilenameLength = 100
)

var (
	sessionIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	nameRegex      = regexp.MustCompile(`^[A-Za-zÀ-ÖØ-öø-ɏ0-9 _-]+$`)
	filenameRegex  = regexp.MustCompile(`^[A-Za-z0-9_-]+\.json$`)
)

// ValidationError describes why a field was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrValidation
}

func reject(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// SessionID accepts non-empty identifiers made of letters, digits, '_' and '-'.
func SessionID(raw string) (string, error) {
	if raw == "" {
		return "", reject("session id", "must not be empty")
	}
	if !sessionIDRegex.MatchString(raw) {
		return "", reject("session id", "only letters, digits, '_' and '-' are allowed")
	}
	return raw, nil
}

// ParticipantName trims the name and checks its length and alphabet.
// The trimmed value is what callers must store.
func ParticipantName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(name)
	if n < MinNameLength || n > MaxNameLength {
		return "", reject("name", "must be between %d and %d characters", MinNameLength, MaxNameLength)
	}
	if !nameRegex.MatchString(name) {
		return "", reject("name", "only letters, digits, spaces, '_' and '-' are allowed")
	}
	return name, nil
}

// QuestionDuration parses a duration in seconds. Out-of-range values are
// rejected, never clamped.
func QuestionDuration(raw string) (int, error) {
	d, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, reject("duration", "must be a whole number of seconds")
	}
	if d < MinDuration || d > MaxDuration {
		return 0, reject("duration", "must be between %d and %d seconds", MinDuration, MaxDuration)
	}
	return d, nil
}

// ScoreMode accepts exactly "complete" or "partial".
func ScoreMode(raw string) (domain.ScoreMode, error) {
	switch mode := domain.ScoreMode(raw); mode {
	case domain.ScoreComplete, domain.ScorePartial:
		return mode, nil
	default:
		return "", reject("score mode", "must be %q or %q", domain.ScoreComplete, domain.ScorePartial)
	}
}

// Filename accepts quiz file names like "my_quiz-2.json".
func Filename(raw string) (string, error) {
	if len(raw) > MaxFilenameLength {
		return "", reject("filename", "must be at most %d characters", MaxFilenameLength)
	}
	if !filenameRegex.MatchString(raw) {
		return "", reject("filename", "must match name.json using letters, digits, '_' and '-'")
	}
	return raw, nil
}

// AnswerLetters lower-cases and de-duplicates the submitted option letters,
// keeping first-seen order.
func AnswerLetters(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		letter := strings.ToLower(strings.TrimSpace(l))
		if !isOptionLetter(letter) {
			return nil, reject("answer", "unknown option %q", l)
		}
		if _, dup := seen[letter]; dup {
			continue
		}
		seen[letter] = struct{}{}
		out = append(out, letter)
	}
	return out, nil
}

// QuizDocument checks the structure of an uploaded quiz.
func QuizDocument(q domain.Quiz) error {
	if strings.TrimSpace(q.Title) == "" {
		return reject("quiz", "title must not be empty")
	}
	if q.Questions == nil {
		return reject("quiz", "questions must be an array")
	}
	for i, question := range q.Questions {
		if strings.TrimSpace(question.Text) == "" {
			return reject("quiz", "question %d has no text", i+1)
		}
		for j, opt := range question.Options() {
			if strings.TrimSpace(opt) == "" {
				return reject("quiz", "question %d option %c is empty", i+1, 'a'+j)
			}
		}
		if len(question.Correct) == 0 {
			return reject("quiz", "question %d has no correct option", i+1)
		}
		for _, l := range question.Correct {
			if !isOptionLetter(strings.ToLower(l)) {
				return reject("quiz", "question %d has unknown correct option %q", i+1, l)
			}
		}
	}
	return nil
}

func isOptionLetter(l string) bool {
	switch l {
	case "a", "b", "c", "d":
		return true
	}
	return false
}
