package domain

import (
	"fmt"
	"strings"
)

// DefaultQuizTitle is used when a quiz document has no title.
const DefaultQuizTitle = "Quiz"

// Question is one multiple-choice question in the on-disk quiz shape.
type Question struct {
	Text    string   `json:"question"`
	A       string   `json:"a"`
	B       string   `json:"b"`
	C       string   `json:"c"`
	D       string   `json:"d"`
	Correct []string `json:"correct"`
}

// Options returns the four option texts in letter order.
func (q Question) Options() [4]string {
	return [4]string{q.A, q.B, q.C, q.D}
}

// Quiz is a titled, ordered list of questions.
type Quiz struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// DisplayTitle returns the title, or DefaultQuizTitle when it is blank.
func (q Quiz) DisplayTitle() string {
	if strings.TrimSpace(q.Title) == "" {
		return DefaultQuizTitle
	}
	return q.Title
}

// QuizSummary is an entry of the quiz list shown to presenters.
type QuizSummary struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
}

// Participant is a registered quiz-taker. ConnID is the connection that registered it.
type Participant struct {
	ConnID string `json:"id"`
	Name   string `json:"name"`
}

// RankingEntry is one row of the final ranking.
type RankingEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// ScoreMode selects how submitted answers are scored.
type ScoreMode string

const (
	ScoreComplete ScoreMode = "complete"
	ScorePartial  ScoreMode = "partial"
)

// QuizFilenameCandidate returns the name to try for the given collision attempt:
// "base.json" for attempt 0, then "base_1.json", "base_2.json", ...
func QuizFilenameCandidate(filename string, attempt int) string {
	base := strings.TrimSuffix(filename, ".json")
	if attempt == 0 {
		return base + ".json"
	}
	return fmt.Sprintf("%s_%d.json", base, attempt)
}
