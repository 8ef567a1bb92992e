package validation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-orchestrator/internal/domain"
	"quiz-orchestrator/internal/validation"
)

func TestSessionID(t *testing.T) {
	tests := map[string]struct {
		in      string
		wantErr bool
	}{
		"uppercase code":        {in: "AB12CD34"},
		"mixed with separators": {in: "room_1-b"},
		"long ids are accepted": {in: "A123456789012345678901234567890123456789012345678901234567890123456789"},
		"empty":                 {in: "", wantErr: true},
		"space":                 {in: "AB 12", wantErr: true},
		"slash":                 {in: "../etc", wantErr: true},
		"accented":              {in: "CAFÉ", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := validation.SessionID(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.in, got)
		})
	}
}

func TestParticipantName(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    string
		wantErr bool
	}{
		"plain":                 {in: "Alice", want: "Alice"},
		"trimmed":               {in: "  Bob  ", want: "Bob"},
		"accented letters":      {in: "Niccolò Ça", want: "Niccolò Ça"},
		"digits and separators": {in: "team_4-b", want: "team_4-b"},
		"two characters":        {in: "Al", want: "Al"},
		"thirty characters":     {in: "abcdefghijabcdefghijabcdefghij", want: "abcdefghijabcdefghijabcdefghij"},
		"one character":         {in: "A", wantErr: true},
		"one after trimming":    {in: "  A  ", wantErr: true},
		"thirty one characters": {in: "abcdefghijabcdefghijabcdefghijk", wantErr: true},
		"markup":                {in: "<b>x</b>", wantErr: true},
		"multiplication sign":   {in: "a×b", wantErr: true},
		"emoji":                 {in: "ok 👍", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := validation.ParticipantName(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				var verr *validation.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, "name", verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestQuestionDuration(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    int
		wantErr bool
	}{
		"lower bound": {in: "5", want: 5},
		"upper bound": {in: "300", want: 300},
		"default":     {in: "60", want: 60},
		"below":       {in: "4", wantErr: true},
		"above":       {in: "301", wantErr: true},
		"fraction":    {in: "30.5", wantErr: true},
		"text":        {in: "soon", wantErr: true},
		"empty":       {in: "", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := validation.QuestionDuration(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestScoreMode(t *testing.T) {
	mode, err := validation.ScoreMode("partial")
	require.NoError(t, err)
	assert.Equal(t, domain.ScorePartial, mode)

	mode, err = validation.ScoreMode("complete")
	require.NoError(t, err)
	assert.Equal(t, domain.ScoreComplete, mode)

	for _, bad := range []string{"", "Partial", "parziale", "all"} {
		_, err := validation.ScoreMode(bad)
		assert.Error(t, err, bad)
	}
}

func TestFilename(t *testing.T) {
	_, err := validation.Filename("quiz.json")
	require.NoError(t, err)
	_, err = validation.Filename("my_quiz-2.json")
	require.NoError(t, err)

	long := make([]byte, 96)
	for i := range long {
		long[i] = 'q'
	}
	_, err = validation.Filename(string(long) + ".json")
	assert.Error(t, err, "101 characters")

	for _, bad := range []string{"", "quiz", "quiz.txt", "../quiz.json", "my quiz.json", "quiz.json.json"} {
		_, err := validation.Filename(bad)
		assert.Error(t, err, bad)
	}
}

func TestAnswerLetters(t *testing.T) {
	got, err := validation.AnswerLetters([]string{"C", "a", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, got)

	got, err = validation.AnswerLetters(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = validation.AnswerLetters([]string{"a", "e"})
	assert.Error(t, err)
}

func TestQuizDocument(t *testing.T) {
	valid := domain.Quiz{
		Title: "Capitals",
		Questions: []domain.Question{
			{Text: "Capital of Italy?", A: "Rome", B: "Milan", C: "Turin", D: "Naples", Correct: []string{"a"}},
		},
	}
	require.NoError(t, validation.QuizDocument(valid))

	noTitle := valid
	noTitle.Title = " "
	assert.Error(t, validation.QuizDocument(noTitle))

	noQuestions := domain.Quiz{Title: "x"}
	assert.Error(t, validation.QuizDocument(noQuestions))

	missingOption := valid
	missingOption.Questions = []domain.Question{{Text: "q", A: "1", B: "2", C: "3", Correct: []string{"a"}}}
	assert.Error(t, validation.QuizDocument(missingOption))

	noCorrect := valid
	noCorrect.Questions = []domain.Question{{Text: "q", A: "1", B: "2", C: "3", D: "4", Correct: []string{}}}
	assert.Error(t, validation.QuizDocument(noCorrect))

	badLetter := valid
	badLetter.Questions = []domain.Question{{Text: "q", A: "1", B: "2", C: "3", D: "4", Correct: []string{"e"}}}
	assert.Error(t, validation.QuizDocument(badLetter))
}
