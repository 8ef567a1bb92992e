package app

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-orchestrator/internal/domain"
)

func TestDecodeSessionArg(t *testing.T) {
	tests := map[string]struct {
		in      string
		want    string
		wantErr bool
	}{
		"bare string": {in: `"ROOM1"`, want: "ROOM1"},
		"object":      {in: `{"sessionId":"ROOM1"}`, want: "ROOM1"},
		"empty":       {in: ``, want: ""},
		"number":      {in: `42`, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := decodeSessionArg(json.RawMessage(tc.in))
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeRegister(t *testing.T) {
	p, err := decodeRegister(json.RawMessage(`["Alice","ROOM1"]`))
	require.NoError(t, err)
	assert.Equal(t, registerPayload{Name: "Alice", SessionID: "ROOM1"}, p)

	p, err = decodeRegister(json.RawMessage(`{"name":"Bob","sessionId":"ROOM2"}`))
	require.NoError(t, err)
	assert.Equal(t, registerPayload{Name: "Bob", SessionID: "ROOM2"}, p)

	_, err = decodeRegister(json.RawMessage(`["only-one"]`))
	assert.Error(t, err)
}

func TestDecodeDuration(t *testing.T) {
	for in, want := range map[string]string{
		`{"sessionId":"R","duration":45}`:   "45",
		`{"sessionId":"R","duration":"45"}`: "45",
		`{"sessionId":"R","duration":4.5}`:  "4.5",
	} {
		p, raw, err := decodeDuration(json.RawMessage(in))
		require.NoError(t, err, in)
		assert.Equal(t, "R", p.SessionID)
		assert.Equal(t, want, raw, in)
	}
}

func TestDecodeAnswer(t *testing.T) {
	got, err := decodeAnswer(json.RawMessage(`["a","c"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, got)

	got, err = decodeAnswer(json.RawMessage(`{"answers":["b"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, got)

	_, err = decodeAnswer(json.RawMessage(`"a"`))
	assert.Error(t, err)
}

func TestDecodeUpload(t *testing.T) {
	raw := `{"filename":"q.json","content":{"title":"T","questions":[{"question":"?","a":"1","b":"2","c":"3","d":"4","correct":["a"]}]}}`
	name, quiz, err := decodeUpload(json.RawMessage(raw))
	require.NoError(t, err)
	assert.Equal(t, "q.json", name)
	assert.Equal(t, "T", quiz.Title)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, "?", quiz.Questions[0].Text)

	_, _, err = decodeUpload(json.RawMessage(`{"filename":"q.json","content":"nope"}`))
	assert.Error(t, err)
}
