package app

import (
	"bytes"
	"encoding/json"
	"strings"

	"quiz-orchestrator/internal/domain"
	"quiz-orchestrator/internal/validation"
)

type sessionPayload struct {
	SessionID string `json:"sessionId"`
}

type durationPayload struct {
	SessionID string          `json:"sessionId"`
	Duration  json.RawMessage `json:"duration"`
}

type filePayload struct {
	SessionID string `json:"sessionId"`
	Filename  string `json:"filename"`
}

type modePayload struct {
	SessionID string `json:"sessionId"`
	Mode      string `json:"mode"`
}

type registerPayload struct {
	Name      string `json:"name"`
	SessionID string `json:"sessionId"`
}

type uploadPayload struct {
	Filename string          `json:"filename"`
	Content  json.RawMessage `json:"content"`
}

type answerPayload struct {
	Answers []string `json:"answers"`
}

func malformed(field string) error {
	return &validation.ValidationError{Field: field, Reason: "malformed payload"}
}

func isJSONString(raw json.RawMessage) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte(`"`))
}

func isJSONArray(raw json.RawMessage) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte(`[`))
}

// decodeSessionArg accepts either "ABC" or {"sessionId":"ABC"}.
func decodeSessionArg(raw json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", nil
	}
	if isJSONString(raw) {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", malformed("session id")
		}
		return id, nil
	}
	var p sessionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", malformed("session id")
	}
	return p.SessionID, nil
}

// decodeRegister accepts {"name","sessionId"} or ["name","sessionId"].
func decodeRegister(raw json.RawMessage) (registerPayload, error) {
	var p registerPayload
	if isJSONArray(raw) {
		var args []string
		if err := json.Unmarshal(raw, &args); err != nil || len(args) != 2 {
			return p, malformed("register")
		}
		return registerPayload{Name: args[0], SessionID: args[1]}, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, malformed("register")
	}
	return p, nil
}

// decodeDuration returns the duration field as text, whether it was sent as a
// JSON number or a numeric string.
func decodeDuration(raw json.RawMessage) (durationPayload, string, error) {
	var p durationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, "", malformed("duration")
	}
	if isJSONString(p.Duration) {
		var s string
		if err := json.Unmarshal(p.Duration, &s); err != nil {
			return p, "", malformed("duration")
		}
		return p, s, nil
	}
	return p, strings.TrimSpace(string(p.Duration)), nil
}

// decodeAnswer accepts ["a","c"] or {"answers":["a","c"]}.
func decodeAnswer(raw json.RawMessage) ([]string, error) {
	if isJSONArray(raw) {
		var letters []string
		if err := json.Unmarshal(raw, &letters); err != nil {
			return nil, malformed("answer")
		}
		return letters, nil
	}
	var p answerPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, malformed("answer")
	}
	return p.Answers, nil
}

func decodeUpload(raw json.RawMessage) (string, domain.Quiz, error) {
	var p uploadPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", domain.Quiz{}, malformed("upload")
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(p.Content, &quiz); err != nil {
		return "", domain.Quiz{}, malformed("quiz")
	}
	return p.Filename, quiz, nil
}

func decodeObject(raw json.RawMessage, v any, field string) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return malformed(field)
	}
	return nil
}
