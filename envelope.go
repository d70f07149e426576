package cronium

import (
	"bytes"
	"encoding/json"
	"strings"
)

// envelope is the shape every Runtime API response conforms to. Success is a
// pointer so an explicit `"success": false` can be told apart from a body
// that omits the field entirely.
type envelope struct {
	Success *bool  `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

// rejected reports whether the envelope carries an explicit business-logic
// refusal.
func (e *envelope) rejected() bool {
	return e != nil && e.Success != nil && !*e.Success
}

// parseEnvelope decodes a response body. An empty body yields a nil envelope
// and no error.
func parseEnvelope(body []byte) (*envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// errorMessage extracts the service-supplied message from an error response
// body. A body that does not parse as the envelope is used verbatim.
func errorMessage(body []byte, fallback string) string {
	if env, err := parseEnvelope(body); err == nil && env != nil && env.Message != "" {
		return env.Message
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return fallback
}
