// Package croniumtest provides an in-process Runtime API stub for testing
// code built on the cronium client. The stub speaks the real wire contract,
// including the response envelope and bearer authentication, and records
// enough about incoming traffic to assert on retries and tool calls.
package croniumtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

// ToolCall records one request to the tool-action endpoint.
type ToolCall struct {
	Tool           string
	Action         string
	Config         map[string]any
	IdempotencyKey string
}

// Server is a stub Runtime API backed by httptest. Construct one with
// NewServer, point a client at URL(), and shut it down with Close.
//
// All methods are safe for concurrent use.
type Server struct {
	httpServer *httptest.Server
	token      string

	mu        sync.Mutex
	requests  int
	failNext  int
	failCode  int
	input     any
	output    any
	variables map[string]any
	condition *bool
	event     map[string]any
	toolRes   any
	toolCalls []ToolCall
}

// NewServer starts a stub that accepts the given bearer token. Requests with
// any other token are rejected with a 401 envelope.
func NewServer(token string) *Server {
	s := &Server{
		token:     token,
		variables: make(map[string]any),
	}

	r := mux.NewRouter()
	r.Use(s.countRequests, s.injectFailures, s.checkAuth)

	exec := r.PathPrefix("/executions/{id}").Subrouter()
	exec.HandleFunc("/input", s.handleInput).Methods(http.MethodGet)
	exec.HandleFunc("/output", s.handleOutput).Methods(http.MethodPost)
	exec.HandleFunc("/condition", s.handleCondition).Methods(http.MethodPost)
	exec.HandleFunc("/context", s.handleContext).Methods(http.MethodGet)
	exec.HandleFunc("/variables/{key}", s.handleGetVariable).Methods(http.MethodGet)
	exec.HandleFunc("/variables/{key}", s.handlePutVariable).Methods(http.MethodPut)

	r.HandleFunc("/tool-actions/execute", s.handleToolAction).Methods(http.MethodPost)

	s.httpServer = httptest.NewServer(r)
	return s
}

// URL returns the base address clients should use as their API URL.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// Close shuts the stub down.
func (s *Server) Close() {
	s.httpServer.Close()
}

// Requests returns how many requests the stub has received, including ones
// that were rejected or force-failed. Useful for asserting attempt counts.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// ResetRequests zeroes the request counter.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = 0
}

// FailNext makes the next n requests fail with the given status code before
// normal handling resumes.
func (s *Server) FailNext(n, statusCode int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
	s.failCode = statusCode
}

// SetInput sets the execution input returned by the input endpoint.
func (s *Server) SetInput(data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = data
}

// Output returns the last data stored through the output endpoint.
func (s *Server) Output() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

// Variable returns the stored value for key and whether it is set.
func (s *Server) Variable(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variables[key]
	return v, ok
}

// PutVariable seeds a variable without going through the API.
func (s *Server) PutVariable(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variables[key] = value
}

// Condition returns the last condition value set, and whether one was set.
func (s *Server) Condition() (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.condition == nil {
		return false, false
	}
	return *s.condition, true
}

// SetEvent sets the event context returned by the context endpoint. When no
// event is set the endpoint serves an empty data object.
func (s *Server) SetEvent(event map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.event = event
}

// SetToolResult sets the data returned by the tool-action endpoint.
func (s *Server) SetToolResult(result any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolRes = result
}

// ToolCalls returns all recorded tool-action requests, oldest first.
func (s *Server) ToolCalls() []ToolCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ToolCall, len(s.toolCalls))
	copy(out, s.toolCalls)
	return out
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		inject := s.failNext > 0
		code := s.failCode
		if inject {
			s.failNext--
		}
		s.mu.Unlock()
		if inject {
			writeError(w, code, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.token {
			writeError(w, http.StatusUnauthorized, "invalid execution token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data := s.input
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Data any `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.mu.Lock()
	s.output = body.Data
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleCondition(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Condition *bool `json:"condition"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Condition == nil {
		writeError(w, http.StatusBadRequest, "condition must be a boolean")
		return
	}
	s.mu.Lock()
	s.condition = body.Condition
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	event := s.event
	s.mu.Unlock()
	if event == nil {
		event = map[string]any{}
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleGetVariable(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	s.mu.Lock()
	value, ok := s.variables[key]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "variable not found: "+key)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": value})
}

func (s *Server) handlePutVariable(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var body struct {
		Value any `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.mu.Lock()
	s.variables[key] = body.Value
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleToolAction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tool   string         `json:"tool"`
		Action string         `json:"action"`
		Config map[string]any `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Tool == "" || body.Action == "" {
		writeError(w, http.StatusBadRequest, "tool and action are required")
		return
	}
	call := ToolCall{
		Tool:           body.Tool,
		Action:         body.Action,
		Config:         body.Config,
		IdempotencyKey: r.Header.Get("X-Idempotency-Key"),
	}
	s.mu.Lock()
	s.toolCalls = append(s.toolCalls, call)
	result := s.toolRes
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
	})
}
