// Package logger provides the structured JSON logging used by the client
// internals. Entries carry the execution ID so lines from concurrent
// executions on one host can be separated downstream.
package logger

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	DEBUG Level = "DEBUG"
	INFO  Level = "INFO"
	WARN  Level = "WARN"
	ERROR Level = "ERROR"
)

func rank(l Level) int {
	switch l {
	case DEBUG:
		return 0
	case INFO:
		return 1
	case WARN:
		return 2
	default:
		return 3
	}
}

// Logger writes structured JSON entries, one per line.
type Logger struct {
	Component   string
	ExecutionID string

	minLevel Level
	out      *log.Logger
}

// Entry is the wire shape of one log line.
type Entry struct {
	Timestamp   string         `json:"timestamp"`
	Level       Level          `json:"level"`
	Component   string         `json:"component"`
	ExecutionID string         `json:"execution_id"`
	RequestID   string         `json:"request_id,omitempty"`
	Message     string         `json:"message"`
	Fields      map[string]any `json:"fields,omitempty"`
}

// New creates a Logger for the given component, scoped to one execution.
// When debug is false, DEBUG entries are suppressed. Output goes to stderr
// so it never mixes with task output on stdout.
func New(component, executionID string, debug bool) *Logger {
	min := INFO
	if debug {
		min = DEBUG
	}
	return &Logger{
		Component:   component,
		ExecutionID: executionID,
		minLevel:    min,
		out:         log.New(os.Stderr, "", 0),
	}
}

// SetOutput redirects log output, mainly for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.out = log.New(w, "", 0)
}

// Log writes one entry at the given level, if the level is enabled.
func (l *Logger) Log(level Level, requestID, message string, fields map[string]any) {
	if rank(level) < rank(l.minLevel) {
		return
	}
	entry := Entry{
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
		Level:       level,
		Component:   l.Component,
		ExecutionID: l.ExecutionID,
		RequestID:   requestID,
		Message:     message,
		Fields:      fields,
	}
	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		// Fall back to plain text if marshaling fails.
		l.out.Printf("ERROR: failed to marshal log entry: %v", err)
		return
	}
	l.out.Println(string(jsonBytes))
}

// Debug logs a debug message.
func (l *Logger) Debug(requestID, message string, fields map[string]any) {
	l.Log(DEBUG, requestID, message, fields)
}

// Info logs an informational message.
func (l *Logger) Info(requestID, message string, fields map[string]any) {
	l.Log(INFO, requestID, message, fields)
}

// Warn logs a warning message.
func (l *Logger) Warn(requestID, message string, fields map[string]any) {
	l.Log(WARN, requestID, message, fields)
}

// Error logs an error message.
func (l *Logger) Error(requestID, message string, fields map[string]any) {
	l.Log(ERROR, requestID, message, fields)
}
