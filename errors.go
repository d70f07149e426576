package cronium

import "fmt"

// ConfigError reports missing or invalid client configuration. It is
// returned from client construction, before any request is made, and from
// misuse of a released client.
type ConfigError struct {
	Setting string // environment variable or field at fault, if known
	Message string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Message
}

// APIError means the service was reached and answered with a rejection:
// a 4xx/5xx status or an envelope with success=false.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// TimeoutError means no response arrived within the per-attempt timeout on
// any attempt.
type TimeoutError struct {
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out: %v", e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// TransportError means the request failed below the HTTP layer (connection
// refused, reset, DNS, unreadable response) on every attempt.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
