package cronium

import (
	"crypto/tls"
	"net/http"
	"os"
	"time"
)

// Environment variables consumed by ConfigFromEnv. They are set by the
// Cronium execution environment before the task process starts.
const (
	EnvRuntimeAPI     = "CRONIUM_RUNTIME_API"
	EnvExecutionToken = "CRONIUM_EXECUTION_TOKEN"
	EnvExecutionID    = "CRONIUM_EXECUTION_ID"
	EnvDebug          = "CRONIUM_DEBUG"
)

// Config holds the execution context a client is constructed with. It is
// resolved once and never mutated afterwards; a client never shares its
// Config with another client.
type Config struct {
	APIURL      string        // Runtime API base address (default: http://localhost:8081)
	Token       string        // Required: bearer token scoped to this execution
	ExecutionID string        // Required: identifier of the current execution
	Timeout     time.Duration // Per-attempt request timeout (default: 30s)
	MaxRetries  int           // Maximum attempts per call (default: 3)
	RetryDelay  time.Duration // Base backoff delay, doubled per retry (default: 1s)
	Debug       bool          // Enable debug logging to stderr

	// InsecureSkipVerify disables TLS certificate verification. Use only for
	// development and testing.
	InsecureSkipVerify bool

	// Metrics, when non-nil, receives per-operation instrumentation. See
	// NewMetrics.
	Metrics *Metrics
}

// ConfigFromEnv reads the execution context from the environment. Validation
// happens at client construction, not here, so the result can still be
// adjusted before use.
func ConfigFromEnv() Config {
	return Config{
		APIURL:      os.Getenv(EnvRuntimeAPI),
		Token:       os.Getenv(EnvExecutionToken),
		ExecutionID: os.Getenv(EnvExecutionID),
		Debug:       os.Getenv(EnvDebug) != "",
	}
}

func (c Config) withDefaults() Config {
	if c.APIURL == "" {
		c.APIURL = "http://localhost:8081"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 1 * time.Second
	}
	return c
}

// validate runs at construction so a misconfigured client fails before any
// network call is attempted.
func (c Config) validate() error {
	if c.Token == "" {
		return &ConfigError{Setting: EnvExecutionToken, Message: EnvExecutionToken + " environment variable not set"}
	}
	if c.ExecutionID == "" {
		return &ConfigError{Setting: EnvExecutionID, Message: EnvExecutionID + " environment variable not set"}
	}
	return nil
}

// transport builds the HTTP transport for a client. The blocking client
// disables keep-alives so every call opens and fully consumes one
// connection; the async client keeps a pool alive for its session.
func (c Config) transport(keepAlives bool) *http.Transport {
	t := &http.Transport{
		TLSClientConfig:   &tls.Config{InsecureSkipVerify: c.InsecureSkipVerify},
		DisableKeepAlives: !keepAlives,
	}
	if keepAlives {
		t.MaxIdleConns = 10
		t.MaxIdleConnsPerHost = 10
		t.IdleConnTimeout = 90 * time.Second
	}
	return t
}
