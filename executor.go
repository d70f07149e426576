package cronium

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cronium-hq/cronium-sdk-go/internal/logger"
)

// headerIdempotencyKey carries the client-generated token that lets the
// service deduplicate retried side-effecting calls. One key is minted per
// logical call and reused across all of its attempts.
const headerIdempotencyKey = "X-Idempotency-Key"

// executor runs one logical Runtime API call: build the request, send it,
// classify the outcome, retry with exponential backoff. Both client façades
// share this engine and differ only in the http.Client they send through.
// The executor keeps no mutable state across calls, so concurrent
// invocations never interact.
type executor struct {
	cfg     Config
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

func newExecutor(cfg Config, client *http.Client) *executor {
	return &executor{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		client:  client,
		log:     logger.New("cronium-sdk", cfg.ExecutionID, cfg.Debug),
	}
}

// execute performs the call described by method/path/body and returns the
// decoded envelope (nil for an empty body). Failure classification:
//
//   - timeouts and transport errors: retried; typed TimeoutError or
//     TransportError once attempts are exhausted
//   - status >= 500: retried; typed APIError on exhaustion
//   - status 4xx: fatal APIError, never retried
//   - 2xx envelope with success=false: fatal APIError with that response's
//     status, never retried
//   - anything else (e.g. unparseable 2xx body): retried; typed with the
//     causing error on exhaustion
func (e *executor) execute(ctx context.Context, op, method, path string, body any) (*envelope, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, &TransportError{Err: fmt.Errorf("encode request body: %w", err)}
		}
	}

	key := uuid.NewString()
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(e.cfg.RetryDelay, attempt)
			e.log.Warn(key, "retrying request", map[string]any{
				"operation": op,
				"attempt":   attempt + 1,
				"delay":     delay.String(),
				"error":     lastErr.Error(),
			})
			e.cfg.Metrics.recordRetry(op)
			if err := sleepCtx(ctx, delay); err != nil {
				e.cfg.Metrics.record(op, "error", time.Since(start))
				return nil, err
			}
		}

		e.log.Debug(key, "sending request", map[string]any{
			"operation": op,
			"method":    method,
			"path":      path,
			"attempt":   attempt + 1,
		})

		env, retryable, err := e.attempt(ctx, method, path, payload, key)
		if err == nil {
			e.cfg.Metrics.record(op, "success", time.Since(start))
			return env, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			break
		}
	}

	e.cfg.Metrics.record(op, "error", time.Since(start))
	return nil, lastErr
}

// attempt sends one request and classifies its outcome. The boolean reports
// whether the failure is transient and eligible for another attempt.
func (e *executor) attempt(ctx context.Context, method, path string, payload []byte, key string) (*envelope, bool, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, reader)
	if err != nil {
		return nil, false, &TransportError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+e.cfg.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerIdempotencyKey, key)

	resp, err := e.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, true, &TimeoutError{Err: err}
		}
		return nil, true, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, true, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body, http.StatusText(resp.StatusCode)),
		}
	case resp.StatusCode >= 400:
		return nil, false, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body, http.StatusText(resp.StatusCode)),
		}
	}

	env, err := parseEnvelope(body)
	if err != nil {
		return nil, true, &TransportError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if env.rejected() {
		msg := env.Message
		if msg == "" {
			msg = "unknown error"
		}
		// A logical refusal from the service, not a transient fault.
		return nil, false, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return env, false, nil
}

// backoffDelay returns the wait before retry number attempt (1-indexed):
// base * 2^(attempt-1). No jitter.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
