package cronium

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) Config {
	return Config{
		APIURL:      url,
		Token:       "test-token",
		ExecutionID: "exec-test",
		Timeout:     2 * time.Second,
		MaxRetries:  3,
		RetryDelay:  time.Millisecond,
	}
}

// scriptedHandler serves a fixed sequence of responses and records every
// request it sees.
type scriptedHandler struct {
	mu        sync.Mutex
	responses []scriptedResponse
	requests  []*http.Request
	keys      []string
}

type scriptedResponse struct {
	status int
	body   string
}

func (h *scriptedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = append(h.requests, r)
	h.keys = append(h.keys, r.Header.Get(headerIdempotencyKey))
	i := len(h.requests) - 1
	resp := h.responses[len(h.responses)-1]
	if i < len(h.responses) {
		resp = h.responses[i]
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func (h *scriptedHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.requests)
}

func (h *scriptedHandler) idempotencyKeys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.keys))
	copy(out, h.keys)
	return out
}

func TestRetryOnServerErrorThenSuccess(t *testing.T) {
	h := &scriptedHandler{responses: []scriptedResponse{
		{status: 503, body: `{"success":false,"message":"warming up"}`},
		{status: 500, body: ``},
		{status: 200, body: `{"success":true,"data":"ok"}`},
	}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	data, err := client.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", data)
	assert.Equal(t, 3, h.count())
}

func TestServerErrorExhaustsRetries(t *testing.T) {
	h := &scriptedHandler{responses: []scriptedResponse{
		{status: 502, body: `{"success":false,"message":"bad gateway"}`},
	}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.Input(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 502, apiErr.StatusCode)
	assert.Equal(t, "bad gateway", apiErr.Message)
	assert.Equal(t, 3, h.count())
}

func TestClientErrorIsFatal(t *testing.T) {
	h := &scriptedHandler{responses: []scriptedResponse{
		{status: 403, body: `{"success":false,"message":"token expired"}`},
	}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.Input(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.StatusCode)
	assert.Equal(t, "token expired", apiErr.Message)
	assert.Equal(t, 1, h.count(), "4xx must not be retried")
}

func TestEnvelopeRejectionIsFatal(t *testing.T) {
	h := &scriptedHandler{responses: []scriptedResponse{
		{status: 200, body: `{"success":false,"message":"execution already finalized"}`},
	}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.Input(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 200, apiErr.StatusCode)
	assert.Equal(t, "execution already finalized", apiErr.Message)
	assert.Equal(t, 1, h.count(), "logical refusal must not be retried")
}

func TestMalformedSuccessBodyIsRetried(t *testing.T) {
	h := &scriptedHandler{responses: []scriptedResponse{
		{status: 200, body: `<proxy error page>`},
		{status: 200, body: `{"success":true,"data":7}`},
	}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	data, err := client.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(7), data)
	assert.Equal(t, 2, h.count())
}

func TestTimeoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 20 * time.Millisecond
	cfg.MaxRetries = 2
	client, err := NewClient(cfg)
	require.NoError(t, err)

	_, err = client.Input(context.Background())
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := testConfig(url)
	cfg.MaxRetries = 2
	client, err := NewClient(cfg)
	require.NoError(t, err)

	_, err = client.Input(context.Background())
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.NotNil(t, errors.Unwrap(transportErr))
}

func TestContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := &scriptedHandler{responses: []scriptedResponse{
		{status: 500, body: ``},
	}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		h.ServeHTTP(w, r)
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.Input(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, h.count(), "no retries after cancellation")
}

func TestIdempotencyKeyStableAcrossAttempts(t *testing.T) {
	h := &scriptedHandler{responses: []scriptedResponse{
		{status: 503, body: ``},
		{status: 503, body: ``},
		{status: 200, body: `{"success":true}`},
	}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	require.NoError(t, client.Output(context.Background(), "result"))
	keys := h.idempotencyKeys()
	require.Len(t, keys, 3)
	assert.NotEmpty(t, keys[0])
	assert.Equal(t, keys[0], keys[1])
	assert.Equal(t, keys[0], keys[2])

	// A fresh logical call mints a fresh key.
	require.NoError(t, client.Output(context.Background(), "result"))
	keys = h.idempotencyKeys()
	require.Len(t, keys, 4)
	assert.NotEqual(t, keys[0], keys[3])
}

func TestRequestHeaders(t *testing.T) {
	var gotAuth, gotContentType, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	require.NoError(t, client.Output(context.Background(), "x"))
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "application/json", gotAccept)
}

func TestBackoffDelay(t *testing.T) {
	base := time.Second
	assert.Equal(t, time.Second, backoffDelay(base, 1))
	assert.Equal(t, 2*time.Second, backoffDelay(base, 2))
	assert.Equal(t, 4*time.Second, backoffDelay(base, 3))
}

func TestUnmarshalableBodyFailsWithoutRequest(t *testing.T) {
	h := &scriptedHandler{responses: []scriptedResponse{
		{status: 200, body: `{"success":true}`},
	}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	err = client.Output(context.Background(), func() {})
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 0, h.count(), "request must not be sent when the body cannot be encoded")
}
