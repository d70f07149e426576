package cronium

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
)

// Future is the handle returned by AsyncClient operations. The operation
// runs in its own goroutine; Wait blocks until it has completed.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Wait blocks until the operation has completed and returns its result.
// Wait may be called from multiple goroutines and returns the same result
// every time.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.value, f.err
}

// Done returns a channel closed when the operation has completed. Useful in
// select statements; the result is then available via Wait without blocking.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

func run[T any](fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		value, err := fn()
		f.resolve(value, err)
	}()
	return f
}

func failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.resolve(zero, err)
	return f
}

// AsyncClient is the non-blocking Runtime API client. It owns a pooled
// connection session acquired at construction; operations return
// immediately with a Future and run concurrently over the shared pool. The
// session must be released exactly once with Close when the client is no
// longer needed.
//
// Each operation's retry loop is self-contained: concurrently issued
// operations interleave at network and backoff waits without affecting each
// other. Operations share the executor's classification and backoff policy
// with the blocking Client, so both produce identical outcomes for the same
// sequence of service responses.
type AsyncClient struct {
	exec      *executor
	transport *http.Transport
	closeOnce sync.Once
	closed    atomic.Bool
}

// NewAsyncClient builds a non-blocking client from cfg, applying defaults
// for unset fields. It fails with a *ConfigError when the execution token or
// execution ID is missing.
func NewAsyncClient(cfg Config) (*AsyncClient, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	transport := cfg.transport(true)
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
	return &AsyncClient{
		exec:      newExecutor(cfg, httpClient),
		transport: transport,
	}, nil
}

// NewAsyncClientFromEnv builds a non-blocking client from the environment
// variables set by the Cronium execution environment.
func NewAsyncClientFromEnv() (*AsyncClient, error) {
	return NewAsyncClient(ConfigFromEnv())
}

// Close releases the connection pool. Calling Close more than once is safe;
// calling it while operations are in flight is not. Operations started
// after Close fail with a *ConfigError.
func (c *AsyncClient) Close() {
	c.closed.Store(true)
	c.closeOnce.Do(func() {
		c.transport.CloseIdleConnections()
	})
}

func (c *AsyncClient) guard() error {
	if c.closed.Load() {
		return &ConfigError{Message: "client is closed"}
	}
	return nil
}

// Input returns a future for the input data of this execution.
func (c *AsyncClient) Input(ctx context.Context) *Future[any] {
	if err := c.guard(); err != nil {
		return failed[any](err)
	}
	return run(func() (any, error) { return c.exec.input(ctx) })
}

// Output returns a future that resolves once data has been stored as the
// output of this execution.
func (c *AsyncClient) Output(ctx context.Context, data any) *Future[struct{}] {
	if err := c.guard(); err != nil {
		return failed[struct{}](err)
	}
	return run(func() (struct{}, error) { return struct{}{}, c.exec.output(ctx, data) })
}

// GetVariable returns a future for the value of a variable; an unset
// variable resolves to nil.
func (c *AsyncClient) GetVariable(ctx context.Context, key string) *Future[any] {
	if err := c.guard(); err != nil {
		return failed[any](err)
	}
	return run(func() (any, error) { return c.exec.getVariable(ctx, key) })
}

// SetVariable returns a future that resolves once the variable has been
// stored.
func (c *AsyncClient) SetVariable(ctx context.Context, key string, value any) *Future[struct{}] {
	if err := c.guard(); err != nil {
		return failed[struct{}](err)
	}
	return run(func() (struct{}, error) { return struct{}{}, c.exec.setVariable(ctx, key, value) })
}

// SetCondition returns a future that resolves once the workflow condition
// has been set.
func (c *AsyncClient) SetCondition(ctx context.Context, condition bool) *Future[struct{}] {
	if err := c.guard(); err != nil {
		return failed[struct{}](err)
	}
	return run(func() (struct{}, error) { return struct{}{}, c.exec.setCondition(ctx, condition) })
}

// Event returns a future for the triggering event's context.
func (c *AsyncClient) Event(ctx context.Context) *Future[*EventContext] {
	if err := c.guard(); err != nil {
		return failed[*EventContext](err)
	}
	return run(func() (*EventContext, error) { return c.exec.event(ctx) })
}

// ExecuteToolAction returns a future for the result of a tool action.
func (c *AsyncClient) ExecuteToolAction(ctx context.Context, tool, action string, config map[string]any) *Future[any] {
	if err := c.guard(); err != nil {
		return failed[any](err)
	}
	return run(func() (any, error) { return c.exec.executeToolAction(ctx, tool, action, config) })
}

// SendEmail returns a future for sending an email through the email tool.
func (c *AsyncClient) SendEmail(ctx context.Context, to []string, subject, body string, opts map[string]any) *Future[any] {
	if err := c.guard(); err != nil {
		return failed[any](err)
	}
	return run(func() (any, error) {
		return c.exec.executeToolAction(ctx, toolEmail, actionSendMessage, emailConfig(to, subject, body, opts))
	})
}

// SendSlackMessage returns a future for sending a Slack message.
func (c *AsyncClient) SendSlackMessage(ctx context.Context, channel, text string, opts map[string]any) *Future[any] {
	if err := c.guard(); err != nil {
		return failed[any](err)
	}
	return run(func() (any, error) {
		return c.exec.executeToolAction(ctx, toolSlack, actionSendMessage, slackConfig(channel, text, opts))
	})
}

// SendDiscordMessage returns a future for sending a Discord message.
func (c *AsyncClient) SendDiscordMessage(ctx context.Context, channelID, content string, opts map[string]any) *Future[any] {
	if err := c.guard(); err != nil {
		return failed[any](err)
	}
	return run(func() (any, error) {
		return c.exec.executeToolAction(ctx, toolDiscord, actionSendMessage, discordConfig(channelID, content, opts))
	})
}
