package cronium

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// EventContext describes the event that triggered the current execution.
type EventContext struct {
	ID          string         `json:"eventId"`
	Name        string         `json:"eventName"`
	Type        string         `json:"eventType"`
	UserID      string         `json:"userId"`
	ExecutionID string         `json:"executionId"`
	StartTime   time.Time      `json:"startTime"`
	Metadata    map[string]any `json:"metadata"`
}

// Client is the blocking Runtime API client. Every operation performs its
// request on a dedicated connection and blocks the calling goroutine through
// the full retry sequence. A Client holds no mutable state, but goroutines
// that need concurrent calls should each construct their own instance.
type Client struct {
	exec *executor
}

// NewClient builds a blocking client from cfg, applying defaults for unset
// fields. It fails with a *ConfigError when the execution token or execution
// ID is missing.
func NewClient(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: cfg.transport(false),
	}
	return &Client{exec: newExecutor(cfg, httpClient)}, nil
}

// NewClientFromEnv builds a blocking client from the environment variables
// set by the Cronium execution environment.
func NewClientFromEnv() (*Client, error) {
	return NewClient(ConfigFromEnv())
}

// Input returns the input data for this execution, or nil when none was
// provided.
func (c *Client) Input(ctx context.Context) (any, error) {
	return c.exec.input(ctx)
}

// Output stores data as the output of this execution.
func (c *Client) Output(ctx context.Context, data any) error {
	return c.exec.output(ctx, data)
}

// GetVariable returns the value of a variable, or nil when the variable is
// not set. Any other failure is returned as-is.
func (c *Client) GetVariable(ctx context.Context, key string) (any, error) {
	return c.exec.getVariable(ctx, key)
}

// SetVariable stores a variable value. The value must be JSON-serializable.
func (c *Client) SetVariable(ctx context.Context, key string, value any) error {
	return c.exec.setVariable(ctx, key, value)
}

// SetCondition sets the workflow condition for this execution. The last
// write wins.
func (c *Client) SetCondition(ctx context.Context, condition bool) error {
	return c.exec.setCondition(ctx, condition)
}

// Event returns the context of the event that triggered this execution. When
// the service reports no event data the zero value is returned.
func (c *Client) Event(ctx context.Context) (*EventContext, error) {
	return c.exec.event(ctx)
}

// ExecuteToolAction invokes a tool action (e.g. tool "slack", action
// "send_message") with tool-specific configuration and returns the service's
// immediate result.
func (c *Client) ExecuteToolAction(ctx context.Context, tool, action string, config map[string]any) (any, error) {
	return c.exec.executeToolAction(ctx, tool, action, config)
}

// SendEmail sends an email through the email tool. opts may carry additional
// options such as "cc", "bcc", or "attachments".
func (c *Client) SendEmail(ctx context.Context, to []string, subject, body string, opts map[string]any) (any, error) {
	return c.exec.executeToolAction(ctx, toolEmail, actionSendMessage, emailConfig(to, subject, body, opts))
}

// SendSlackMessage sends a Slack message to a channel or user ID. opts may
// carry additional options such as "attachments" or "blocks".
func (c *Client) SendSlackMessage(ctx context.Context, channel, text string, opts map[string]any) (any, error) {
	return c.exec.executeToolAction(ctx, toolSlack, actionSendMessage, slackConfig(channel, text, opts))
}

// SendDiscordMessage sends a Discord message to a channel. opts may carry
// additional options such as "embeds".
func (c *Client) SendDiscordMessage(ctx context.Context, channelID, content string, opts map[string]any) (any, error) {
	return c.exec.executeToolAction(ctx, toolDiscord, actionSendMessage, discordConfig(channelID, content, opts))
}

// Resource operations. Each is a stateless mapping from a semantic operation
// to one executor call; both client façades delegate here so the two stay
// behaviorally identical.

func (e *executor) executionPath(suffix string) string {
	return "/executions/" + url.PathEscape(e.cfg.ExecutionID) + suffix
}

func (e *executor) input(ctx context.Context) (any, error) {
	env, err := e.execute(ctx, "input", http.MethodGet, e.executionPath("/input"), nil)
	if err != nil || env == nil {
		return nil, err
	}
	return env.Data, nil
}

func (e *executor) output(ctx context.Context, data any) error {
	_, err := e.execute(ctx, "output", http.MethodPost, e.executionPath("/output"), map[string]any{"data": data})
	return err
}

func (e *executor) getVariable(ctx context.Context, key string) (any, error) {
	env, err := e.execute(ctx, "get_variable", http.MethodGet, e.executionPath("/variables/"+url.PathEscape(key)), nil)
	if err != nil {
		// The service reports an unset variable as a 404 rather than an
		// empty envelope; that one status maps to a nil result.
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if env == nil {
		return nil, nil
	}
	if data, ok := env.Data.(map[string]any); ok {
		return data["value"], nil
	}
	return nil, nil
}

func (e *executor) setVariable(ctx context.Context, key string, value any) error {
	_, err := e.execute(ctx, "set_variable", http.MethodPut, e.executionPath("/variables/"+url.PathEscape(key)), map[string]any{"value": value})
	return err
}

func (e *executor) setCondition(ctx context.Context, condition bool) error {
	_, err := e.execute(ctx, "set_condition", http.MethodPost, e.executionPath("/condition"), map[string]any{"condition": condition})
	return err
}

func (e *executor) event(ctx context.Context) (*EventContext, error) {
	env, err := e.execute(ctx, "event", http.MethodGet, e.executionPath("/context"), nil)
	if err != nil {
		return nil, err
	}
	var ec EventContext
	if env == nil || env.Data == nil {
		return &ec, nil
	}
	raw, err := json.Marshal(env.Data)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("encode event context: %w", err)}
	}
	if err := json.Unmarshal(raw, &ec); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("decode event context: %w", err)}
	}
	return &ec, nil
}
