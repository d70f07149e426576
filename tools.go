package cronium

import (
	"context"
	"net/http"
)

// Tool names understood by the Runtime API's tool-action endpoint.
const (
	toolEmail   = "email"
	toolSlack   = "slack"
	toolDiscord = "discord"

	actionSendMessage = "send_message"
)

func (e *executor) executeToolAction(ctx context.Context, tool, action string, config map[string]any) (any, error) {
	body := map[string]any{
		"tool":   tool,
		"action": action,
		"config": config,
	}
	env, err := e.execute(ctx, "execute_tool_action", http.MethodPost, "/tool-actions/execute", body)
	if err != nil || env == nil {
		return nil, err
	}
	return env.Data, nil
}

// The convenience senders normalize their arguments into the config shape
// the corresponding tool expects. Entries in opts are merged in last, so
// they can override the base fields.

func emailConfig(to []string, subject, body string, opts map[string]any) map[string]any {
	config := map[string]any{
		"to":      to,
		"subject": subject,
		"body":    body,
	}
	for k, v := range opts {
		config[k] = v
	}
	return config
}

func slackConfig(channel, text string, opts map[string]any) map[string]any {
	config := map[string]any{
		"channel": channel,
		"text":    text,
	}
	for k, v := range opts {
		config[k] = v
	}
	return config
}

func discordConfig(channelID, content string, opts map[string]any) map[string]any {
	config := map[string]any{
		"channelId": channelID,
		"content":   content,
	}
	for k, v := range opts {
		config[k] = v
	}
	return config
}
