package cronium

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorStrings(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "config",
			err:  &ConfigError{Setting: EnvExecutionToken, Message: "CRONIUM_EXECUTION_TOKEN environment variable not set"},
			want: "configuration error: CRONIUM_EXECUTION_TOKEN environment variable not set",
		},
		{
			name: "api",
			err:  &APIError{StatusCode: 404, Message: "variable not found"},
			want: "API error (404): variable not found",
		},
		{
			name: "timeout",
			err:  &TimeoutError{Err: fmt.Errorf("deadline exceeded")},
			want: "request timed out: deadline exceeded",
		},
		{
			name: "transport",
			err:  &TransportError{Err: fmt.Errorf("connection refused")},
			want: "request failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")

	if !errors.Is(&TimeoutError{Err: cause}, cause) {
		t.Error("TimeoutError does not unwrap to its cause")
	}
	if !errors.Is(&TransportError{Err: cause}, cause) {
		t.Error("TransportError does not unwrap to its cause")
	}
}
