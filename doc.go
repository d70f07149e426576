// Package cronium is the Go SDK for scripts running inside the Cronium
// execution environment. It talks to the Runtime API service to read input,
// write output, manage variables, steer conditional workflow paths, and
// invoke tool actions on behalf of the current execution.
//
// # Quick Start
//
// Inside a Cronium container the runtime address, execution token, and
// execution ID are provided through the environment, so a client is usually
// built from it directly:
//
//	client, err := cronium.NewClientFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	input, err := client.Input(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// ... do work ...
//	if err := client.Output(ctx, result); err != nil {
//	    log.Fatal(err)
//	}
//
// # Clients
//
// Two clients share identical operation semantics:
//
//   - Client performs each call on its own connection and blocks the calling
//     goroutine through the full retry sequence.
//   - AsyncClient owns a pooled connection session, runs each operation in
//     its own goroutine, and hands back a Future. The session must be
//     released with Close when the client is no longer needed.
//
// Every request is retried with exponential backoff on transient failures
// (timeouts, transport errors, 5xx responses) and fails fast on client errors
// and business-logic rejections. A client-generated idempotency key is sent
// with every call so the service can deduplicate retried side effects.
//
// # Errors
//
// Failures are typed and branchable with errors.As:
//
//	value, err := client.GetVariable(ctx, "threshold")
//	var apiErr *cronium.APIError
//	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
//	    // handle denied access
//	}
//
// GetVariable is the one operation with a sentinel: a 404 from the service
// means the variable is unset and yields (nil, nil) instead of an error.
//
// # Testing
//
// The croniumtest package provides an in-process stub of the Runtime API for
// testing task code without a live service.
package cronium
