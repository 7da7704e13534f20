package errors

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

/*
RpcError is the JSON-RPC error object shape, extended with the A2A
application error range. Data carries structured detail (e.g.
{"reason": "deadline_exceeded"}) for callers that want to branch on more
than the code.
*/
type RpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// WithData returns a copy of the error carrying the given Data payload. The
// package-level sentinels are never mutated in place.
func (e *RpcError) WithData(data any) *RpcError {
	clone := *e
	clone.Data = data
	return &clone
}

// WithMessagef returns a copy of the error with a formatted message.
func (e *RpcError) WithMessagef(format string, args ...any) *RpcError {
	clone := *e
	clone.Message = fmt.Sprintf(format, args...)
	return &clone
}

// Standard JSON-RPC 2.0 reserved codes.
var (
	ErrParseError     = &RpcError{Code: -32700, Message: "Parse error"}
	ErrInvalidRequest = &RpcError{Code: -32600, Message: "Invalid Request"}
	ErrMethodNotFound = &RpcError{Code: -32601, Message: "Method not found"}
	ErrInvalidParams  = &RpcError{Code: -32602, Message: "Invalid params"}
	ErrInternal       = &RpcError{Code: -32603, Message: "Internal error"}
)

// A2A application error range (-32001 .. -32010).
var (
	ErrTaskNotFound            = &RpcError{Code: -32001, Message: "Task not found"}
	ErrTaskNotCancelable       = &RpcError{Code: -32002, Message: "Task cannot be canceled in its current state"}
	ErrInvalidTaskState        = &RpcError{Code: -32003, Message: "Task is not in a valid state for this operation"}
	ErrAuthenticationRequired  = &RpcError{Code: -32004, Message: "Authentication is required"}
	ErrAuthorizationFailed     = &RpcError{Code: -32005, Message: "Authorization failed"}
	ErrRateLimitExceeded       = &RpcError{Code: -32006, Message: "Rate limit exceeded"}
	ErrAgentUnavailable        = &RpcError{Code: -32007, Message: "Agent is unavailable"}
	ErrProtocolVersionMismatch = &RpcError{Code: -32008, Message: "Protocol version mismatch"}
	ErrCapabilityNotSupported  = &RpcError{Code: -32009, Message: "Requested capability is not supported"}
	ErrResourceExhausted       = &RpcError{Code: -32010, Message: "Resource exhausted"}
)

// RetryPolicy mirrors the backoff shape used for both push-notification
// delivery and client-side transport retry: exponential growth from
// Initial, capped at Max, with jitter applied as a fraction of the
// computed delay.
type RetryPolicy struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
	Jitter      float64
}

// DefaultRetryPolicy matches §4.4's push-notification delivery defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Initial:     time.Second,
		Max:         60 * time.Second,
		Multiplier:  2,
		Jitter:      0.1,
	}
}

// Retry runs fn under an exponential backoff policy built on
// cenkalti/backoff, retrying only when fn returns a retryable error (see
// shouldRetry). It gives up after policy.MaxAttempts or when ctx is done.
func Retry(ctx context.Context, policy RetryPolicy, shouldRetry func(error) bool, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.Initial
	b.MaxInterval = policy.Max
	b.Multiplier = policy.Multiplier
	b.RandomizationFactor = policy.Jitter

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if err == nil {
			return struct{}{}, nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(policy.MaxAttempts)))

	return err
}
