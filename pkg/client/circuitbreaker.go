package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/theapemachine/a2a-go/pkg/errors"
)

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

const (
	DefaultFailureThreshold = 3
	DefaultCircuitTimeout   = 10 * time.Second
)

// CircuitBreaker implements the three-state breaker: closed (normal),
// open (fail fast), half-open (one probe allowed after the timeout).
type CircuitBreaker struct {
	failureThreshold int
	timeout          time.Duration

	mu            sync.Mutex
	state         circuitState
	failures      int
	openedAt      time.Time
	probeInFlight bool
}

func NewCircuitBreaker(failureThreshold int, timeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if timeout <= 0 {
		timeout = DefaultCircuitTimeout
	}
	return &CircuitBreaker{failureThreshold: failureThreshold, timeout: timeout, state: circuitClosed}
}

// allow reports whether a call may proceed, and if so, whether it is the
// single half-open probe (in which case the caller must call recordResult
// promptly; concurrent calls are not granted the probe slot).
func (b *CircuitBreaker) allow() (ok bool, isProbe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case circuitClosed:
		return true, false
	case circuitOpen:
		if time.Since(b.openedAt) < b.timeout {
			return false, false
		}
		if b.probeInFlight {
			return false, false
		}
		b.state = circuitHalfOpen
		b.probeInFlight = true
		return true, true
	case circuitHalfOpen:
		return false, false
	default:
		return false, false
	}
}

// recordResult updates breaker state from the outcome of an allowed call.
// A *errors.RpcError is a definite application answer the remote agent
// chose to return (e.g. TaskNotFound) — §4.6 counts only transport-level
// failures "of type in expected_errors" toward the threshold, so it never
// trips the breaker, matching how RetryMiddleware already treats it as a
// definite answer rather than a transient failure.
func (b *CircuitBreaker) recordResult(isProbe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, isRpcError := AsRpcError(err); err == nil || isRpcError {
		b.failures = 0
		b.state = circuitClosed
		b.probeInFlight = false
		return
	}

	b.failures++
	if isProbe {
		b.probeInFlight = false
		b.state = circuitOpen
		b.openedAt = time.Now()
		return
	}
	if b.state == circuitClosed && b.failures >= b.failureThreshold {
		b.state = circuitOpen
		b.openedAt = time.Now()
	}
}

// Middleware wraps next with this breaker. Every call through the returned
// RoundTripper shares the same breaker state.
func (b *CircuitBreaker) Middleware() Middleware {
	return func(next RoundTripper) RoundTripper {
		return RoundTripperFunc(func(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
			ok, isProbe := b.allow()
			if !ok {
				return nil, errors.ErrAgentUnavailable.WithData(map[string]any{"reason": "circuit_open"})
			}
			result, err := next.RoundTrip(ctx, method, params)
			b.recordResult(isProbe, err)
			return result, err
		})
	}
}
