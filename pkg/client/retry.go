package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/theapemachine/a2a-go/pkg/errors"
)

// RetryMiddleware retries transport-level failures (the call never reached
// the remote agent's JSON-RPC layer) under the given policy. Application
// errors — an *errors.RpcError the remote agent actually returned — are not
// retried here: they're a definite answer, not a transient failure.
func RetryMiddleware(policy errors.RetryPolicy) Middleware {
	return func(next RoundTripper) RoundTripper {
		return RoundTripperFunc(func(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
			var result json.RawMessage
			err := errors.Retry(ctx, policy, shouldRetryTransport, func() error {
				r, callErr := next.RoundTrip(ctx, method, params)
				if callErr != nil {
					return callErr
				}
				result = r
				return nil
			})
			return result, err
		})
	}
}

// shouldRetryTransport matches §4.6's retry contract: a *errors.RpcError is
// a definite application-level answer (never retried); a dial/timeout
// failure is always retried; an HTTP status error is retried only for
// 408/429/5xx, the same set PushNotificationManager honors (§4.3).
func shouldRetryTransport(err error) bool {
	if _, isRpcError := AsRpcError(err); isRpcError {
		return false
	}
	var se *statusError
	if stderrors.As(err, &se) {
		return se.code == http.StatusRequestTimeout || se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}
