package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
)

// LoggingMiddleware logs each call's start, success and error with duration
// (§4.6). Params are logged at Debug level through redactParams, which masks
// any field whose key looks like a credential — never the raw body.
func LoggingMiddleware() Middleware {
	return func(next RoundTripper) RoundTripper {
		return RoundTripperFunc(func(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
			start := time.Now()
			log.Debug("a2a client call start", "method", method, "params", redactParams(params))
			result, err := next.RoundTrip(ctx, method, params)
			if err != nil {
				log.Debug("a2a client call failed", "method", method, "duration", time.Since(start), "error", err)
			} else {
				log.Debug("a2a client call succeeded", "method", method, "duration", time.Since(start))
			}
			return result, err
		})
	}
}
