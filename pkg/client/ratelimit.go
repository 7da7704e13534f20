package client

import (
	"context"
	"encoding/json"

	"golang.org/x/time/rate"
)

const (
	DefaultRateLimitRPS   = 50
	DefaultRateLimitBurst = 50
)

// RateLimitMiddleware throttles outbound calls to a token-bucket limiter
// shared across every call through this client instance.
func RateLimitMiddleware(rps float64, burst int) Middleware {
	if rps <= 0 {
		rps = DefaultRateLimitRPS
	}
	if burst <= 0 {
		burst = DefaultRateLimitBurst
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next RoundTripper) RoundTripper {
		return RoundTripperFunc(func(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
			return next.RoundTrip(ctx, method, params)
		})
	}
}
