// Package client implements the A2A client middleware chain (§4.6):
// Logging -> RateLimit -> CircuitBreaker -> Retry -> Transport, wrapping a
// high-level AgentClient over the JSON-RPC method set.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/a2a-go/pkg/a2a"
	"github.com/theapemachine/a2a-go/pkg/errors"
	"github.com/theapemachine/a2a-go/pkg/sse"
)

// Config tunes the middleware chain; zero values fall back to each
// middleware's own default.
type Config struct {
	RateLimitRPS       float64
	RateLimitBurst     int
	CircuitFailures    int
	CircuitTimeout     int // seconds
	RetryPolicy        *errors.RetryPolicy
}

// AgentClient is the high-level entry point for talking to a remote A2A
// agent identified by its AgentCard.
type AgentClient struct {
	Card      *a2a.AgentCard
	transport RoundTripper
	rpcURL    string
}

// NewAgentClient builds a client wired through the full middleware chain.
func NewAgentClient(card *a2a.AgentCard, cfg Config) *AgentClient {
	rpcURL := strings.TrimSuffix(card.URL, "/") + "/rpc"

	retryPolicy := errors.DefaultRetryPolicy()
	if cfg.RetryPolicy != nil {
		retryPolicy = *cfg.RetryPolicy
	}
	breaker := NewCircuitBreaker(cfg.CircuitFailures, secondsToDuration(cfg.CircuitTimeout))

	transport := Chain(
		NewHTTPTransport(rpcURL),
		LoggingMiddleware(),
		RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst),
		breaker.Middleware(),
		RetryMiddleware(retryPolicy),
	)

	return &AgentClient{Card: card, transport: transport, rpcURL: rpcURL}
}

func (c *AgentClient) call(ctx context.Context, method string, params, result any) error {
	paramsRaw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	raw, err := c.transport.RoundTrip(ctx, method, paramsRaw)
	if err != nil {
		return err
	}
	if result == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, result)
}

// SendMessage issues message/send and returns the resulting Task.
func (c *AgentClient) SendMessage(ctx context.Context, msg a2a.Message, cfg *a2a.MessageSendConfig) (*a2a.Task, error) {
	var task a2a.Task
	params := a2a.MessageSendParams{Message: msg, Configuration: cfg}
	if err := c.call(ctx, "message/send", params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask issues tasks/get.
func (c *AgentClient) GetTask(ctx context.Context, id string, historyLength *int) (*a2a.Task, error) {
	var task a2a.Task
	params := a2a.TaskQueryParams{TaskIDParams: a2a.TaskIDParams{ID: id}, HistoryLength: historyLength}
	if err := c.call(ctx, "tasks/get", params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CancelTask issues tasks/cancel.
func (c *AgentClient) CancelTask(ctx context.Context, id string) (*a2a.Task, error) {
	var task a2a.Task
	params := a2a.TaskIDParams{ID: id}
	if err := c.call(ctx, "tasks/cancel", params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// SetPushNotification issues tasks/pushNotificationConfig/set.
func (c *AgentClient) SetPushNotification(ctx context.Context, taskID string, cfg a2a.PushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	var out a2a.TaskPushNotificationConfig
	params := a2a.TaskPushNotificationConfig{TaskID: taskID, PushNotificationConfig: cfg}
	if err := c.call(ctx, "tasks/pushNotificationConfig/set", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPushNotification issues tasks/pushNotificationConfig/get.
func (c *AgentClient) GetPushNotification(ctx context.Context, taskID, configID string) (*a2a.TaskPushNotificationConfig, error) {
	var out a2a.TaskPushNotificationConfig
	params := a2a.TaskPushNotificationDeleteParams{TaskID: taskID, PushNotificationConfigID: configID}
	if err := c.call(ctx, "tasks/pushNotificationConfig/get", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StreamMessage issues message/stream, which the server answers directly
// with an SSE stream (§6) rather than a single JSON-RPC response, and
// invokes callback for every event until the stream ends, the remote closes
// the connection, or ctx is canceled.
func (c *AgentClient) StreamMessage(ctx context.Context, msg a2a.Message, cfg *a2a.MessageSendConfig, callback func(a2a.Event)) error {
	params := a2a.MessageSendParams{Message: msg, Configuration: cfg}
	return c.stream(ctx, "message/stream", params, "", callback)
}

// Resubscribe reopens an existing task's SSE stream, replaying from
// lastEventID when given.
func (c *AgentClient) Resubscribe(ctx context.Context, taskID, lastEventID string, callback func(a2a.Event)) error {
	return c.stream(ctx, "tasks/resubscribe", a2a.TaskIDParams{ID: taskID}, lastEventID, callback)
}

func (c *AgentClient) stream(ctx context.Context, method string, params any, lastEventID string, callback func(a2a.Event)) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	q := url.Values{}
	q.Set("method", method)
	q.Set("params", string(raw))
	streamURL := c.rpcURL + "?" + q.Encode()

	sseClient := sse.NewClient(streamURL)
	if c.Card.Authentication != nil {
		for _, scheme := range c.Card.Authentication.Schemes {
			if scheme == "Bearer" && c.Card.Authentication.Credentials != nil {
				sseClient.Headers["Authorization"] = "Bearer " + *c.Card.Authentication.Credentials
			}
		}
	}
	log.Debug("a2a client stream start", "method", method, "url", streamURL, "headers", redactHeaders(sseClient.Headers))

	return sseClient.Subscribe(ctx, lastEventID, callback)
}

func secondsToDuration(s int) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s) * time.Second
}
