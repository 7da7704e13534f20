package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	r3sse "github.com/r3labs/sse/v2"
	"github.com/theapemachine/a2a-go/pkg/a2a"
	"github.com/theapemachine/a2a-go/pkg/metrics"
)

const (
	DefaultMaxReconnectAttempts = 10
	DefaultReconnectDelay       = 3 * time.Second
	streamID                    = "a2a"
)

// Client consumes another agent's SSE event stream, decoding frames back
// into a2a.Event and resuming from LastEventID across reconnects. Each
// connection attempt is handled by r3labs/sse; the capped retry loop across
// attempts is ours, since r3labs does not expose a reconnect-attempt limit.
type Client struct {
	URL                   string
	Headers               map[string]string
	Metrics               *metrics.StreamingMetrics
	MaxReconnectAttempts  int
	ReconnectDelay        time.Duration

	lastEventID string
}

func NewClient(url string) *Client {
	return &Client{
		URL:                  url,
		Headers:              make(map[string]string),
		Metrics:              metrics.NewStreamingMetrics(),
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		ReconnectDelay:       DefaultReconnectDelay,
	}
}

// Subscribe connects and invokes handler for every decoded event, resuming
// from lastEventID (if non-empty) on the first connection and from the most
// recently seen event id on every subsequent reconnect. Returns once the
// context is canceled, the stream ends cleanly, or reconnect attempts are
// exhausted.
func (c *Client) Subscribe(ctx context.Context, lastEventID string, handler func(a2a.Event)) error {
	c.lastEventID = lastEventID
	attempts := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := c.connectOnce(ctx, handler)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		attempts++
		c.Metrics.RecordReconnection()
		if attempts >= c.MaxReconnectAttempts {
			return fmt.Errorf("sse: giving up after %d reconnect attempts: %w", attempts, err)
		}

		delay := c.ReconnectDelay << uint(attempts-1)
		const maxReconnectDelay = 30 * time.Second
		if delay <= 0 || delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) connectOnce(ctx context.Context, handler func(a2a.Event)) error {
	start := time.Now()
	client := r3sse.NewClient(c.URL)
	for k, v := range c.Headers {
		client.Headers[k] = v
	}
	if c.lastEventID != "" {
		client.Headers["Last-Event-ID"] = c.lastEventID
	}

	err := client.SubscribeWithContext(ctx, streamID, func(msg *r3sse.Event) {
		eventStart := time.Now()
		if len(msg.ID) > 0 {
			c.lastEventID = string(msg.ID)
		}

		var data any
		_ = json.Unmarshal(msg.Data, &data)

		handler(a2a.Event{
			Type:      a2a.EventType(msg.Event),
			Timestamp: time.Now().UTC(),
			Data:      data,
		})
		c.Metrics.RecordEvent(false, time.Since(eventStart), time.Since(eventStart))
	})

	c.Metrics.RecordConnection(err == nil, time.Since(start))
	return err
}
