// Package service implements the RequestHandler (C10): the orchestration
// layer that wires TaskManager (C4), PushNotificationManager (C5), the
// JSON-RPC engine (C6), and the SSE transport (C7) into the A2A method set
// from §4.8, and mounts them over HTTP per §6.
package service

import "time"

// Config holds the recognized options from §6 that RequestHandler is built
// with (storage sizing and caching live in pkg/stores/pkg/tasks; the
// rest of §6's list is owned by the components it configures directly).
// Handler reads DefaultTimeout, StreamingEnabled, PushNotificationsEnabled
// and HeartbeatInterval; ProtocolVersion and MaxHistoryLength are carried
// here but not read by Handler.
type Config struct {
	DefaultTimeout           time.Duration
	ProtocolVersion          string
	StreamingEnabled         bool
	PushNotificationsEnabled bool
	MaxHistoryLength         int
	HeartbeatInterval        time.Duration
}

// DefaultConfig matches §6's stated defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:           30 * time.Second,
		ProtocolVersion:          "0.3.0",
		StreamingEnabled:         true,
		PushNotificationsEnabled: true,
		MaxHistoryLength:         100,
		HeartbeatInterval:        30 * time.Second,
	}
}
