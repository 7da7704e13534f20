package a2a

// This file collects the request/result payload shapes for the A2A method
// set (message/send, tasks/get, tasks/cancel, tasks/pushNotificationConfig/*).
// They are plain data — the JSON-RPC envelope (id, method, jsonrpc version)
// is pkg/jsonrpc's concern, not the type model's.

// MessageSendParams is the params object for message/send and message/stream.
type MessageSendParams struct {
	Message       Message            `json:"message"`
	Configuration *MessageSendConfig `json:"configuration,omitempty"`
	Metadata      map[string]any     `json:"metadata,omitempty"`
}

// MessageSendConfig lets the caller shape how a message/send is handled.
type MessageSendConfig struct {
	AcceptedOutputModes []string                `json:"acceptedOutputModes,omitempty"`
	HistoryLength       *int                    `json:"historyLength,omitempty"`
	PushNotification    *PushNotificationConfig `json:"pushNotificationConfig,omitempty"`
	Blocking            bool                    `json:"blocking,omitempty"`
}

// TaskIDParams is the base parameter shape for task-id-keyed operations.
type TaskIDParams struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskQueryParams adds the optional history-length view parameter used by
// tasks/get.
type TaskQueryParams struct {
	TaskIDParams
	HistoryLength *int `json:"historyLength,omitempty"`
}

// PushNotificationConfig describes where and how to deliver task event
// webhooks for a given task.
type PushNotificationConfig struct {
	ID             string               `json:"id,omitempty"`
	URL            string               `json:"url"`
	Token          *string              `json:"token,omitempty"`
	Headers        map[string]string    `json:"headers,omitempty"`
	Authentication *AgentAuthentication `json:"authentication,omitempty"`
	// Active lets a config be disabled without deleting it; nil on the wire
	// means "not specified" so SetConfig can default it to true.
	Active *bool `json:"active,omitempty"`
}

// TaskPushNotificationConfig binds a PushNotificationConfig to the task it
// applies to; this is the params shape of tasks/pushNotificationConfig/set
// and the result shape of tasks/pushNotificationConfig/{set,get}.
type TaskPushNotificationConfig struct {
	TaskID                 string                 `json:"taskId"`
	PushNotificationConfig PushNotificationConfig `json:"pushNotificationConfig"`
}

// TaskPushNotificationListParams is the params shape for
// tasks/pushNotificationConfig/list.
type TaskPushNotificationListParams struct {
	TaskID string `json:"taskId"`
}

// TaskPushNotificationDeleteParams is the params shape for
// tasks/pushNotificationConfig/get and tasks/pushNotificationConfig/delete.
type TaskPushNotificationDeleteParams struct {
	TaskID                   string `json:"taskId"`
	PushNotificationConfigID string `json:"pushNotificationConfigId"`
}
