package jsonrpc

import (
	"encoding/json"
	"strings"
)

// opaqueKeys names the envelope fields whose *value* is caller-defined
// payload (§3: Part's data kind is "opaque-object", Message/Task/Artifact
// metadata is "free-form") rather than A2A envelope shape. normalizeValue
// rewrites the key itself but never recurses into these values: a caller's
// {"kind":"data","data":{"user_name":"x"}} must decode back out exactly as
// sent, not silently rewritten to {"userName":"x"}.
var opaqueKeys = map[string]bool{
	"data":     true,
	"metadata": true,
}

// normalizeParams rewrites snake_case object keys to camelCase throughout
// params, recursively, so callers that send "task_id" instead of "taskId"
// still decode cleanly into our camelCase struct tags. Arrays are walked
// element by element; scalars pass through untouched. Values under opaque
// keys (see opaqueKeys) keep their inner keys as the caller sent them,
// though the params as a whole are re-encoded.
func normalizeParams(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}

	out, err := json.Marshal(normalizeValue(v))
	if err != nil {
		return raw
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			newKey := snakeToCamel(k)
			if opaqueKeys[newKey] {
				out[newKey] = child
				continue
			}
			out[newKey] = normalizeValue(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = normalizeValue(child)
		}
		return out
	default:
		return v
	}
}

func snakeToCamel(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	parts := strings.Split(s, "_")
	var sb strings.Builder
	sb.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(p[:1]))
		sb.WriteString(p[1:])
	}
	return sb.String()
}
