package client

import (
	"encoding/json"
	"regexp"
)

// headerKeyPattern and bodyKeyPattern are the two masking rules §4.6
// specifies for the logging middleware. Matching header values and matching
// string body fields are masked the same way (maskValue); the body pattern
// adds a few more sensitive-looking names.
var (
	headerKeyPattern = regexp.MustCompile(`(?i)authorization|token|key`)
	bodyKeyPattern   = regexp.MustCompile(`(?i)password|secret|token|key|credential`)
)

// maskValue keeps the 4 leading and 4 trailing characters of s and
// replaces everything between with "...". Short values are masked
// entirely since there is nothing safe to reveal on either side.
func maskValue(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// redactHeaders returns a copy of headers with any value whose key matches
// headerKeyPattern masked.
func redactHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if headerKeyPattern.MatchString(k) {
			out[k] = maskValue(v)
		} else {
			out[k] = v
		}
	}
	return out
}

// redactParams masks string-valued fields of a JSON object (recursively,
// including nested objects/arrays) whose key matches bodyKeyPattern, for
// safe inclusion of request params in debug logs. Unparseable JSON is
// returned as an opaque placeholder rather than logged verbatim; scalar
// inputs are re-encoded unchanged.
func redactParams(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "<unparseable>"
	}
	redacted := redactValue(v)
	out, err := json.Marshal(redacted)
	if err != nil {
		return "<unmarshalable>"
	}
	return string(out)
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, fv := range val {
			if bodyKeyPattern.MatchString(k) {
				if s, ok := fv.(string); ok {
					out[k] = maskValue(s)
					continue
				}
			}
			out[k] = redactValue(fv)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = redactValue(item)
		}
		return out
	default:
		return v
	}
}
