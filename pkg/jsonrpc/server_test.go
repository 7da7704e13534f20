package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/theapemachine/a2a-go/pkg/errors"
)

func newTestServer(h http.Handler) (*httptest.Server, error) {
	var srv *httptest.Server
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("listener not permitted: %v", r)
			}
		}()
		srv = httptest.NewServer(h)
	}()
	return srv, err
}

func TestServeHTTPEchoRoundTrip(t *testing.T) {
	registry := NewRegistry()
	registry.Register("echo", func(ctx context.Context, params json.RawMessage) (any, *errors.RpcError) {
		var v string
		if err := json.Unmarshal(params, &v); err != nil {
			return nil, errors.ErrInvalidParams
		}
		return v, nil
	})
	srv := NewServer(registry)

	ts, errTS := newTestServer(srv)
	if errTS != nil {
		t.Skip("network disabled in environment; skipping test")
	}
	defer ts.Close()

	body := `{"jsonrpc":"2.0","id":1,"method":"echo","params":"hello"}`
	resp, err := http.Post(ts.URL, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var out RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	result, ok := out.Result.(string)
	if !ok {
		t.Fatalf("unexpected result shape: %#v", out.Result)
	}
	if result != "hello" {
		t.Fatalf("unexpected result: %q", result)
	}
}

func TestServeHTTPUnknownMethod(t *testing.T) {
	srv := NewServer(NewRegistry())
	ts, errTS := newTestServer(srv)
	if errTS != nil {
		t.Skip("network disabled in environment; skipping test")
	}
	defer ts.Close()

	body := `{"jsonrpc":"2.0","id":1,"method":"does.not.exist"}`
	resp, err := http.Post(ts.URL, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var out RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Error == nil || out.Error.Code != errors.ErrMethodNotFound.Code {
		t.Fatalf("expected method-not-found error, got %+v", out.Error)
	}
}

func TestServeHTTPNotificationProducesNoBody(t *testing.T) {
	registry := NewRegistry()
	called := false
	registry.Register("fireAndForget", func(ctx context.Context, params json.RawMessage) (any, *errors.RpcError) {
		called = true
		return nil, nil
	})
	srv := NewServer(registry)

	ts, errTS := newTestServer(srv)
	if errTS != nil {
		t.Skip("network disabled in environment; skipping test")
	}
	defer ts.Close()

	body := `{"jsonrpc":"2.0","method":"fireAndForget"}`
	resp, err := http.Post(ts.URL, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if !called {
		t.Fatalf("expected handler to run for notification")
	}
}

func TestServeHTTPEmptyBatchIsInvalidRequest(t *testing.T) {
	srv := NewServer(NewRegistry())
	ts, errTS := newTestServer(srv)
	if errTS != nil {
		t.Skip("network disabled in environment; skipping test")
	}
	defer ts.Close()

	resp, err := http.Post(ts.URL, "application/json", strings.NewReader(`[]`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	var out RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Error == nil || out.Error.Code != errors.ErrInvalidRequest.Code {
		t.Fatalf("expected invalid-request error, got %+v", out.Error)
	}
}

func TestServeHTTPMalformedJSONIsBadRequest(t *testing.T) {
	srv := NewServer(NewRegistry())
	ts, errTS := newTestServer(srv)
	if errTS != nil {
		t.Skip("network disabled in environment; skipping test")
	}
	defer ts.Close()

	resp, err := http.Post(ts.URL, "application/json", strings.NewReader(`{not json`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var out RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Error == nil || out.Error.Code != errors.ErrParseError.Code {
		t.Fatalf("expected parse error, got %+v", out.Error)
	}
}

func TestNormalizeParamsLeavesOpaqueDataAndMetadataUntouched(t *testing.T) {
	raw := json.RawMessage(`{
		"task_id": "t1",
		"message": {
			"parts": [{"kind":"data","data":{"user_name":"x","nested_field":{"another_key":1}}}],
			"metadata": {"trace_id": "abc", "retry_count": 3}
		}
	}`)

	out := normalizeParams(raw)

	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if _, ok := decoded["taskId"]; !ok {
		t.Fatalf("expected envelope key task_id renamed to taskId, got %#v", decoded)
	}

	message, ok := decoded["message"].(map[string]any)
	if !ok {
		t.Fatalf("expected message object, got %#v", decoded["message"])
	}

	metadata, ok := message["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("expected metadata object, got %#v", message["metadata"])
	}
	if _, ok := metadata["trace_id"]; !ok {
		t.Fatalf("expected metadata keys left untouched, got %#v", metadata)
	}
	if _, ok := metadata["traceId"]; ok {
		t.Fatalf("metadata must not be rewritten, got %#v", metadata)
	}

	parts, ok := message["parts"].([]any)
	if !ok || len(parts) != 1 {
		t.Fatalf("expected one part, got %#v", message["parts"])
	}
	part, ok := parts[0].(map[string]any)
	if !ok {
		t.Fatalf("expected part object, got %#v", parts[0])
	}
	data, ok := part["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %#v", part["data"])
	}
	if _, ok := data["user_name"]; !ok {
		t.Fatalf("expected opaque data keys left untouched, got %#v", data)
	}
	if _, ok := data["userName"]; ok {
		t.Fatalf("opaque data must not be rewritten, got %#v", data)
	}
	nested, ok := data["nested_field"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested opaque object preserved, got %#v", data["nested_field"])
	}
	if _, ok := nested["another_key"]; !ok {
		t.Fatalf("expected deeply nested opaque keys left untouched, got %#v", nested)
	}
}

func TestSnakeToCamelNormalization(t *testing.T) {
	if got := snakeToCamel("task_id"); got != "taskId" {
		t.Fatalf("snakeToCamel(task_id) = %q", got)
	}
	if got := snakeToCamel("historyLength"); got != "historyLength" {
		t.Fatalf("snakeToCamel should pass through camelCase: %q", got)
	}
}
