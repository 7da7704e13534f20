package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/theapemachine/a2a-go/pkg/errors"
	"github.com/theapemachine/a2a-go/pkg/jsonrpc"
)

// RoundTripper sends a single JSON-RPC call and returns its raw result, or
// an error. A *errors.RpcError return means the remote agent answered with
// a JSON-RPC error object; any other error means the call never produced a
// JSON-RPC response at all (network failure, timeout, bad status).
type RoundTripper interface {
	RoundTrip(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)
}

// RoundTripperFunc adapts a function to a RoundTripper.
type RoundTripperFunc func(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)

func (f RoundTripperFunc) RoundTrip(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	return f(ctx, method, params)
}

// Middleware wraps a RoundTripper with cross-cutting behavior. Chains
// compose outermost-first: Chain(t, a, b, c) calls a, then b, then c, then t.
type Middleware func(RoundTripper) RoundTripper

func Chain(base RoundTripper, mws ...Middleware) RoundTripper {
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}

// HTTPTransport is the innermost RoundTripper: one JSON-RPC call per HTTP
// POST to url, matching the wire format pkg/jsonrpc.Server expects.
type HTTPTransport struct {
	url        string
	httpClient *http.Client
	nextID     uint64
}

func NewHTTPTransport(url string) *HTTPTransport {
	return &HTTPTransport{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *HTTPTransport) RoundTrip(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	id := atomic.AddUint64(&t.nextID, 1)
	req := jsonrpc.RPCRequest{
		JSONRPC: "2.0",
		ID:      json.RawMessage(fmt.Sprintf("%d", id)),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	var rpcResp jsonrpc.RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, &statusError{code: resp.StatusCode, err: err}
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	result, err := json.Marshal(rpcResp.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return result, nil
}

// transportError means the call never reached an HTTP response at all
// (dial failure, timeout, connection reset) — always retryable.
type transportError struct{ err error }

func (e *transportError) Error() string { return "transport error: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// statusError means an HTTP response came back but its body wasn't a
// decodable JSON-RPC response. Retryable only for 408/429/5xx (§4.6).
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %v", e.code, e.err)
}
func (e *statusError) Unwrap() error { return e.err }

// AsRpcError unwraps err into an *errors.RpcError when the remote agent
// answered with a JSON-RPC error object, distinguishing it from a transport
// failure that never reached the application layer.
func AsRpcError(err error) (*errors.RpcError, bool) {
	rpcErr, ok := err.(*errors.RpcError)
	return rpcErr, ok
}
