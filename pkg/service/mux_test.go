package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theapemachine/a2a-go/pkg/a2a"
	"github.com/theapemachine/a2a-go/pkg/agentcard"
	"github.com/theapemachine/a2a-go/pkg/errors"
	"github.com/theapemachine/a2a-go/pkg/executor"
	"github.com/theapemachine/a2a-go/pkg/jsonrpc"
	"github.com/theapemachine/a2a-go/pkg/push"
	"github.com/theapemachine/a2a-go/pkg/stores"
	"github.com/theapemachine/a2a-go/pkg/tasks"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	storage := stores.NewInMemory(0, 0)
	taskManager := tasks.NewManager(storage, tasks.DefaultMaxHistoryLength)
	pushManager := push.NewManager(storage)
	cards := agentcard.NewServer(a2a.AgentCard{Name: "test-agent"}, agentcard.NewRegistry(), 0)
	h := NewHandler(context.Background(), taskManager, pushManager, cards, executor.Echo{}, DefaultConfig(), noopLogger{})

	mux := http.NewServeMux()
	h.Mount(mux, "")
	return mux
}

func TestMountServesAgentCard(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/agent-card", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test-agent")
}

func TestMountDispatchesNonStreamingRPC(t *testing.T) {
	mux := newTestMux(t)

	body, err := json.Marshal(jsonrpc.RPCRequest{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "tasks/get",
		Params:  json.RawMessage(`{"id":"missing"}`),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp jsonrpc.RPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, errors.ErrTaskNotFound.Code, resp.Error.Code)
}
