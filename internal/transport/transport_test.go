package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectNodeKind(t *testing.T) {
	tests := []struct {
		version  string
		expected NodeKind
	}{
		{"anvil/v0.2.0", NodeAnvil},
		{"Geth/v1.13.14-stable/linux-amd64/go1.21.7", NodeGeth},
		{"go-ethereum/v1.10.0", NodeGeth},
		{"reth/v0.2.0-beta.5", NodeReth},
		{"Nethermind/v1.25.4", NodeNethermind},
		{"besu/v24.1.2", NodeBesu},
		{"erigon/v2.58.1", NodeUnknown},
		{"", NodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectNodeKind(tt.version))
		})
	}
}

func TestNodeKindProfiles(t *testing.T) {
	assert.True(t, NodeAnvil.SupportsAnvil())
	assert.False(t, NodeGeth.SupportsAnvil())
	assert.True(t, NodeGeth.TraceCapable())
	assert.False(t, NodeUnknown.TraceCapable(), "unknown nodes get the conservative profile")
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		input    string
		scheme   Scheme
		hasError bool
	}{
		{"http://localhost:8545", SchemeHTTP, false},
		{"https://rpc.example.org", SchemeHTTP, false},
		{"ws://localhost:8546", SchemeWebSocket, false},
		{"wss://rpc.example.org/ws", SchemeWebSocket, false},
		{"/var/run/geth.ipc", SchemeIPC, false},
		{"geth.ipc", SchemeIPC, false},
		{"", 0, true},
		{"ftp://nope", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ep, err := ParseEndpoint(tt.input)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.scheme, ep.Scheme)
		})
	}
}

func TestErrorClassification(t *testing.T) {
	t.Run("method not found by code", func(t *testing.T) {
		err := (&rpcError{Code: -32601, Message: "the method debug_traceTransaction does not exist"}).asError()
		assert.Equal(t, KindMethodNotFound, err.Kind)
	})

	t.Run("method not found by message", func(t *testing.T) {
		err := (&rpcError{Code: -32000, Message: "Method not found"}).asError()
		assert.Equal(t, KindMethodNotFound, err.Kind)
	})

	t.Run("plain rpc error keeps code and data", func(t *testing.T) {
		err := (&rpcError{Code: 3, Message: "execution reverted", Data: json.RawMessage(`"0x"`)}).asError()
		assert.Equal(t, KindRPC, err.Kind)
		assert.Equal(t, 3, err.Code)
	})

	t.Run("retryable kinds", func(t *testing.T) {
		assert.True(t, (&Error{Kind: KindTimeout}).Retryable())
		assert.True(t, (&Error{Kind: KindNetwork}).Retryable())
		assert.False(t, (&Error{Kind: KindRPC}).Retryable())
		assert.False(t, (&Error{Kind: KindMethodNotFound}).Retryable())
	})

	t.Run("KindOf unwraps", func(t *testing.T) {
		wrapped := errors.Join(errors.New("outer"), &Error{Kind: KindDecode})
		assert.Equal(t, KindDecode, KindOf(wrapped))
		assert.Equal(t, KindNetwork, KindOf(errors.New("plain")))
	})
}

// rpcServer fakes a JSON-RPC HTTP endpoint with per-method handlers.
func rpcServer(t *testing.T, handlers map[string]func(params []json.RawMessage) (any, *rpcError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		handler, ok := handlers[req.Method]
		if !ok {
			writeRPC(w, req.ID, nil, &rpcError{Code: -32601, Message: "method not found"})
			return
		}

		result, rpcErr := handler(req.Params)
		writeRPC(w, req.ID, result, rpcErr)
	}))
}

func writeRPC(w http.ResponseWriter, id json.RawMessage, result any, rpcErr *rpcError) {
	resp := map[string]any{"jsonrpc": "2.0", "id": id}
	if rpcErr != nil {
		resp["error"] = map[string]any{"code": rpcErr.Code, "message": rpcErr.Message}
	} else {
		resp["result"] = result
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func TestHTTPTransport(t *testing.T) {
	t.Run("call round-trip", func(t *testing.T) {
		srv := rpcServer(t, map[string]func([]json.RawMessage) (any, *rpcError){
			"eth_blockNumber": func([]json.RawMessage) (any, *rpcError) { return "0x10", nil },
		})
		defer srv.Close()

		tr := DialHTTP(srv.URL)
		defer tr.Close()

		raw, err := tr.Call(context.Background(), "eth_blockNumber")
		require.NoError(t, err)
		assert.JSONEq(t, `"0x10"`, string(raw))
	})

	t.Run("rpc error surfaces typed", func(t *testing.T) {
		srv := rpcServer(t, map[string]func([]json.RawMessage) (any, *rpcError){})
		defer srv.Close()

		tr := DialHTTP(srv.URL)
		defer tr.Close()

		_, err := tr.Call(context.Background(), "debug_traceTransaction")
		require.Error(t, err)
		assert.Equal(t, KindMethodNotFound, KindOf(err))
	})

	t.Run("network failure classified", func(t *testing.T) {
		tr := DialHTTP("http://127.0.0.1:1") // nothing listens here
		defer tr.Close()

		_, err := tr.Call(context.Background(), "eth_blockNumber")
		require.Error(t, err)
		assert.Equal(t, KindNetwork, KindOf(err))
	})

	t.Run("health probe measures latency and detects the node", func(t *testing.T) {
		srv := rpcServer(t, map[string]func([]json.RawMessage) (any, *rpcError){
			"web3_clientVersion": func([]json.RawMessage) (any, *rpcError) { return "anvil/v0.2.0", nil },
		})
		defer srv.Close()

		tr := DialHTTP(srv.URL)
		defer tr.Close()

		health, err := tr.Health(context.Background())
		require.NoError(t, err)
		assert.Equal(t, NodeAnvil, health.NodeKind)
		assert.Equal(t, "anvil/v0.2.0", health.ClientVersion)
		assert.Greater(t, health.Latency, time.Duration(0))
	})
}
