// Package transport implements single-endpoint JSON-RPC 2.0 request/response
// over HTTP, WebSocket, or a local socket, with a uniform error taxonomy the
// ingestion engine bases its retry and reconnect decisions on. The transport
// itself never retries; it only reopens a socket that was previously closed.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CallTimeout is the wall-clock budget for any individual call.
const CallTimeout = 3 * time.Second

// ErrorKind classifies a transport failure.
type ErrorKind int

const (
	KindTimeout ErrorKind = iota
	KindNetwork
	KindDecode
	KindMethodNotFound
	KindRPC
	KindNotConnected
)

// String returns the lowercase name used in logs and status toasts.
func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	case KindMethodNotFound:
		return "method-not-found"
	case KindRPC:
		return "rpc-error"
	case KindNotConnected:
		return "not-connected"
	default:
		return "unknown"
	}
}

// Error is the single error type callers receive from a Transport.
type Error struct {
	Kind ErrorKind
	Code int    // JSON-RPC error code, when Kind is KindRPC or KindMethodNotFound
	Msg  string
	Data json.RawMessage // server-provided error data, if any
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: [%d] %s", e.Kind, e.Code, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Retryable reports whether the engine may retry the call that produced e.
func (e *Error) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindNetwork
}

// KindOf extracts the ErrorKind from err, or KindNetwork if err is not a
// transport error (an expired context deadline maps to timeout).
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindNetwork
}

// NodeKind is the negotiated client implementation behind the endpoint.
type NodeKind string

const (
	NodeAnvil      NodeKind = "anvil"
	NodeGeth       NodeKind = "geth"
	NodeReth       NodeKind = "reth"
	NodeNethermind NodeKind = "nethermind"
	NodeBesu       NodeKind = "besu"
	NodeUnknown    NodeKind = "unknown"
)

// SupportsAnvil reports whether anvil_* methods may be attempted.
func (k NodeKind) SupportsAnvil() bool {
	return k == NodeAnvil
}

// TraceCapable reports whether debug_traceTransaction is worth probing;
// it is false only for unknown nodes. The engine does not consult it: trace
// support is learned from the first probe's method-not-found answer.
func (k NodeKind) TraceCapable() bool {
	return k != NodeUnknown
}

// DetectNodeKind maps a web3_clientVersion string to a NodeKind by substring
// match against known prefixes.
func DetectNodeKind(clientVersion string) NodeKind {
	lower := strings.ToLower(clientVersion)
	switch {
	case strings.Contains(lower, "anvil"):
		return NodeAnvil
	case strings.Contains(lower, "reth"):
		return NodeReth
	case strings.Contains(lower, "geth"), strings.Contains(lower, "go-ethereum"):
		return NodeGeth
	case strings.Contains(lower, "nethermind"):
		return NodeNethermind
	case strings.Contains(lower, "besu"):
		return NodeBesu
	default:
		return NodeUnknown
	}
}

// Health is the result of a health probe.
type Health struct {
	ClientVersion string
	NodeKind      NodeKind
	Latency       time.Duration
}

// Transport is a single-endpoint JSON-RPC client. Implementations are owned
// by the ingestion goroutine and are not safe for concurrent Call use unless
// documented otherwise.
type Transport interface {
	// Call sends a JSON-RPC request and returns the raw result. Failures are
	// always a *Error. The context bounds the call in addition to the
	// transport's own CallTimeout.
	Call(ctx context.Context, method string, params ...any) (json.RawMessage, error)

	// Health issues web3_clientVersion and measures wall-clock latency.
	Health(ctx context.Context) (Health, error)

	// Endpoint returns the dialed endpoint in display form.
	Endpoint() string

	// Close releases the underlying connection. A closed transport reports
	// KindNotConnected from Call unless the implementation reopens sockets
	// lazily.
	Close() error
}

// request is a standard JSON-RPC 2.0 request envelope.
type request struct {
	JsonRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// response is a standard JSON-RPC 2.0 response envelope.
type response struct {
	JsonRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Error   *rpcError       `json:"error"`
	Result  json.RawMessage `json:"result"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// methodNotFoundCode is defined by the JSON-RPC 2.0 specification.
const methodNotFoundCode = -32601

// asError converts a JSON-RPC error object into the transport taxonomy.
func (e *rpcError) asError() *Error {
	kind := KindRPC
	if e.Code == methodNotFoundCode || strings.Contains(strings.ToLower(e.Message), "method not found") {
		kind = KindMethodNotFound
	}
	return &Error{Kind: kind, Code: e.Code, Msg: e.Message, Data: e.Data}
}

// Err returns the response's error in taxonomy form, or nil.
func (r response) Err() error {
	if r.Error == nil {
		return nil
	}
	return r.Error.asError()
}

// healthProbe implements Health on top of a Call func so all three flavors
// share it.
func healthProbe(ctx context.Context, call func(context.Context, string, ...any) (json.RawMessage, error)) (Health, error) {
	start := time.Now()
	raw, err := call(ctx, "web3_clientVersion")
	if err != nil {
		return Health{}, err
	}

	var version string
	if err := json.Unmarshal(raw, &version); err != nil {
		return Health{}, &Error{Kind: KindDecode, Msg: err.Error()}
	}

	return Health{
		ClientVersion: version,
		NodeKind:      DetectNodeKind(version),
		Latency:       time.Since(start),
	}, nil
}
