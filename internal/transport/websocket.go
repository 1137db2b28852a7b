package transport

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// pingInterval keeps idle WebSocket connections alive.
const pingInterval = 1 * time.Second

// wsTransport implements Transport over a WebSocket connection. Responses
// are routed back to callers by request id from a single read loop, so
// concurrent in-flight calls are safe.
type wsTransport struct {
	endpoint string
	nextID   atomic.Uint64

	mu      sync.Mutex // guards conn, closed, and writes
	conn    *websocket.Conn
	closed  chan struct{}
	pending *pendingCalls
	done    bool
}

var _ Transport = (*wsTransport)(nil)

// DialWebSocket builds a WebSocket transport for the given URL. The
// connection is established lazily on the first call and reopened if a
// previous one was closed.
func DialWebSocket(endpoint string) *wsTransport {
	return &wsTransport{
		endpoint: endpoint,
		pending:  newPendingCalls(),
	}
}

// connect opens the socket if there is none. Called with t.mu held.
func (t *wsTransport) connect(ctx context.Context) error {
	if t.done {
		return &Error{Kind: KindNotConnected, Msg: "transport closed"}
	}
	if t.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: CallTimeout}
	conn, _, err := dialer.DialContext(ctx, t.endpoint, nil)
	if err != nil {
		return &Error{Kind: KindNetwork, Msg: "dial: " + err.Error()}
	}

	t.conn = conn
	t.closed = make(chan struct{})
	go t.readLoop(conn, t.closed)
	go t.pingLoop(conn, t.closed)
	return nil
}

// Call sends a JSON-RPC request over the socket and waits for the matching
// response.
func (t *wsTransport) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	start := time.Now()
	result, err := t.call(ctx, method, params...)
	observeCall(ctx, method, time.Since(start), err)
	return result, err
}

func (t *wsTransport) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	id := t.nextID.Add(1)
	ch := t.pending.register(id)
	defer t.pending.drop(id)

	t.mu.Lock()
	if err := t.connect(ctx); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	closed := t.closed
	err := t.conn.WriteJSON(request{JsonRPC: "2.0", ID: id, Method: method, Params: params})
	t.mu.Unlock()
	if err != nil {
		t.dropConn()
		return nil, &Error{Kind: KindNetwork, Msg: "write: " + err.Error()}
	}

	select {
	case <-ctx.Done():
		return nil, &Error{Kind: KindTimeout, Msg: method + " exceeded call budget"}
	case <-closed:
		return nil, &Error{Kind: KindNetwork, Msg: "connection closed mid-call"}
	case resp := <-ch:
		return resp.Result, resp.Err()
	}
}

// readLoop reads frames from the socket and routes responses to waiting
// callers by id. On a read error the socket is dropped; the next call will
// reopen it.
func (t *wsTransport) readLoop(conn *websocket.Conn, closed chan struct{}) {
	defer close(closed)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			t.dropConn()
			return
		}

		var resp response
		if err := json.Unmarshal(message, &resp); err != nil {
			continue
		}
		t.pending.deliver(resp)
	}
}

// pingLoop issues a control ping on every interval until the socket closes.
func (t *wsTransport) pingLoop(conn *websocket.Conn, closed chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			t.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingInterval))
			t.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// dropConn discards the current socket so the next call reopens one.
func (t *wsTransport) dropConn() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
}

// Health implements the Transport interface.
func (t *wsTransport) Health(ctx context.Context) (Health, error) {
	return healthProbe(ctx, t.Call)
}

// Endpoint implements the Transport interface.
func (t *wsTransport) Endpoint() string {
	return t.endpoint
}

// Close implements the Transport interface.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	t.done = true
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// pendingCalls routes responses back to in-flight callers by request id.
type pendingCalls struct {
	mu    sync.Mutex
	calls map[uint64]chan response
}

func newPendingCalls() *pendingCalls {
	return &pendingCalls{calls: make(map[uint64]chan response)}
}

func (p *pendingCalls) register(id uint64) <-chan response {
	ch := make(chan response, 1)
	p.mu.Lock()
	p.calls[id] = ch
	p.mu.Unlock()
	return ch
}

func (p *pendingCalls) drop(id uint64) {
	p.mu.Lock()
	delete(p.calls, id)
	p.mu.Unlock()
}

func (p *pendingCalls) deliver(resp response) {
	var id uint64
	if err := json.Unmarshal(resp.ID, &id); err != nil {
		return
	}

	p.mu.Lock()
	ch, ok := p.calls[id]
	p.mu.Unlock()
	if ok {
		select {
		case ch <- resp:
		default:
		}
	}
}
