package transport

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ipcTransport implements Transport over a local byte-stream socket. It
// shares the id-routed response model with the WebSocket flavor; the wire is
// a plain JSON value stream in both directions, each request written with a
// trailing newline.
type ipcTransport struct {
	path   string
	nextID atomic.Uint64

	mu      sync.Mutex // guards conn, enc, closed, done
	conn    net.Conn
	enc     *json.Encoder
	closed  chan struct{}
	pending *pendingCalls
	done    bool
}

var _ Transport = (*ipcTransport)(nil)

// DialIPC builds a transport for the socket at path. The socket is opened
// lazily on the first call and reopened if a previous one was closed.
func DialIPC(path string) *ipcTransport {
	return &ipcTransport{
		path:    path,
		pending: newPendingCalls(),
	}
}

// connect opens the socket if there is none. Called with t.mu held.
func (t *ipcTransport) connect(ctx context.Context) error {
	if t.done {
		return &Error{Kind: KindNotConnected, Msg: "transport closed"}
	}
	if t.conn != nil {
		return nil
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", t.path)
	if err != nil {
		return &Error{Kind: KindNetwork, Msg: "dial: " + err.Error()}
	}

	t.conn = conn
	t.enc = json.NewEncoder(conn)
	t.closed = make(chan struct{})
	go t.readLoop(conn, t.closed)
	return nil
}

// Call sends a JSON-RPC request over the socket and waits for the matching
// response.
func (t *ipcTransport) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	start := time.Now()
	result, err := t.call(ctx, method, params...)
	observeCall(ctx, method, time.Since(start), err)
	return result, err
}

func (t *ipcTransport) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
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
	err := t.enc.Encode(request{JsonRPC: "2.0", ID: id, Method: method, Params: params})
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

// readLoop decodes the response stream and routes by id until the socket
// fails, at which point it is dropped for lazy reopen.
func (t *ipcTransport) readLoop(conn net.Conn, closed chan struct{}) {
	defer close(closed)

	dec := json.NewDecoder(conn)
	for {
		var resp response
		if err := dec.Decode(&resp); err != nil {
			t.dropConn()
			return
		}
		t.pending.deliver(resp)
	}
}

// dropConn discards the current socket so the next call reopens one.
func (t *ipcTransport) dropConn() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
		t.enc = nil
	}
}

// Health implements the Transport interface.
func (t *ipcTransport) Health(ctx context.Context) (Health, error) {
	return healthProbe(ctx, t.Call)
}

// Endpoint implements the Transport interface.
func (t *ipcTransport) Endpoint() string {
	return t.path
}

// Close implements the Transport interface.
func (t *ipcTransport) Close() error {
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
