package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

// httpTransport is a JSON-RPC client over HTTP. The retryablehttp client is
// configured with zero retries: the engine owns the retry policy, the HTTP
// layer only contributes connection reuse and timeout handling.
type httpTransport struct {
	endpoint   string
	httpClient *retryablehttp.Client
}

var _ Transport = (*httpTransport)(nil)

// DialHTTP builds an HTTP transport for the given URL. No connection is
// opened until the first call.
func DialHTTP(endpoint string) *httpTransport {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil
	client.HTTPClient.Timeout = CallTimeout

	return &httpTransport{
		endpoint:   endpoint,
		httpClient: client,
	}
}

// Call sends a JSON-RPC request to the remote server with the given method
// and parameters. The `id` field is generated as a UUID string.
func (t *httpTransport) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	start := time.Now()
	result, err := t.call(ctx, method, params...)
	observeCall(ctx, method, time.Since(start), err)
	return result, err
}

func (t *httpTransport) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	body, err := json.Marshal(request{
		JsonRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, &Error{Kind: KindDecode, Msg: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Msg: err.Error()}
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := t.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &Error{Kind: KindTimeout, Msg: method + " exceeded call budget"}
		}
		return nil, &Error{Kind: KindNetwork, Msg: err.Error()}
	}
	defer res.Body.Close()

	var data response
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, &Error{Kind: KindDecode, Msg: err.Error()}
	}

	return data.Result, data.Err()
}

// Health implements the Transport interface.
func (t *httpTransport) Health(ctx context.Context) (Health, error) {
	return healthProbe(ctx, t.Call)
}

// Endpoint implements the Transport interface.
func (t *httpTransport) Endpoint() string {
	return t.endpoint
}

// Close implements the Transport interface. HTTP keeps no long-lived
// connection state beyond the pool, which is released here.
func (t *httpTransport) Close() error {
	t.httpClient.HTTPClient.CloseIdleConnections()
	return nil
}
