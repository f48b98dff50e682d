// Package rpcclient provides a JSON-RPC 2.0 client for CKB nodes and their
// built-in indexer.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// DefaultTimeout bounds a single HTTP round trip.
const DefaultTimeout = 30 * time.Second

// Client is a JSON-RPC 2.0 HTTP client.
type Client struct {
	endpoint string
	http     *http.Client
	nextID   atomic.Uint64
}

// New creates a new RPC client targeting the given endpoint URL.
func New(endpoint string) *Client {
	return NewWithTimeout(endpoint, DefaultTimeout)
}

// NewWithTimeout creates a new RPC client with a custom HTTP timeout.
func NewWithTimeout(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the URL the client posts to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// request is a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      uint64 `json:"id"`
}

// response is a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      uint64          `json:"id"`
}

// RPCError is returned when the server responds with an error.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s: %s", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call invokes a JSON-RPC method and unmarshals the result into the provided
// pointer. If result is nil, the response result is discarded. params must
// marshal to a JSON array.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	if params == nil {
		params = []any{}
	}
	id := c.nextID.Add(1)
	body, err := json.Marshal(request{JSONRPC: "2.0", Method: method, Params: params, ID: id})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: http status %d: %s", method, resp.StatusCode, bytes.TrimSpace(data))
	}

	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if rpcResp.ID != id {
		return fmt.Errorf("%s: response id %d, want %d", method, rpcResp.ID, id)
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}
