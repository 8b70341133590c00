package wled

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrUnexpectedStatus is returned when the controller answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("wled: unexpected status")

// Client talks to a single WLED controller over its JSON API.
//
// Thread Safety:
//   - Safe for concurrent use; it holds no mutable state.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for baseURL (e.g. "http://192.168.1.50").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No client timeout: callers bound each request with their context.
		http: &http.Client{},
	}
}

// BaseURL builds the controller URL from a configured host and port.
// A host that already carries a scheme is used as is.
func BaseURL(host string, port int) string {
	if strings.Contains(host, "://") {
		return host
	}
	if port == 0 || port == 80 {
		return "http://" + host
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

// Info fetches /json/info.
func (c *Client) Info(ctx context.Context) (*Info, error) {
	var info Info
	body, err := c.get(ctx, "/json/info")
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decoding info: %w", err)
	}
	return &info, nil
}

// State fetches /json/state verbatim, for later replay with SetRawState.
func (c *Client) State(ctx context.Context) (json.RawMessage, error) {
	body, err := c.get(ctx, "/json/state")
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("decoding state: invalid JSON")
	}
	return json.RawMessage(body), nil
}

// SetState posts a partial state update.
func (c *Client) SetState(ctx context.Context, s State) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	return c.post(ctx, "/json/state", payload)
}

// SetRawState posts a previously captured state object unchanged.
func (c *Client) SetRawState(ctx context.Context, raw json.RawMessage) error {
	return c.post(ctx, "/json/state", raw)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = c.do(req)
	return err
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s %s returned %d", ErrUnexpectedStatus, req.Method, req.URL.Path, resp.StatusCode)
	}
	return body, nil
}
