// ABOUTME: HTTP client for a running pairchat server
// ABOUTME: Resolves conversations, sends messages, and checks server health

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/pairchat/internal/api"
	"github.com/2389/pairchat/internal/chat"
)

// ErrUnauthorized is returned when the server rejects the token.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is a non-success reply from the server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// Client talks to a pairchat server on behalf of one signed-in user.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for the server at baseURL using the given bearer token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health reports whether the server answers its health check.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("checking health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// Resolve returns the conversation between the caller and peerID.
func (c *Client) Resolve(ctx context.Context, peerID string) (chat.Conversation, error) {
	var conv chat.Conversation
	err := c.doJSON(ctx, http.MethodPost, "/api/conversations", nil, api.ResolveRequest{PeerID: peerID}, http.StatusOK, &conv)
	return conv, err
}

// Send posts a message from the caller to peerID under a fresh idempotency key.
func (c *Client) Send(ctx context.Context, peerID, text string) (chat.Message, error) {
	return c.SendWithKey(ctx, peerID, text, uuid.NewString())
}

// SendWithKey posts a message under the given idempotency key. Repeating a
// call with the same key returns the original message.
func (c *Client) SendWithKey(ctx context.Context, peerID, text, key string) (chat.Message, error) {
	var resp api.SendResponse
	header := http.Header{}
	if key != "" {
		header.Set(api.IdempotencyHeader, key)
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/messages", header, api.SendRequest{PeerID: peerID, Text: text}, http.StatusCreated, &resp)
	return resp.Message, err
}

// doJSON sends body as JSON (none when nil) and decodes a wantStatus reply
// into out.
func (c *Client) doJSON(ctx context.Context, method, path string, header http.Header, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return readError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// readError turns a non-success response into an error, using the JSON
// error body when there is one.
func readError(resp *http.Response) error {
	var errResp api.ErrorResponse
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if errResp.Error != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, errResp.Error)
		}
		return ErrUnauthorized
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: errResp.Error}
}
