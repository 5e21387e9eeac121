// Package backend is the client of the FinSight compute backend: uploads,
// forecasting, Monte Carlo simulation, portfolio optimization, sign-in,
// dashboard analytics and the backend's AI endpoints. Each call is a single
// round trip; retries are left to the user.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Dan9191/finsight/internal/config"
	"github.com/sirupsen/logrus"
)

// Client handles integration with the compute backend
type Client struct {
	url    string
	token  string
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new backend client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	timeout := cfg.BackendTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url: strings.TrimSuffix(cfg.BackendURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// WithToken returns a copy of the client that sends the bearer token
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

type bearerKey struct{}

// WithBearer returns a context whose calls carry token when the client has none
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

func (c *Client) bearer(ctx context.Context) string {
	if c.token != "" {
		return c.token
	}
	token, _ := ctx.Value(bearerKey{}).(string)
	return token
}

// errorBody covers the FastAPI error shapes and the {success, error} shape
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  string          `json:"error"`
}

func (b errorBody) message() string {
	if b.Error != "" {
		return b.Error
	}
	var s string
	if len(b.Detail) > 0 && json.Unmarshal(b.Detail, &s) == nil {
		return s
	}
	return strings.TrimSpace(string(b.Detail))
}

// send performs the request and decodes a 2xx JSON body into out
func (c *Client) send(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.url+path, body)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.bearer(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Status: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	c.log.Debugf("Backend %s %s -> %d (%d bytes)", method, path, resp.StatusCode, len(raw))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		msg := eb.message()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &Error{Kind: kindForStatus(resp.StatusCode), Op: op, Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindServer, Op: op, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	return c.send(ctx, op, http.MethodGet, path, nil, "", out)
}

func (c *Client) postJSON(ctx context.Context, op, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return validationError(op, "", "failed to encode request: %v", err)
	}
	return c.send(ctx, op, http.MethodPost, path, bytes.NewReader(payload), "application/json", out)
}

// Health checks that the backend answers
func (c *Client) Health(ctx context.Context) error {
	if err := c.getJSON(ctx, "health", "/health", nil); err != nil {
		return fmt.Errorf("backend unhealthy: %w", err)
	}
	return nil
}
