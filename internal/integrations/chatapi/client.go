package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultLocalBaseURL      = "http://localhost:8080"
	DefaultProductionBaseURL = "https://portofolio-nafhan-production.up.railway.app"
)

// chatRequest is the request body accepted by the chat backend.
type chatRequest struct {
	Message string `json:"message"`
}

// chatResponse is the success body returned by the chat backend.
type chatResponse struct {
	Reply *string `json:"reply"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("chatapi: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// MalformedResponseError reports a 2xx response without a usable reply.
type MalformedResponseError struct {
	URL    string
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("chatapi: malformed response from %s: %s", e.URL, e.Reason)
	}
	return fmt.Sprintf("chatapi: malformed response from %s: %s: %v", e.URL, e.Reason, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

func (e *MalformedResponseError) MalformedResponse() bool {
	return true
}

// Client posts chat messages to an ordered list of endpoints and returns the
// first successful reply.
type Client struct {
	endpoints  []string
	httpClient *http.Client
	log        *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds each request. Zero leaves the platform default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a Client trying endpoints in order. Blank and duplicate
// endpoints are dropped.
func NewClient(endpoints []string, opts ...Option) (*Client, error) {
	eps := dedupe(endpoints)
	if len(eps) == 0 {
		return nil, errors.New("chatapi: at least one endpoint is required")
	}
	c := &Client{
		endpoints:  eps,
		httpClient: &http.Client{},
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Endpoints() []string {
	out := make([]string, len(c.endpoints))
	copy(out, c.endpoints)
	return out
}

// Reply sends message to each endpoint in turn, one attempt each, and stops
// at the first success. The returned error joins every attempt's failure.
func (c *Client) Reply(ctx context.Context, message string) (string, error) {
	var errs []error
	for i, endpoint := range c.endpoints {
		reply, err := c.Send(ctx, endpoint, message)
		if err == nil {
			if i > 0 {
				c.log.Info("chat reply served by fallback endpoint", "endpoint", endpoint, "attempt", i+1)
			}
			return reply, nil
		}
		errs = append(errs, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			errs = append(errs, ctxErr)
			break
		}
		if i < len(c.endpoints)-1 {
			c.log.Warn("chat endpoint failed, trying next", "endpoint", endpoint, "err", err)
		}
	}
	return "", fmt.Errorf("chatapi: all endpoints failed: %w", errors.Join(errs...))
}

// Send performs a single POST of message to endpoint.
func (c *Client) Send(ctx context.Context, endpoint, message string) (string, error) {
	body, err := json.Marshal(chatRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("chatapi: marshal request: %w", err)
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if reqErr != nil {
		return "", fmt.Errorf("chatapi: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	raw, err := c.doJSONRequest(req, endpoint)
	if err != nil {
		return "", fmt.Errorf("chatapi: request to %s failed: %w", endpoint, err)
	}

	var payload chatResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return "", &MalformedResponseError{URL: endpoint, Reason: "decode body", Err: decErr}
	}
	if payload.Reply == nil {
		return "", &MalformedResponseError{URL: endpoint, Reason: "missing reply"}
	}
	if strings.TrimSpace(*payload.Reply) == "" {
		return "", &MalformedResponseError{URL: endpoint, Reason: "blank reply"}
	}
	return *payload.Reply, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return http.DefaultClient
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

func dedupe(endpoints []string) []string {
	seen := make(map[string]struct{}, len(endpoints))
	out := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
