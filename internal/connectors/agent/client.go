package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitInfo is the rate-limit state reported by the agent backend in
// response headers. It is overwritten on every call, never persisted.
type RateLimitInfo struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
	SeenAt    time.Time `json:"seen_at"`
}

// APIError is a non-2xx response from the agent backend.
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("agent status=%d message=%s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("agent status=%d", e.StatusCode)
}

// RateLimited reports whether the backend rejected the call with HTTP 429.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Client talks to the media-monitoring-agent HTTP API.
type Client struct {
	endpoint string
	http     *http.Client

	mu        sync.Mutex
	csrfToken string
	rateLimit *RateLimitInfo
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.endpoint != ""
}

func (c *Client) Endpoint() string {
	if c == nil {
		return ""
	}
	return c.endpoint
}

// RateLimit returns a copy of the rate-limit state from the most recent
// response carrying X-RateLimit headers, or nil if none seen yet.
func (c *Client) RateLimit() *RateLimitInfo {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rateLimit == nil {
		return nil
	}
	cp := *c.rateLimit
	return &cp
}

// FetchCSRFToken obtains the anti-forgery token attached to mutating calls.
// Failures are tolerated: mutating calls proceed without a token and the
// next mutating call retries the fetch.
func (c *Client) FetchCSRFToken(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}

	var payload struct {
		CSRFToken string `json:"csrf_token"`
	}
	if err := c.get(ctx, "/api/csrf-token", &payload); err != nil {
		return fmt.Errorf("fetch csrf token: %w", err)
	}

	c.mu.Lock()
	c.csrfToken = strings.TrimSpace(payload.CSRFToken)
	c.mu.Unlock()
	return nil
}

func (c *Client) csrf(ctx context.Context) string {
	c.mu.Lock()
	token := c.csrfToken
	c.mu.Unlock()
	if token != "" {
		return token
	}

	if err := c.FetchCSRFToken(ctx); err != nil {
		log.Printf("csrf token unavailable, continuing without: %v", err)
		return ""
	}
	c.mu.Lock()
	token = c.csrfToken
	c.mu.Unlock()
	return token
}

// HealthStatus is the agent backend health summary.
type HealthStatus struct {
	Status string `json:"status"`
	PingMS int64  `json:"ping_ms"`
}

// Health probes the backend health endpoint and measures round-trip time.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	if !c.Enabled() {
		return nil, nil
	}

	start := time.Now()
	var payload struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/health", &payload); err != nil {
		return nil, err
	}
	return &HealthStatus{
		Status: payload.Status,
		PingMS: time.Since(start).Milliseconds(),
	}, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out, false)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out, true)
}

func (c *Client) delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out, true)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, mutating bool) error {
	var reader io.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(blob)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if mutating {
		if token := c.csrf(ctx); token != "" {
			req.Header.Set("X-CSRF-Token", token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.captureRateLimit(resp.Header)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.asAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) asAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	blob, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	var payload struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(blob, &payload); err == nil {
		switch {
		case payload.Message != "":
			apiErr.Message = payload.Message
		case payload.Detail != "":
			apiErr.Message = payload.Detail
		case payload.Error != "":
			apiErr.Message = payload.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(blob))
	}

	if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		} else if at, err := http.ParseTime(ra); err == nil {
			if d := time.Until(at); d > 0 {
				apiErr.RetryAfter = d
			}
		}
	}

	return apiErr
}

func (c *Client) captureRateLimit(h http.Header) {
	limitRaw := strings.TrimSpace(h.Get("X-RateLimit-Limit"))
	remainingRaw := strings.TrimSpace(h.Get("X-RateLimit-Remaining"))
	if limitRaw == "" && remainingRaw == "" {
		return
	}

	info := &RateLimitInfo{SeenAt: time.Now().UTC()}
	if v, err := strconv.Atoi(limitRaw); err == nil {
		info.Limit = v
	}
	if v, err := strconv.Atoi(remainingRaw); err == nil {
		info.Remaining = v
	}
	if v, err := strconv.ParseInt(strings.TrimSpace(h.Get("X-RateLimit-Reset")), 10, 64); err == nil && v > 0 {
		info.Reset = time.Unix(v, 0).UTC()
	}

	c.mu.Lock()
	c.rateLimit = info
	c.mu.Unlock()
}

// Timestamp tolerates the backend's timestamp formats: RFC 3339 with or
// without offset, and bare ISO 8601 as emitted by its datetime serializer.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}
