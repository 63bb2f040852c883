package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// UpstreamError is returned for any non-2xx response from a platform service.
// Message carries the upstream error body so callers can surface it verbatim.
type UpstreamError struct {
	Service string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s service: status %d: %s", e.Service, e.Status, e.Message)
}

// httpClient is the shared transport for all platform service wrappers.
// It adds request/response logging, a fixed per-service timeout, and
// error translation. No business logic lives here.
type httpClient struct {
	service string
	baseURL string
	hc      *http.Client
	log     *slog.Logger
	headers map[string]string
}

func newHTTPClient(service, baseURL string, timeout time.Duration, log *slog.Logger) *httpClient {
	if log == nil {
		log = slog.Default()
	}
	return &httpClient{
		service: service,
		baseURL: baseURL,
		hc:      &http.Client{Timeout: timeout},
		log:     log.With("client", service),
	}
}

// doJSON issues a JSON request and decodes the response into out (if non-nil).
// Responses outside 2xx become *UpstreamError; network errors are wrapped
// with the service name. No retries at this layer.
func (c *httpClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s service: encode request: %w", c.service, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s service: build request: %w", c.service, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Error("request failed", "method", method, "path", path, "err", err)
		return fmt.Errorf("%s service: %w", c.service, err)
	}
	defer resp.Body.Close()

	c.log.Debug("request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", float64(time.Since(start).Milliseconds()),
	)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s service: read response: %w", c.service, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		uerr := &UpstreamError{Service: c.service, Status: resp.StatusCode, Message: upstreamMessage(raw)}
		c.log.Warn("upstream error", "method", method, "path", path, "status", resp.StatusCode, "message", uerr.Message)
		return uerr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s service: decode response: %w", c.service, err)
	}
	return nil
}

// upstreamMessage extracts an error message from a service response body.
// Platform services answer {"error": "..."} or {"message": "..."}.
func upstreamMessage(raw []byte) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	if len(raw) > 200 {
		raw = raw[:200]
	}
	return string(raw)
}

// healthOK performs a GET /health and reports reachability as a bool.
func (c *httpClient) healthOK(ctx context.Context) bool {
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, nil); err != nil {
		return false
	}
	return true
}
