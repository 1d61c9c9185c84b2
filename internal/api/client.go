package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"Agent311/internal/auth"
	"Agent311/internal/backend"
	"Agent311/internal/telemetry"
)

// Requester sends authenticated requests to the backend. *auth.Client implements it.
type Requester interface {
	Do(*http.Request) (*http.Response, error)
	BaseURL() string
}

// TransportError is returned for any non-2xx response or network failure.
// Status is 0 when no response was received.
type TransportError struct {
	Op     string
	Status int
	Detail string
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Status, e.Detail)
	default:
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.Status)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports a 401 as auth.ErrUnauthorized.
func (e *TransportError) Is(target error) bool {
	return target == auth.ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status
	}
	return 0
}

// Client is the typed wrapper over the agent backend.
type Client struct {
	requester Requester
	tracer    trace.Tracer
	duration  metric.Float64Histogram
	logger    *slog.Logger
}

// New creates an API client. Requests go through requester so the bearer
// token and 401 handling apply to every call.
func New(requester Requester, tel telemetry.Telemetry, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	duration, err := tel.Meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		logger.Warn("failed to create duration histogram", "error", err)
	}
	return &Client{
		requester: requester,
		tracer:    tel.Tracer,
		duration:  duration,
		logger:    logger,
	}
}

// escapeComponent percent-encodes s for a query value, with spaces as %20.
// It escapes more characters than a browser would; servers decode both alike.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// send issues one request and returns the response when the status is 2xx.
// On any other outcome the body is drained and a *TransportError returned.
func (c *Client) send(ctx context.Context, op, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	ctx, span := c.tracer.Start(ctx, "api."+op)
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("url.path", path))

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, c.requester.BaseURL()+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.requester.Do(req)
	c.record(ctx, op, start, resp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, &TransportError{Op: op, Err: err}
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		te := &TransportError{Op: op, Status: resp.StatusCode, Detail: readDetail(resp.Body)}
		span.SetStatus(codes.Error, te.Error())
		c.logger.Warn("api request failed", "op", op, "status", resp.StatusCode)
		return nil, te
	}

	c.logger.Debug("api request", "op", op, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	return resp, nil
}

func (c *Client) record(ctx context.Context, op string, start time.Time, resp *http.Response) {
	if c.duration == nil {
		return
	}
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.duration.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(attribute.String("op", op), attribute.Int("status", status)))
}

// doJSON sends in (when non-nil) as JSON and decodes the response into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
		contentType = "application/json"
	}

	resp, err := c.send(ctx, op, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", op, err)
	}
	return nil
}

// readDetail extracts the FastAPI "detail" message from an error body.
func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 8*1024))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var errResp backend.ErrorResponse
	if err := json.Unmarshal(raw, &errResp); err != nil {
		return ""
	}
	if s, ok := errResp.Detail.(string); ok {
		return s
	}
	return ""
}
