// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jeranaias/ragworks-tui/internal/logging"
)

const (
	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB

	// DeviceIDHeader carries the anonymous device id on every request.
	DeviceIDHeader = "X-Device-ID"

	tracerName = "github.com/jeranaias/ragworks-tui/internal/backend"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnauthorized matches any *APIError with status 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTransport wraps failures to reach the backend or read its reply.
	ErrTransport = errors.New("backend unreachable")

	// ErrBadResponse wraps 2xx replies that do not decode or lack required
	// fields. The backend answered, but not in a usable form.
	ErrBadResponse = errors.New("unexpected backend response")
)

// Fallback messages used when a non-2xx response carries no error text.
const (
	FallbackAuth   = "Something went wrong"
	FallbackChat   = "Failed to get response"
	FallbackUpload = "Upload failed"
	FallbackClear  = "Failed to clear"
	FallbackOAuth  = "OAuth exchange failed"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Op      string
	Status  int
	Message string
}

// Error returns the backend's message unchanged so it can be shown to the
// user as-is.
func (e *APIError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Error string `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the auth and knowledge services. It is safe for
// concurrent use. Each method makes exactly one HTTP request.
type Client struct {
	baseURL    string
	authURL    string
	httpClient *http.Client
	deviceID   string
	userAgent  string
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewClient creates a client for the knowledge service at baseURL. The auth
// service defaults to the same URL.
func NewClient(baseURL string) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{
		baseURL: baseURL,
		authURL: baseURL,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: "ragworks",
		logger:    logging.Discard(),
		tracer:    otel.Tracer(tracerName),
	}
}

// WithAuthURL sets the auth service URL.
func (c *Client) WithAuthURL(url string) *Client {
	c.authURL = strings.TrimSuffix(url, "/")
	return c
}

// WithTimeout bounds every request. Zero means no timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithDeviceID sets the value of the X-Device-ID header.
func (c *Client) WithDeviceID(id string) *Client {
	c.deviceID = id
	return c
}

// WithUserAgent sets the User-Agent header.
func (c *Client) WithUserAgent(ua string) *Client {
	c.userAgent = ua
	return c
}

// WithLogger sets the request logger.
func (c *Client) WithLogger(l *slog.Logger) *Client {
	c.logger = logging.OrDiscard(l)
	return c
}

// WithTracer sets the tracer used for request spans.
func (c *Client) WithTracer(t trace.Tracer) *Client {
	if t != nil {
		c.tracer = t
	}
	return c
}

// BaseURL returns the knowledge service URL.
func (c *Client) BaseURL() string { return c.baseURL }

// AuthURL returns the auth service URL.
func (c *Client) AuthURL() string { return c.authURL }

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// request describes one backend call.
type request struct {
	op          string
	method      string
	url         string
	body        io.Reader
	contentType string
	credential  string
	fallback    string
}

// do sends req and returns the body of a 2xx response. Non-2xx responses
// become *APIError; anything else wraps ErrTransport.
func (c *Client) do(ctx context.Context, req request) (body []byte, err error) {
	ctx, span := c.tracer.Start(ctx, "backend."+req.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.method),
			attribute.String("url.full", req.url),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, req.body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	c.setHeaders(httpReq, req)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("backend request failed", "op", req.op, "method", req.method,
			"path", httpReq.URL.Path, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	c.logger.Info("backend request", "op", req.op, "method", req.method,
		"path", httpReq.URL.Path, "status", resp.StatusCode, "duration", time.Since(start))
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err = readResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(req.op, resp.StatusCode, body, req.fallback)
	}
	return body, nil
}

// setHeaders sets the headers every request carries, plus the bearer
// credential when the call is protected.
func (c *Client) setHeaders(httpReq *http.Request, req request) {
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if c.deviceID != "" {
		httpReq.Header.Set(DeviceIDHeader, c.deviceID)
	}
	if req.credential != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.credential)
	}
}

// readResponse reads the body, refusing anything over MaxResponseSize.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// newAPIError extracts the backend's {"error": "..."} message, falling back
// when the body is empty, not JSON, or has no error text.
func newAPIError(op string, status int, body []byte, fallback string) *APIError {
	msg := fallback
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		msg = eb.Error
	}
	return &APIError{Op: op, Status: status, Message: msg}
}

// postJSON encodes payload and sends it.
func (c *Client) postJSON(ctx context.Context, op, url, credential, fallback string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", op, err)
	}
	return c.do(ctx, request{
		op:          op,
		method:      http.MethodPost,
		url:         url,
		body:        bytes.NewReader(data),
		contentType: "application/json",
		credential:  credential,
		fallback:    fallback,
	})
}

// decode unmarshals a 2xx body.
func decode(op string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", ErrBadResponse, op, err)
	}
	return nil
}

// Probe checks that the service at url answers HTTP. Any status counts;
// only transport failures are returned.
func (c *Client) Probe(ctx context.Context, url string) error {
	_, err := c.do(ctx, request{op: "probe", method: http.MethodGet, url: url})
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return nil
	}
	return err
}
