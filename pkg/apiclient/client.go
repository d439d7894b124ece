// Package apiclient is the HTTP client of the application REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dukex/appflow/pkg/models"
	"github.com/dukex/appflow/pkg/otelhelper"
	"github.com/moogar0880/problems"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	problemMediaType = "application/problem+json"

	// ActorHeader carries the display name of the user performing an action.
	ActorHeader = "X-Actor-Name"

	defaultTimeout = 30 * time.Second
)

// Client talks to the application API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	actor      string
	tracer     trace.Tracer
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithActor names the user recorded as completing workflow steps.
func WithActor(actor string) Option {
	return func(c *Client) { c.actor = actor }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		tracer:     otel.Tracer("appflow/apiclient"),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func applicationPath(applicationID string, parts ...string) string {
	segments := append([]string{"applications", url.PathEscape(applicationID)}, parts...)

	return "/" + strings.Join(segments, "/")
}

// do sends a request and decodes the envelope's data into out when out is not nil.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, op,
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	)
	defer span.End()

	err := c.roundTrip(ctx, op, method, path, body, out)
	if err != nil {
		otelhelper.SetError(span, err)
	}

	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &RequestError{Op: op, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &RequestError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	if c.actor != "" {
		req.Header.Set(ActorHeader, c.actor)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.DebugContext(ctx, "API response", "op", op, "status", resp.StatusCode, "bytes", len(raw))

	if isProblem(resp.Header.Get("Content-Type")) {
		return decodeProblem(op, resp.StatusCode, raw)
	}

	var envelope models.Envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &RequestError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if !envelope.Success {
		message := envelope.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}

		return &BusinessError{Op: op, Status: resp.StatusCode, Message: message}
	}

	if out == nil || len(envelope.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return &RequestError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode data: %w", err)}
	}

	return nil
}

func isProblem(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)

	return err == nil && mediaType == problemMediaType
}

func decodeProblem(op string, status int, raw []byte) error {
	var problem problems.Problem
	if err := json.Unmarshal(raw, &problem); err != nil {
		return &RequestError{Op: op, Status: status, Err: errors.Join(errors.New("unreadable problem response"), err)}
	}

	message := problem.Detail
	if message == "" {
		message = problem.Title
	}

	if status >= http.StatusInternalServerError {
		return &RequestError{Op: op, Status: status, Err: errors.New(message)}
	}

	return &BusinessError{Op: op, Status: status, Message: message}
}
