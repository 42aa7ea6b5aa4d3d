package shipstation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeffects/shipstation-endpoint/internal/domain/fulfillment"
)

// maxResponseSize is the maximum allowed response size from the OData API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// ErrCredentialsRequired indicates neither the request nor the config carried credentials
var ErrCredentialsRequired = errors.New("shipstation: username and password required")

// Client opens OData sessions against ShipStation
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
	tracer     trace.Tracer
	limiter    *rate.Limiter
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets the tracer used for outgoing request spans
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// NewClient creates a new client with the given configuration
func NewClient(config *Config, opts ...Option) (*Client, error) {
	if config == nil {
		config = NewConfig("", "")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: zap.NewNop(),
		tracer: otel.Tracer("shipstation"),
	}
	if config.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Open starts a session. Incomplete credentials fall back to the configured pair.
func (c *Client) Open(_ context.Context, creds fulfillment.Credentials) (fulfillment.Session, error) {
	if !creds.IsComplete() {
		creds = fulfillment.Credentials{Username: c.config.Username, Password: c.config.Password}
	}
	if !creds.IsComplete() {
		return nil, ErrCredentialsRequired
	}
	return newSession(c, creds), nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// response is a fully read HTTP response
type response struct {
	status int
	header http.Header
	body   []byte
}

// doRequest performs an authenticated HTTP request and reads the whole body.
// Status codes of 400 and above are returned as errors.
func (c *Client) doRequest(ctx context.Context, creds fulfillment.Credentials, method, target, contentType string, body io.Reader) (*response, error) {
	ctx, span := c.tracer.Start(ctx, "shipstation "+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", target),
	)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", fulfillment.ErrRemoteUnavailable, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("shipstation: failed to create request: %w", err)
	}
	req.SetBasicAuth(creds.Username, creds.Password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("DataServiceVersion", "2.0")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return nil, fmt.Errorf("%w: %v", fulfillment.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", fulfillment.ErrRemoteUnavailable, err)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	c.logger.Debug("shipstation request",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		span.SetStatus(codes.Error, "unauthorized")
		return nil, fmt.Errorf("%w: HTTP %d", fulfillment.ErrRemoteAuthFailed, resp.StatusCode)
	case resp.StatusCode >= 400:
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("%w: HTTP %d - %s", fulfillment.ErrRemoteRequestFailed, resp.StatusCode, parseErrorMessage(data))
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

var _ fulfillment.SessionFactory = (*Client)(nil)
