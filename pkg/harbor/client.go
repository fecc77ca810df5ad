package harbor

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/harbor-usertools/pkg/observability"
)

// APIBasePath is the path prefix of the Harbor v2 REST API
const APIBasePath = "/api/v2.0"

var tracer = otel.Tracer("github.com/platinummonkey/harbor-usertools/pkg/harbor")

// Config configures a Harbor API client
type Config struct {
	// Host is the Harbor URL, with or without the /api/v2.0 suffix
	Host     string
	Username string
	Password string

	// Insecure disables TLS certificate verification
	Insecure bool
	Timeout  time.Duration

	// Transport overrides the base round tripper (tests)
	Transport http.RoundTripper
	Metrics   *observability.Metrics
}

// Client talks to the Harbor v2.0 API using basic authentication
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	metrics    *observability.Metrics
}

// NewClient creates a new Harbor API client
func NewClient(cfg Config) (*Client, error) {
	baseURL, err := BaseURL(cfg.Host)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	base := cfg.Transport
	if base == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.Insecure {
			//nolint:gosec // explicitly requested with --insecure
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		base = transport
	}

	return &Client{
		baseURL:  baseURL,
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(base),
		},
		metrics: cfg.Metrics,
	}, nil
}

// BaseURL normalizes a Harbor host into the API base URL. The /api/v2.0
// suffix is appended unless the host already carries it.
func BaseURL(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", fmt.Errorf("harbor host is required")
	}

	u, err := url.Parse(host)
	if err != nil {
		return "", fmt.Errorf("invalid harbor host %q: %w", host, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid harbor host %q: scheme must be http or https", host)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid harbor host %q: missing host name", host)
	}

	trimmed := strings.TrimRight(host, "/")
	if strings.HasSuffix(trimmed, APIBasePath) {
		return trimmed, nil
	}
	return trimmed + APIBasePath, nil
}

// BaseURL returns the API base URL the client sends requests to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes a single API call
type request struct {
	operation string
	method    string
	path      string
	query     url.Values
	headers   map[string]string
	body      interface{}
}

// do executes the request and decodes a JSON response into out when out is non-nil.
// Any non-2xx response is returned as an *APIError.
func (c *Client) do(ctx context.Context, req request, out interface{}) (err error) {
	ctx, span := tracer.Start(ctx, "Harbor."+req.operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("harbor.operation", req.operation),
			attribute.String("http.method", req.method),
			attribute.String("harbor.path", req.path),
		),
	)
	defer span.End()

	start := time.Now()
	statusCode := 0
	defer func() {
		c.metrics.ObserveAPICall(req.operation, statusCode, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var bodyReader io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", req.operation, err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", req.operation, err)
	}
	httpReq.SetBasicAuth(c.username, c.password)
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", req.operation, err)
	}
	defer resp.Body.Close()

	statusCode = resp.StatusCode
	span.SetAttributes(attribute.Int("http.status_code", statusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{
			Operation:  req.operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", req.operation, err)
	}
	return nil
}
