// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostservice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jpillora/sizestr"

	"github.com/bureau-foundation/corebridge/bridge"
	"github.com/bureau-foundation/corebridge/lib/clock"
	"github.com/bureau-foundation/corebridge/lib/message"
	"github.com/bureau-foundation/corebridge/lib/netutil"
)

// DefaultTimeout bounds one HTTP call when HTTPConfig.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// HTTPConfig configures an HTTPService.
type HTTPConfig struct {
	// Timeout bounds each call from dial to the last body byte. Zero
	// means DefaultTimeout.
	Timeout time.Duration

	// MaxResponseBytes bounds the response body. A larger body fails
	// the call instead of being truncated. Zero means
	// netutil.DefaultMaxBodySize.
	MaxResponseBytes int64

	// RatePerHost limits calls per second to any single host, with
	// RateBurst calls allowed at once. Zero disables limiting.
	RatePerHost float64
	RateBurst   int

	// FollowRedirects makes the client follow 3xx responses. When
	// false the redirect response itself is returned to the engine.
	FollowRedirects bool

	// UserAgent is sent when the engine's request has no User-Agent
	// header. Empty leaves Go's default.
	UserAgent string

	// Client overrides the HTTP client. Redirect policy still follows
	// FollowRedirects. Used in tests to route requests to a local
	// server.
	Client *http.Client

	// Clock drives the rate limiter. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives per-call Debug lines and failures. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

var _ bridge.Handler = (*HTTPService)(nil)

// HTTPService performs HTTP calls on behalf of the engine.
type HTTPService struct {
	client           *http.Client
	timeout          time.Duration
	maxResponseBytes int64
	userAgent        string
	limiter          *hostLimiter
	clock            clock.Clock
	logger           *slog.Logger
}

// NewHTTPService creates an HTTPService.
func NewHTTPService(config HTTPConfig) *HTTPService {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var client http.Client
	if config.Client != nil {
		client = *config.Client
	} else {
		client.Transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}
	// The per-call context carries the deadline.
	client.Timeout = 0
	if config.FollowRedirects {
		client.CheckRedirect = nil
	} else {
		client.CheckRedirect = func(request *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &HTTPService{
		client:           &client,
		timeout:          timeout,
		maxResponseBytes: config.MaxResponseBytes,
		userAgent:        config.UserAgent,
		limiter:          newHostLimiter(config.RatePerHost, config.RateBurst),
		clock:            clk,
		logger:           logger,
	}
}

// Route registers the service under message.ServiceHTTPRequest.
func (s *HTTPService) Route() bridge.Route {
	return bridge.Route{Type: message.ServiceHTTPRequest, Handler: s}
}

// Handle decodes an HTTPRequest, performs it, and encodes the result.
func (s *HTTPService) Handle(ctx context.Context, request message.Request) message.Response {
	httpRequest, err := message.UnmarshalHTTPRequest(request.Body)
	if err != nil {
		return message.ErrorResponse("malformed http request: %v", err)
	}

	httpResponse, err := s.Do(ctx, httpRequest)
	if err != nil {
		s.logger.Debug("http call failed",
			"method", httpRequest.Method,
			"url", redactURL(httpRequest.URL),
			"error", err,
		)
		return message.Response{Error: err.Error()}
	}
	return message.Response{Body: httpResponse.Marshal()}
}

// Do performs one HTTP call. The returned error describes why no
// response could be obtained; any status code the server sends is a
// successful result.
func (s *HTTPService) Do(ctx context.Context, request message.HTTPRequest) (message.HTTPResponse, error) {
	target, err := url.Parse(request.URL)
	if err != nil {
		return message.HTTPResponse{}, fmt.Errorf("invalid url: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return message.HTTPResponse{}, fmt.Errorf("invalid url %q: unsupported scheme %q", redactURL(request.URL), target.Scheme)
	}
	if target.Host == "" {
		return message.HTTPResponse{}, fmt.Errorf("invalid url %q: missing host", redactURL(request.URL))
	}

	if !s.limiter.allow(target.Hostname(), s.clock.Now()) {
		return message.HTTPResponse{}, fmt.Errorf("rate limit exceeded for host %s", target.Hostname())
	}

	method := strings.ToUpper(request.Method)
	if method == "" {
		method = http.MethodGet
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var body io.Reader
	if len(request.Body) > 0 {
		body = bytes.NewReader(request.Body)
	}
	httpRequest, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return message.HTTPResponse{}, fmt.Errorf("building request: %w", err)
	}
	callerAgent := false
	for name, value := range request.Headers {
		switch {
		case strings.EqualFold(name, "Host"):
			httpRequest.Host = value
		case strings.EqualFold(name, "User-Agent"):
			// net/http writes its own User-Agent line from the
			// canonical key only.
			httpRequest.Header.Set("User-Agent", value)
			callerAgent = true
		default:
			// Stored verbatim so the engine's header names keep their
			// casing on HTTP/1.x connections.
			httpRequest.Header[name] = []string{value}
		}
	}
	if s.userAgent != "" && !callerAgent {
		httpRequest.Header.Set("User-Agent", s.userAgent)
	}

	start := time.Now()
	response, err := s.client.Do(httpRequest)
	if err != nil {
		return message.HTTPResponse{}, err
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadBounded(response.Body, s.maxResponseBytes)
	if err != nil {
		return message.HTTPResponse{}, fmt.Errorf("reading response body from %s: %w", target.Hostname(), err)
	}

	s.logger.Debug("http call completed",
		"method", method,
		"url", redactURL(request.URL),
		"status", response.StatusCode,
		"body_size", sizestr.ToString(int64(len(responseBody))),
		"elapsed", time.Since(start),
	)
	return message.HTTPResponse{Code: int32(response.StatusCode), Body: responseBody}, nil
}

// redactURL strips userinfo and the query string before logging.
// Explorer URLs often carry API keys as query parameters.
func redactURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "(unparseable)"
	}
	parsed.User = nil
	if parsed.RawQuery != "" {
		parsed.RawQuery = "redacted"
	}
	return parsed.String()
}
