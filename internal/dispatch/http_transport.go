package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clubhub-go/internal/constants"
	"clubhub-go/internal/monitoring/tracing"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// HTTPTransport sends Requests to the club backend over net/http.
type HTTPTransport struct {
	client    *http.Client
	baseURL   string
	timeout   time.Duration
	limiter   *rate.Limiter
	userAgent string
	maxBody   int64
}

// ErrResponseTooLarge is returned when a response body exceeds the
// transport's size cap.
var ErrResponseTooLarge = errors.New("response body too large")

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		if c != nil {
			t.client = c
		}
	}
}

// WithTimeout bounds each call; zero disables the bound.
func WithTimeout(d time.Duration) HTTPOption {
	return func(t *HTTPTransport) { t.timeout = d }
}

// WithRateLimit throttles outbound calls with a token bucket. rps <= 0
// disables throttling.
func WithRateLimit(rps float64, burst int) HTTPOption {
	return func(t *HTTPTransport) {
		if rps <= 0 {
			t.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithUserAgent(ua string) HTTPOption {
	return func(t *HTTPTransport) { t.userAgent = ua }
}

// WithMaxResponseBytes caps response bodies; n <= 0 keeps the default.
func WithMaxResponseBytes(n int64) HTTPOption {
	return func(t *HTTPTransport) {
		if n > 0 {
			t.maxBody = n
		}
	}
}

func NewHTTPTransport(baseURL string, opts ...HTTPOption) (*HTTPTransport, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	t := &HTTPTransport{
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: constants.DefaultRequestTimeout,
		maxBody: constants.MaxResponseBytes,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// URL resolves path against the base URL.
func (t *HTTPTransport) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return t.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (t *HTTPTransport) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, t.URL(req.Path), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	if body != nil && hreq.Header.Get("Content-Type") == "" {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if hreq.Header.Get("Accept") == "" {
		hreq.Header.Set("Accept", "application/json")
	}
	if hreq.Header.Get("X-Request-ID") == "" {
		hreq.Header.Set("X-Request-ID", uuid.NewString())
	}
	if t.userAgent != "" {
		hreq.Header.Set("User-Agent", t.userAgent)
	}
	tracing.InjectHeaders(ctx, hreq.Header)

	resp, err := t.client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(data)) > t.maxBody {
		return nil, fmt.Errorf("%s %s: %w (limit %d bytes)", req.Method, req.Path, ErrResponseTooLarge, t.maxBody)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
