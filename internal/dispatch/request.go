package dispatch

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"
)

// Request is one outbound API call.
type Request struct {
	Method string
	// Path is joined to the transport's base URL unless it is absolute.
	Path   string
	Header http.Header
	Body   []byte

	// SkipRenewal marks calls whose 401 means bad credentials rather than an
	// expired token (login, register).
	SkipRenewal bool

	retried bool
}

// Retried reports whether this request is the replay after a renewal.
func (r *Request) Retried() bool { return r.retried }

func (r *Request) clone() *Request {
	out := *r
	if r.Header != nil {
		out.Header = r.Header.Clone()
	} else {
		out.Header = make(http.Header)
	}
	return &out
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Get reads a gjson path from the body.
func (r *Response) Get(path string) gjson.Result { return gjson.GetBytes(r.Body, path) }

// Transport performs a single call. Network failures are errors; any HTTP
// status, including 4xx and 5xx, is a Response.
type Transport interface {
	RoundTrip(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

func (f TransportFunc) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
