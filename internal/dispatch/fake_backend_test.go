package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"clubhub-go/internal/credential"

	"github.com/stretchr/testify/require"
)

type call struct {
	path    string
	auth    string
	retried bool
}

// fakeBackend accepts bearer tokens listed in accept and serves the refresh
// endpoint through refresh, optionally held back by gate.
type fakeBackend struct {
	mu        sync.Mutex
	calls     []call
	refreshes int
	gate      chan struct{}
	accept    map[string]bool
	status    map[string]int
	refresh   func(auth string) (*Response, error)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		accept: map[string]bool{"tok2": true},
		status: map[string]int{},
		refresh: func(string) (*Response, error) {
			return jsonResponse(http.StatusOK, `{"token":"tok2"}`), nil
		},
	}
}

func jsonResponse(status int, body string) *Response {
	return &Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	}
}

func (b *fakeBackend) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	auth := req.Header.Get("Authorization")

	b.mu.Lock()
	b.calls = append(b.calls, call{path: req.Path, auth: auth, retried: req.Retried()})
	if req.Path == DefaultRefreshPath {
		b.refreshes++
		gate, refresh := b.gate, b.refresh
		b.mu.Unlock()
		if gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return refresh(auth)
	}
	status, fixed := b.status[req.Path]
	ok := b.accept[strings.TrimPrefix(auth, "Bearer ")]
	b.mu.Unlock()

	if fixed {
		return jsonResponse(status, fmt.Sprintf(`{"message":"status %d"}`, status)), nil
	}
	if !ok {
		return jsonResponse(http.StatusUnauthorized, `{"message":"Token expired"}`), nil
	}
	return jsonResponse(http.StatusOK, fmt.Sprintf(`{"path":%q}`, req.Path)), nil
}

func (b *fakeBackend) refreshCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshes
}

// count returns calls to path carrying the given Authorization header.
func (b *fakeBackend) count(path, auth string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c.path == path && c.auth == auth {
			n++
		}
	}
	return n
}

func (b *fakeBackend) callsTo(path string) []call {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []call
	for _, c := range b.calls {
		if c.path == path {
			out = append(out, c)
		}
	}
	return out
}

func seededStore(t *testing.T, token string) *credential.MemoryStore {
	t.Helper()
	store := credential.NewMemoryStore()
	ctx := context.Background()
	if token != "" {
		require.NoError(t, store.Set(ctx, credential.KeyToken, token))
		require.NoError(t, store.Set(ctx, credential.KeyUser, `{"id":"u1","role":"player"}`))
	}
	return store
}
