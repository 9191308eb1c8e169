package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"clubhub-go/internal/credential"
	apierrors "clubhub-go/internal/errors"
	"clubhub-go/internal/events"
	"clubhub-go/internal/logging"
	"clubhub-go/internal/monitoring"
	"clubhub-go/internal/monitoring/tracing"

	"github.com/qmuntal/stateless"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultRefreshPath    = "/auth/refresh"
	DefaultTokenField     = "token"
	DefaultLoginRoute     = "/login"
	DefaultRenewalTimeout = 15 * time.Second
)

// Dispatcher attaches the stored bearer token to every call and, when the
// backend answers 401, renews the token once for all concurrent callers and
// replays each of them exactly once.
type Dispatcher struct {
	transport Transport
	store     credential.Store
	nav       Navigator
	events    events.Publisher

	refreshPath    string
	tokenField     string
	loginRoute     string
	renewalTimeout time.Duration

	// mu guards machine and pending. The refresh call never runs under it.
	mu      sync.Mutex
	machine *stateless.StateMachine
	pending []continuation
}

func New(transport Transport, store credential.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		transport:      transport,
		store:          store,
		nav:            NewRouteTracker("/"),
		events:         events.Nop{},
		refreshPath:    DefaultRefreshPath,
		tokenField:     DefaultTokenField,
		loginRoute:     DefaultLoginRoute,
		renewalTimeout: DefaultRenewalTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.machine = newRenewalMachine()
	return d
}

// Navigator returns the navigator used on session expiry.
func (d *Dispatcher) Navigator() Navigator { return d.nav }

// Store returns the credential store the dispatcher reads tokens from.
func (d *Dispatcher) Store() credential.Store { return d.store }

// Dispatch sends req. For non-2xx answers it returns the response together
// with a *errors.StatusError. A failed renewal yields a *errors.RenewalError
// matching errors.ErrSessionExpired, and a transport failure a
// *errors.NetworkError.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("dispatch: nil request")
	}
	start := time.Now()
	ctx, span := tracing.StartRequest(ctx, req.Method, req.Path)

	resp, err := d.do(ctx, req.clone())

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	kind := logging.ErrorKind(status, err != nil)
	if errors.Is(err, apierrors.ErrSessionExpired) {
		kind = "session_expired"
	}
	tracing.Finish(span, status, kind, err)
	monitoring.DispatchTotal.WithLabelValues(req.Method, kind).Inc()
	monitoring.DispatchDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	return resp, err
}

func (d *Dispatcher) Get(ctx context.Context, path string) (*Response, error) {
	return d.Dispatch(ctx, &Request{Method: http.MethodGet, Path: path})
}

func (d *Dispatcher) Post(ctx context.Context, path string, body []byte) (*Response, error) {
	return d.Dispatch(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

func (d *Dispatcher) Put(ctx context.Context, path string, body []byte) (*Response, error) {
	return d.Dispatch(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

func (d *Dispatcher) Delete(ctx context.Context, path string) (*Response, error) {
	return d.Dispatch(ctx, &Request{Method: http.MethodDelete, Path: path})
}

func (d *Dispatcher) do(ctx context.Context, req *Request) (*Response, error) {
	resp, err := d.send(ctx, req)
	if err != nil {
		return nil, err
	}

	entry := logging.WithCall("dispatch", req.Method, req.Path).WithField("status", resp.StatusCode)
	switch {
	case resp.StatusCode == http.StatusUnauthorized && !req.retried && !req.SkipRenewal:
		return d.renewAndReplay(ctx, req)
	case resp.StatusCode == http.StatusForbidden:
		entry.Warn("access denied")
	case resp.StatusCode == http.StatusInternalServerError:
		entry.Error("server error")
	default:
		entry.Debug("dispatched")
	}

	if !resp.OK() {
		return resp, apierrors.NewStatusError(req.Method, req.Path, resp.StatusCode, resp.Body)
	}
	return resp, nil
}

// send attaches the current credential and performs one round trip.
func (d *Dispatcher) send(ctx context.Context, req *Request) (*Response, error) {
	token, err := d.store.Get(ctx, credential.KeyToken)
	switch {
	case err == nil && token != "":
		req.Header.Set("Authorization", "Bearer "+token)
	case err == nil, errors.Is(err, credential.ErrNotFound):
		req.Header.Del("Authorization")
	default:
		return nil, fmt.Errorf("read credential: %w", err)
	}

	resp, err := d.transport.RoundTrip(ctx, req)
	if err != nil {
		var netErr *apierrors.NetworkError
		if errors.As(err, &netErr) {
			return nil, err
		}
		log.WithError(err).WithFields(log.Fields{"method": req.Method, "path": req.Path}).Debug("transport failure")
		return nil, apierrors.NewNetworkError(req.Method, req.Path, err)
	}
	return resp, nil
}
