package dispatch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"clubhub-go/internal/credential"
	apierrors "clubhub-go/internal/errors"
	"clubhub-go/internal/events"
	"clubhub-go/internal/monitoring"
	"clubhub-go/internal/monitoring/tracing"

	"github.com/qmuntal/stateless"
	log "github.com/sirupsen/logrus"
)

type renewalState string

const (
	stateIdle           renewalState = "idle"
	stateRenewing       renewalState = "renewing"
	stateDrainedSuccess renewalState = "drained_success"
	stateDrainedFailure renewalState = "drained_failure"
)

type renewalTrigger string

const (
	triggerUnauthorized renewalTrigger = "unauthorized"
	triggerRenewed      renewalTrigger = "renewed"
	triggerFailed       renewalTrigger = "failed"
	triggerDrained      renewalTrigger = "drained"
)

// outcome settles one parked request.
type outcome struct{ err error }

type continuation func(outcome)

func newRenewalMachine() *stateless.StateMachine {
	sm := stateless.NewStateMachine(stateIdle)
	sm.Configure(stateIdle).
		Permit(triggerUnauthorized, stateRenewing)
	// Further 401s while renewing only enqueue.
	sm.Configure(stateRenewing).
		PermitReentry(triggerUnauthorized).
		Permit(triggerRenewed, stateDrainedSuccess).
		Permit(triggerFailed, stateDrainedFailure)
	sm.Configure(stateDrainedSuccess).
		Permit(triggerDrained, stateIdle)
	sm.Configure(stateDrainedFailure).
		Permit(triggerDrained, stateIdle)

	sm.OnTransitioned(func(_ context.Context, t stateless.Transition) {
		if t.Source == t.Destination {
			return
		}
		log.WithFields(log.Fields{
			"from":    t.Source,
			"to":      t.Destination,
			"trigger": t.Trigger,
		}).Debug("renewal state")
	})
	return sm
}

// fire must be called with d.mu held.
func (d *Dispatcher) fire(trigger renewalTrigger) {
	if err := d.machine.Fire(trigger); err != nil {
		log.WithError(err).WithField("trigger", trigger).Error("renewal state machine rejected trigger")
	}
}

// state must be called with d.mu held.
func (d *Dispatcher) state() renewalState {
	return d.machine.MustState().(renewalState)
}

// State returns the renewal state name.
func (d *Dispatcher) State() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return string(d.state())
}

// Pending returns the number of requests parked behind the current renewal.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// renewAndReplay handles a first 401 for req: it either joins the renewal in
// flight or starts one, and replays req once the renewal succeeds.
func (d *Dispatcher) renewAndReplay(ctx context.Context, req *Request) (*Response, error) {
	replay := req.clone()
	replay.retried = true

	d.mu.Lock()
	if d.state() == stateRenewing {
		done := make(chan outcome, 1)
		d.pending = append(d.pending, func(o outcome) { done <- o })
		d.fire(triggerUnauthorized)
		monitoring.RenewalWaiters.Set(float64(len(d.pending)))
		d.mu.Unlock()

		select {
		case o := <-done:
			if o.err != nil {
				return nil, o.err
			}
			monitoring.ReplaysTotal.WithLabelValues("waiter").Inc()
			return d.do(ctx, replay)
		case <-ctx.Done():
			return nil, apierrors.NewNetworkError(req.Method, req.Path, ctx.Err())
		}
	}
	d.fire(triggerUnauthorized)
	d.mu.Unlock()

	renewErr := d.renew(ctx)
	if renewErr != nil {
		d.clearSession(ctx)
	}

	d.mu.Lock()
	if renewErr == nil {
		d.fire(triggerRenewed)
	} else {
		d.fire(triggerFailed)
	}
	waiters := d.pending
	d.pending = nil
	d.fire(triggerDrained)
	monitoring.RenewalWaiters.Set(0)
	d.mu.Unlock()

	// Channels are buffered, so draining never blocks on a waiter that gave up.
	for _, resume := range waiters {
		resume(outcome{err: renewErr})
	}

	if renewErr != nil {
		d.expire(ctx, renewErr, len(waiters))
		return nil, renewErr
	}
	monitoring.ReplaysTotal.WithLabelValues("initiator").Inc()
	return d.do(ctx, replay)
}

// renew calls the refresh endpoint with the current token, straight through
// the transport so it can never re-enter the 401 handling. It is detached
// from the caller's cancellation because other requests may be waiting on it.
func (d *Dispatcher) renew(ctx context.Context) error {
	start := time.Now()
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.renewalTimeout)
	defer cancel()
	rctx, span := tracing.StartRenewal(rctx, d.refreshPath)

	err := d.refresh(rctx)

	monitoring.RenewalDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		monitoring.RenewalsTotal.WithLabelValues("failure").Inc()
		tracing.Finish(span, apierrors.StatusCode(err), "renewal_failed", err)
		log.WithError(err).WithField("path", d.refreshPath).Warn("credential renewal failed")
		return &apierrors.RenewalError{Cause: err}
	}
	monitoring.RenewalsTotal.WithLabelValues("success").Inc()
	tracing.Finish(span, 0, "renewed", nil)
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("credential renewed")
	d.events.Publish(ctx, events.TopicCredentialRenewed, nil, nil)
	return nil
}

func (d *Dispatcher) refresh(ctx context.Context) error {
	req := &Request{Method: http.MethodGet, Path: d.refreshPath, Header: make(http.Header), retried: true, SkipRenewal: true}
	resp, err := d.send(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return apierrors.NewStatusError(req.Method, req.Path, resp.StatusCode, resp.Body)
	}
	// A 2xx without a token keeps the current credential.
	if token := resp.Get(d.tokenField); token.Exists() && token.String() != "" {
		if err := d.store.Set(ctx, credential.KeyToken, token.String()); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) clearSession(ctx context.Context) {
	if err := d.store.Delete(context.WithoutCancel(ctx), credential.KeyToken, credential.KeyUser); err != nil {
		log.WithError(err).Error("failed to clear credential after renewal failure")
	}
}

// expire reports the dead session and sends the user to the login route.
func (d *Dispatcher) expire(ctx context.Context, cause error, waiters int) {
	log.WithError(cause).WithField("waiters", waiters).Warn("session expired")
	monitoring.SessionEventsTotal.WithLabelValues("expired").Inc()

	reason := cause.Error()
	var re *apierrors.RenewalError
	if errors.As(cause, &re) && re.Cause != nil {
		reason = re.Cause.Error()
	}
	d.events.Publish(ctx, events.TopicSessionExpired, nil, map[string]string{"reason": reason})

	if d.nav.CurrentRoute() != d.loginRoute {
		d.nav.Navigate(d.loginRoute)
	}
}
