package dispatch

import (
	"time"

	"clubhub-go/internal/config"
	"clubhub-go/internal/events"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithNavigator(n Navigator) Option {
	return func(d *Dispatcher) {
		if n != nil {
			d.nav = n
		}
	}
}

func WithEvents(p events.Publisher) Option {
	return func(d *Dispatcher) {
		if p != nil {
			d.events = p
		}
	}
}

// WithRefreshPath sets the renewal endpoint, relative to the base URL.
func WithRefreshPath(path string) Option {
	return func(d *Dispatcher) {
		if path != "" {
			d.refreshPath = path
		}
	}
}

// WithTokenField sets the gjson path of the new token in the refresh body.
func WithTokenField(field string) Option {
	return func(d *Dispatcher) {
		if field != "" {
			d.tokenField = field
		}
	}
}

// WithLoginRoute sets where the user is sent when the session expires.
func WithLoginRoute(route string) Option {
	return func(d *Dispatcher) {
		if route != "" {
			d.loginRoute = route
		}
	}
}

// WithRenewalTimeout bounds the refresh call.
func WithRenewalTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.renewalTimeout = timeout
		}
	}
}

// OptionsFromConfig maps the auth section onto dispatcher options.
func OptionsFromConfig(cfg *config.Config) []Option {
	return []Option{
		WithRefreshPath(cfg.Auth.RefreshPath),
		WithTokenField(cfg.Auth.TokenField),
		WithLoginRoute(cfg.Auth.LoginRoute),
		WithRenewalTimeout(cfg.RenewalTimeout()),
	}
}
