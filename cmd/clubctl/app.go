package main

import (
	"context"
	"fmt"

	"clubhub-go/internal/config"
	"clubhub-go/internal/credential"
	"clubhub-go/internal/dispatch"
	"clubhub-go/internal/events"
	"clubhub-go/internal/logging"
	"clubhub-go/internal/monitoring/tracing"
	"clubhub-go/internal/oauth"
	"clubhub-go/internal/session"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app holds what a single clubctl invocation needs. The client stack is
// built lazily so commands like version and mock-server never touch the
// credential store.
type app struct {
	configPath string
	debug      bool

	cfg           *config.Config
	traceShutdown func(context.Context) error

	store  *credential.Instrumented
	routes *dispatch.RouteTracker
	hub    *events.Hub
	disp   *dispatch.Dispatcher
	svc    *session.Service
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.debug {
		cfg.Log.Debug = true
	}
	a.cfg = cfg
	if err := logging.SetupTo(cmd.ErrOrStderr(), cfg); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	shutdown, err := tracing.Init(cmd.Context())
	if err != nil {
		log.WithError(err).Warn("failed to initialize tracing")
	}
	a.traceShutdown = shutdown
	return nil
}

// client builds the dispatcher and session service on first use.
func (a *app) client(ctx context.Context) (*session.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	store, err := credential.Open(ctx, a.cfg.Store)
	if err != nil {
		return nil, err
	}
	transport, err := dispatch.NewHTTPTransport(a.cfg.API.BaseURL,
		dispatch.WithTimeout(a.cfg.Timeout()),
		dispatch.WithRateLimit(a.cfg.API.RateLimitRPS, a.cfg.API.RateLimitBurst),
		dispatch.WithUserAgent(a.cfg.API.UserAgent),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a.store = store
	a.routes = dispatch.NewRouteTracker("/")
	a.hub = events.NewHub()
	a.hub.Subscribe(events.TopicSessionExpired, func(_ context.Context, ev events.Event) {
		log.WithField("reason", ev.Metadata["reason"]).Warn("session expired, run `clubctl login` again")
	})
	a.disp = dispatch.New(transport, store,
		append(dispatch.OptionsFromConfig(a.cfg),
			dispatch.WithNavigator(a.routes),
			dispatch.WithEvents(a.hub),
		)...)

	opts := []session.Option{session.WithEvents(a.hub)}
	if a.cfg.Auth.GoogleClientID != "" {
		opts = append(opts, session.WithGoogle(oauth.NewManager(
			a.cfg.Auth.GoogleClientID,
			a.cfg.Auth.GoogleClientSecret,
			a.cfg.Auth.GoogleRedirectURL,
			oauth.WithSessionStore(store),
		)))
	}
	a.svc = session.NewService(a.disp, a.cfg, opts...)
	return a.svc, nil
}

func (a *app) close(ctx context.Context) error {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.WithError(err).Warn("failed to close credential store")
		}
	}
	if a.traceShutdown != nil {
		if err := a.traceShutdown(ctx); err != nil {
			log.WithError(err).Warn("failed to shutdown tracing")
		}
	}
	return nil
}
