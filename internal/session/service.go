package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"clubhub-go/internal/config"
	"clubhub-go/internal/credential"
	"clubhub-go/internal/dispatch"
	"clubhub-go/internal/events"
	"clubhub-go/internal/monitoring"
	"clubhub-go/internal/oauth"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrNoSession is returned by Current and Claims when nobody is signed in.
var ErrNoSession = errors.New("not signed in")

// Service owns the credential lifecycle: sign-in stores a token and profile,
// sign-out removes them. Renewal itself belongs to the dispatcher.
type Service struct {
	dispatcher *dispatch.Dispatcher
	store      credential.Store
	cfg        *config.Config
	google     *oauth.Manager
	events     events.Publisher
}

// Option customizes a Service.
type Option func(*Service)

// WithGoogle enables the OAuth code flow.
func WithGoogle(m *oauth.Manager) Option {
	return func(s *Service) { s.google = m }
}

// WithEvents publishes session.started and session.ended to p.
func WithEvents(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

func NewService(d *dispatch.Dispatcher, cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Service{
		dispatcher: d,
		store:      d.Store(),
		cfg:        cfg,
		events:     events.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login signs in with email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	body, _ := sjson.SetBytes(nil, "email", email)
	body, _ = sjson.SetBytes(body, "password", password)
	return s.signIn(ctx, "login", "/auth/login", body)
}

// Register creates an account and signs in with it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	body, _ := sjson.SetBytes(nil, "name", in.Name)
	body, _ = sjson.SetBytes(body, "email", in.Email)
	body, _ = sjson.SetBytes(body, "password", in.Password)
	if in.Role != "" {
		body, _ = sjson.SetBytes(body, "role", in.Role)
	}
	return s.signIn(ctx, "register", "/auth/register", body)
}

// LoginWithGoogle exchanges a Google ID token for a club session.
func (s *Service) LoginWithGoogle(ctx context.Context, idToken string) (*User, error) {
	body, _ := sjson.SetBytes(nil, "credential", idToken)
	return s.signIn(ctx, "google", "/auth/google", body)
}

// GoogleAuthURL starts a Google sign-in and returns the consent URL and its
// state.
func (s *Service) GoogleAuthURL(ctx context.Context) (string, string, error) {
	if s.google == nil {
		return "", "", fmt.Errorf("google sign-in not configured")
	}
	return s.google.StartAuthFlow(ctx)
}

// ExchangeGoogleCode completes a Google sign-in started by GoogleAuthURL.
func (s *Service) ExchangeGoogleCode(ctx context.Context, code, state string) (*User, error) {
	if s.google == nil {
		return nil, fmt.Errorf("google sign-in not configured")
	}
	id, err := s.google.HandleCallback(ctx, code, state)
	if err != nil {
		return nil, err
	}
	return s.LoginWithGoogle(ctx, id.IDToken)
}

func (s *Service) signIn(ctx context.Context, method, path string, body []byte) (*User, error) {
	resp, err := s.dispatcher.Dispatch(ctx, &dispatch.Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        body,
		SkipRenewal: true,
	})
	if err != nil {
		monitoring.SessionEventsTotal.WithLabelValues(method + "_failed").Inc()
		return nil, err
	}

	token := resp.Get(s.tokenField()).String()
	if token == "" {
		return nil, fmt.Errorf("%s: response carried no token", path)
	}
	userJSON := resp.Get("user")
	if !userJSON.IsObject() {
		return nil, fmt.Errorf("%s: response carried no user", path)
	}
	user, err := decodeUser(userJSON.Raw)
	if err != nil {
		return nil, err
	}

	if err := s.store.Set(ctx, credential.KeyToken, token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	if err := s.store.Set(ctx, credential.KeyUser, userJSON.Raw); err != nil {
		if derr := s.store.Delete(ctx, credential.KeyToken); derr != nil {
			log.WithError(derr).Warn("failed to discard token after user write failed")
		}
		return nil, fmt.Errorf("store user: %w", err)
	}

	route := s.cfg.RouteForRole(user.Role)
	s.dispatcher.Navigator().Navigate(route)
	s.events.Publish(ctx, events.TopicSessionStarted, user, map[string]string{"method": method})
	monitoring.SessionEventsTotal.WithLabelValues(method).Inc()
	log.WithFields(log.Fields{"user_id": user.ID, "role": user.Role, "method": method, "route": route}).Info("signed in")
	return user, nil
}

// Logout tells the backend (best effort), clears the local credential, and
// returns to the login route.
func (s *Service) Logout(ctx context.Context) error {
	if _, err := s.dispatcher.Dispatch(ctx, &dispatch.Request{
		Method:      http.MethodPost,
		Path:        "/auth/logout",
		SkipRenewal: true,
	}); err != nil {
		log.WithError(err).Debug("backend logout failed, clearing local session anyway")
	}

	if err := s.store.Delete(ctx, credential.KeyToken, credential.KeyUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	nav := s.dispatcher.Navigator()
	if nav.CurrentRoute() != s.loginRoute() {
		nav.Navigate(s.loginRoute())
	}
	s.events.Publish(ctx, events.TopicSessionEnded, nil, nil)
	monitoring.SessionEventsTotal.WithLabelValues("logout").Inc()
	log.Info("signed out")
	return nil
}

// Current returns the stored profile.
func (s *Service) Current(ctx context.Context) (*User, error) {
	raw, err := s.store.Get(ctx, credential.KeyUser)
	if errors.Is(err, credential.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

// Claims decodes the stored token.
func (s *Service) Claims(ctx context.Context) (*Claims, error) {
	token, err := s.store.Get(ctx, credential.KeyToken)
	if errors.Is(err, credential.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	return parseClaims(token)
}

// Refresh asks the backend for the current profile through the dispatcher,
// renewing the token if it has expired, and updates the stored copy.
func (s *Service) Refresh(ctx context.Context) (*User, error) {
	resp, err := s.dispatcher.Get(ctx, "/auth/me")
	if err != nil {
		return nil, err
	}
	userJSON := resp.Get("user")
	if !userJSON.IsObject() {
		userJSON = gjson.ParseBytes(resp.Body)
	}
	user, err := decodeUser(userJSON.Raw)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, credential.KeyUser, userJSON.Raw); err != nil {
		return nil, fmt.Errorf("store user: %w", err)
	}
	return user, nil
}

func (s *Service) tokenField() string {
	if s.cfg.Auth.TokenField != "" {
		return s.cfg.Auth.TokenField
	}
	return dispatch.DefaultTokenField
}

func (s *Service) loginRoute() string {
	if s.cfg.Auth.LoginRoute != "" {
		return s.cfg.Auth.LoginRoute
	}
	return dispatch.DefaultLoginRoute
}
