package oauth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"clubhub-go/internal/credential"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// SessionTTL is how long a started sign-in stays redeemable.
const SessionTTL = 10 * time.Minute

const sessionKeyPrefix = "oauth_session:"

var DefaultScopes = []string{"openid", "email", "profile"}

// ErrUnknownState is returned for a callback whose state was never issued,
// was already redeemed, or has expired.
var ErrUnknownState = errors.New("invalid state or session expired")

// ManagerOption customizes Manager creation.
type ManagerOption func(*Manager)

// Manager runs the Google authorization-code flow with PKCE. Pending
// sessions live in a credential.Store so the flow can span processes.
type Manager struct {
	clientID     string
	clientSecret string
	redirectURI  string
	scopes       []string
	sessions     credential.Store
	httpClient   *http.Client
	endpoint     oauth2.Endpoint
	now          func() time.Time
}

func NewManager(clientID, clientSecret, redirectURI string, opts ...ManagerOption) *Manager {
	m := &Manager{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  firstNonEmpty(redirectURI, "http://localhost:3000/auth/google/callback"),
		scopes:       append([]string(nil), DefaultScopes...),
		sessions:     credential.NewMemoryStore(),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		endpoint:     google.Endpoint,
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// WithHTTPClient overrides the HTTP client used for the token exchange.
func WithHTTPClient(client *http.Client) ManagerOption {
	return func(m *Manager) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithOAuthEndpoint overrides the auth/token endpoints.
func WithOAuthEndpoint(endpoint oauth2.Endpoint) ManagerOption {
	return func(m *Manager) {
		if endpoint.AuthURL != "" && endpoint.TokenURL != "" {
			m.endpoint = endpoint
		}
	}
}

// WithSessionStore persists pending sessions in store.
func WithSessionStore(store credential.Store) ManagerOption {
	return func(m *Manager) {
		if store != nil {
			m.sessions = store
		}
	}
}

// WithNowFunc overrides the clock (testing).
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Configured reports whether client credentials are present.
func (m *Manager) Configured() bool {
	return strings.TrimSpace(m.clientID) != "" && strings.TrimSpace(m.clientSecret) != ""
}

// StartAuthFlow returns the consent URL and the state to expect back.
func (m *Manager) StartAuthFlow(ctx context.Context) (authURL, state string, err error) {
	if !m.Configured() {
		return "", "", fmt.Errorf("google oauth client credentials not configured")
	}

	state = uuid.NewString()
	codeVerifier, err := generateCodeVerifier()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate code verifier: %w", err)
	}

	raw, err := json.Marshal(AuthSession{State: state, CodeVerifier: codeVerifier, CreatedAt: m.now()})
	if err != nil {
		return "", "", err
	}
	if err := m.sessions.Set(ctx, sessionKeyPrefix+state, string(raw)); err != nil {
		return "", "", fmt.Errorf("save oauth session: %w", err)
	}

	authURL = m.config().AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", generateCodeChallenge(codeVerifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
	log.WithField("state", state).Debug("google sign-in started")
	return authURL, state, nil
}

// HandleCallback redeems code for tokens. Each state can be redeemed once.
func (m *Manager) HandleCallback(ctx context.Context, code, state string) (*GoogleIdentity, error) {
	if !m.Configured() {
		return nil, fmt.Errorf("google oauth client credentials not configured")
	}
	session, err := m.takeSession(ctx, state)
	if err != nil {
		return nil, err
	}

	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	token, err := m.config().Exchange(exchangeCtx, code,
		oauth2.SetAuthURLParam("code_verifier", session.CodeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return nil, fmt.Errorf("google token response carried no id_token")
	}
	log.Info("google sign-in callback completed")
	return &GoogleIdentity{IDToken: idToken, AccessToken: token.AccessToken, Expiry: token.Expiry}, nil
}

func (m *Manager) takeSession(ctx context.Context, state string) (*AuthSession, error) {
	key := sessionKeyPrefix + state
	raw, err := m.sessions.Get(ctx, key)
	if errors.Is(err, credential.ErrNotFound) {
		return nil, ErrUnknownState
	}
	if err != nil {
		return nil, fmt.Errorf("load oauth session: %w", err)
	}
	if err := m.sessions.Delete(ctx, key); err != nil {
		return nil, fmt.Errorf("delete oauth session: %w", err)
	}

	var session AuthSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("decode oauth session: %w", err)
	}
	if m.now().Sub(session.CreatedAt) > SessionTTL {
		return nil, ErrUnknownState
	}
	return &session, nil
}

func (m *Manager) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     m.clientID,
		ClientSecret: m.clientSecret,
		RedirectURL:  m.redirectURI,
		Scopes:       m.scopes,
		Endpoint:     m.endpoint,
	}
}

func generateCodeVerifier() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func generateCodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
