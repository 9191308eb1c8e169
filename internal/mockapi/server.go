// Package mockapi is an in-process stand-in for the club backend's auth
// surface. It issues short-lived JWTs so the client's renewal path can be
// exercised end to end.
package mockapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"clubhub-go/internal/config"
	"clubhub-go/internal/constants"
	mw "clubhub-go/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Seed accounts, all created with Options.SeedPassword.
const (
	AdminEmail  = "admin@clubhub.test"
	CoachEmail  = "coach@clubhub.test"
	PlayerEmail = "player@clubhub.test"
)

// GoogleVerifier turns a Google ID token into an email and display name.
type GoogleVerifier func(ctx context.Context, idToken string) (email, name string, err error)

type Options struct {
	JWTSecret    string
	TokenTTL     time.Duration
	SeedPassword string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	// LoginRPS limits credential endpoints per client IP. Zero disables.
	LoginRPS   float64
	LoginBurst int
	Google     GoogleVerifier
	Now        func() time.Time
	Debug      bool
}

// OptionsFromConfig maps the mock section of the client config.
func OptionsFromConfig(cfg config.MockConfig) Options {
	return Options{
		JWTSecret:    cfg.JWTSecret,
		TokenTTL:     time.Duration(cfg.TokenTTLSec) * time.Second,
		SeedPassword: cfg.SeedPassword,
		LoginRPS:     5,
		LoginBurst:   20,
	}
}

// Server is the mock backend.
type Server struct {
	engine   *gin.Engine
	accounts *accounts
	tokens   *tokens
	google   GoogleVerifier

	refreshes   atomic.Int64
	failRefresh atomic.Bool
}

func New(opts Options) (*Server, error) {
	if opts.JWTSecret == "" {
		return nil, errors.New("mockapi: jwt secret required")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Google == nil {
		opts.Google = unverifiedGoogleToken
	}

	s := &Server{
		accounts: newAccounts(opts.BcryptCost),
		tokens:   newTokens(opts.JWTSecret, opts.TokenTTL, opts.Now),
		google:   opts.Google,
	}
	if opts.SeedPassword != "" {
		for _, seed := range []struct{ name, email, role string }{
			{"Ada Admin", AdminEmail, "admin"},
			{"Carl Coach", CoachEmail, "coach"},
			{"Pia Player", PlayerEmail, "player"},
		} {
			if _, err := s.accounts.create(seed.name, seed.email, opts.SeedPassword, seed.role); err != nil {
				return nil, err
			}
		}
	}
	s.engine = s.buildEngine(opts)
	return s, nil
}

func (s *Server) buildEngine(opts Options) *gin.Engine {
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	_ = engine.SetTrustedProxies(nil)
	engine.Use(mw.Recovery(), mw.RequestID(), mw.ServerLabel("mockapi"), mw.Metrics(), mw.RequestLogger())

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	api.GET("/health", s.handleHealth)

	auth := api.Group("/auth")
	credentials := auth.Group("")
	if opts.LoginRPS > 0 {
		credentials.Use(mw.RateLimiter(opts.LoginRPS, opts.LoginBurst))
	}
	credentials.POST("/login", s.handleLogin)
	credentials.POST("/register", s.handleRegister)
	credentials.POST("/google", s.handleGoogle)
	auth.GET("/refresh", s.handleRefresh)
	auth.POST("/logout", s.requireAuth(), s.handleLogout)
	auth.GET("/me", s.requireAuth(), s.handleMe)

	api.GET("/clubs", s.requireAuth(), s.handleClubs)
	api.GET("/admin/stats", s.requireAuth(), requireRole("admin"), s.handleAdminStats)
	return engine
}

// Handler returns the HTTP handler, suitable for httptest.NewServer.
func (s *Server) Handler() http.Handler { return s.engine }

// RefreshCount is the number of refresh calls received so far.
func (s *Server) RefreshCount() int64 { return s.refreshes.Load() }

// SetFailRefresh makes every refresh call answer 401.
func (s *Server) SetFailRefresh(fail bool) { s.failRefresh.Store(fail) }

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: constants.ServerReadHeaderTimeout,
	}
	errCh := make(chan error, 1)
	mw.SafeGo("mockapi-serve", func() {
		log.WithField("addr", ln.Addr().String()).Info("mock backend listening")
		errCh <- srv.Serve(ln)
	})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("mock backend stopped")
	return nil
}
