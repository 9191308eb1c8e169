package mockapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "password123"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestServer(t *testing.T, mutate ...func(*Options)) (*Server, *clock) {
	t.Helper()
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	opts := Options{
		JWTSecret:    "test-secret",
		TokenTTL:     time.Minute,
		SeedPassword: testPassword,
		BcryptCost:   bcrypt.MinCost,
		Now:          clk.Now,
	}
	for _, m := range mutate {
		m(&opts)
	}
	srv, err := New(opts)
	require.NoError(t, err)
	return srv, clk
}

func call(t *testing.T, srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func login(t *testing.T, srv *Server, email string) string {
	t.Helper()
	w := call(t, srv, http.MethodPost, "/api/auth/login", "", `{"email":"`+email+`","password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := gjson.Get(w.Body.String(), "token").String()
	require.NotEmpty(t, token)
	return token
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	srv, _ := newTestServer(t)

	w := call(t, srv, http.MethodPost, "/api/auth/login", "", `{"email":"COACH@clubhub.test","password":"password123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, "coach", gjson.Get(body, "user.role").String())
	assert.Equal(t, CoachEmail, gjson.Get(body, "user.email").String())

	var claims tokenClaims
	_, _, err := jwt.NewParser().ParseUnverified(gjson.Get(body, "token").String(), &claims)
	require.NoError(t, err)
	assert.Equal(t, "coach", claims.Role)
	assert.Equal(t, gjson.Get(body, "user.id").String(), claims.Subject)

	w = call(t, srv, http.MethodPost, "/api/auth/login", "", `{"email":"coach@clubhub.test","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", gjson.Get(w.Body.String(), "code").String())

	w = call(t, srv, http.MethodPost, "/api/auth/login", "", `{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister(t *testing.T) {
	srv, _ := newTestServer(t)

	w := call(t, srv, http.MethodPost, "/api/auth/register", "", `{"name":"Nia","email":"nia@clubhub.test","password":"secret1","role":"coach"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "coach", gjson.Get(w.Body.String(), "user.role").String())

	w = call(t, srv, http.MethodPost, "/api/auth/register", "", `{"name":"Nia","email":"nia@clubhub.test","password":"secret1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(t, srv, http.MethodPost, "/api/auth/register", "", `{"name":"Eve","email":"eve@clubhub.test","password":"secret1","role":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, srv, http.MethodPost, "/api/auth/register", "", `{"name":"Bo","email":"bo@clubhub.test","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "player", gjson.Get(w.Body.String(), "user.role").String())
}

func TestProtectedRoutes(t *testing.T) {
	srv, clk := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodGet, "/api/clubs", "", "").Code)

	player := login(t, srv, PlayerEmail)
	w := call(t, srv, http.MethodGet, "/api/clubs", player, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, gjson.Get(w.Body.String(), "clubs").Array(), 2)

	assert.Equal(t, http.StatusForbidden, call(t, srv, http.MethodGet, "/api/admin/stats", player, "").Code)

	admin := login(t, srv, AdminEmail)
	w = call(t, srv, http.MethodGet, "/api/admin/stats", admin, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "users.admin").Int())

	clk.Advance(2 * time.Minute)
	w = call(t, srv, http.MethodGet, "/api/clubs", player, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "token_expired", gjson.Get(w.Body.String(), "code").String())

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{Role: "admin"})
	raw, err := forged.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodGet, "/api/clubs", raw, "").Code)
}

func TestRefresh(t *testing.T) {
	srv, clk := newTestServer(t)
	old := login(t, srv, PlayerEmail)

	clk.Advance(2 * time.Minute)
	w := call(t, srv, http.MethodGet, "/api/auth/refresh", old, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	fresh := gjson.Get(w.Body.String(), "token").String()
	require.NotEqual(t, old, fresh)
	assert.Equal(t, int64(1), srv.RefreshCount())

	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/auth/me", fresh, "").Code)

	assert.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodGet, "/api/auth/refresh", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodGet, "/api/auth/refresh", "garbage", "").Code)

	srv.SetFailRefresh(true)
	w = call(t, srv, http.MethodGet, "/api/auth/refresh", fresh, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "refresh_failed", gjson.Get(w.Body.String(), "code").String())
	assert.Equal(t, int64(4), srv.RefreshCount())
}

func TestLogoutRevokesToken(t *testing.T) {
	srv, _ := newTestServer(t)
	token := login(t, srv, CoachEmail)

	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/api/auth/logout", token, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodGet, "/api/auth/me", token, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodGet, "/api/auth/refresh", token, "").Code)
}

func TestGoogleSignIn(t *testing.T) {
	srv, _ := newTestServer(t)
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": "gina@example.com",
		"name":  "Gina",
	}).SignedString([]byte("google-does-not-matter"))
	require.NoError(t, err)

	w := call(t, srv, http.MethodPost, "/api/auth/google", "", `{"credential":"`+idToken+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Gina", gjson.Get(w.Body.String(), "user.name").String())
	assert.Equal(t, "player", gjson.Get(w.Body.String(), "user.role").String())
	firstID := gjson.Get(w.Body.String(), "user.id").String()

	w = call(t, srv, http.MethodPost, "/api/auth/google", "", `{"credential":"`+idToken+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, firstID, gjson.Get(w.Body.String(), "user.id").String(), "second sign-in reuses the account")

	w = call(t, srv, http.MethodPost, "/api/auth/login", "", `{"email":"gina@example.com","password":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodPost, "/api/auth/google", "", `{"credential":"nope"}`).Code)
}

func TestLoginRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, func(o *Options) {
		o.LoginRPS = 0.001
		o.LoginBurst = 2
	})
	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, call(t, srv, http.MethodPost, "/api/auth/login", "", `{"email":"x@y.z","password":"nope"}`).Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	w := call(t, srv, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", gjson.Get(w.Body.String(), "status").String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = call(t, srv, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "clubhub_http_requests_total")
}
