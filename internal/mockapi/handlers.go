package mockapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"clubhub-go/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type googleBody struct {
	Credential string `json:"credential"`
}

func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message, "code": code})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) issue(c *gin.Context, status int, userID, role, email string) {
	user, ok := s.accounts.get(userID)
	if !ok {
		fail(c, http.StatusUnauthorized, "unknown_user", "User no longer exists")
		return
	}
	token, err := s.tokens.mint(userID, role, email)
	if err != nil {
		logging.WithReq(c, nil).WithError(err).Error("mint token")
		fail(c, http.StatusInternalServerError, "internal", "Could not issue token")
		return
	}
	c.JSON(status, gin.H{"token": token, "user": user})
}

func (s *Server) handleLogin(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Email == "" || body.Password == "" {
		fail(c, http.StatusBadRequest, "invalid_request", "Email and password are required")
		return
	}
	user, err := s.accounts.authenticate(body.Email, body.Password)
	if err != nil {
		fail(c, http.StatusUnauthorized, "invalid_credentials", err.Error())
		return
	}
	s.issue(c, http.StatusOK, user.ID, user.Role, user.Email)
}

func (s *Server) handleRegister(c *gin.Context) {
	var body registerBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Name == "" || body.Email == "" || len(body.Password) < 6 {
		fail(c, http.StatusBadRequest, "invalid_request", "Name, email and a password of at least 6 characters are required")
		return
	}
	role := strings.ToLower(body.Role)
	switch role {
	case "":
		role = "player"
	case "player", "coach":
	default:
		fail(c, http.StatusBadRequest, "invalid_role", "Role must be player or coach")
		return
	}
	user, err := s.accounts.create(body.Name, body.Email, body.Password, role)
	if errors.Is(err, errEmailTaken) {
		fail(c, http.StatusConflict, "email_taken", err.Error())
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal", "Could not create account")
		return
	}
	s.issue(c, http.StatusCreated, user.ID, user.Role, user.Email)
}

func (s *Server) handleGoogle(c *gin.Context) {
	var body googleBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Credential == "" {
		fail(c, http.StatusBadRequest, "invalid_request", "Google credential is required")
		return
	}
	email, name, err := s.google(c.Request.Context(), body.Credential)
	if err != nil || email == "" {
		fail(c, http.StatusUnauthorized, "invalid_google_token", "Google credential rejected")
		return
	}
	user, ok := s.accounts.byEmail(email)
	if !ok {
		user, err = s.accounts.create(firstNonEmpty(name, email), email, "", "player")
		if err != nil {
			fail(c, http.StatusInternalServerError, "internal", "Could not create account")
			return
		}
	}
	s.issue(c, http.StatusOK, user.ID, user.Role, user.Email)
}

func (s *Server) handleRefresh(c *gin.Context) {
	n := s.refreshes.Add(1)
	if s.failRefresh.Load() {
		logging.WithReq(c, log.Fields{"refresh": n}).Info("refresh rejected (fail mode)")
		fail(c, http.StatusUnauthorized, "refresh_failed", "Session expired, please log in again")
		return
	}
	raw, ok := bearer(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "missing_token", "Authorization required")
		return
	}
	claims, err := s.tokens.parse(raw, true)
	if err != nil {
		fail(c, http.StatusUnauthorized, "invalid_token", "Session expired, please log in again")
		return
	}
	s.issue(c, http.StatusOK, claims.Subject, claims.Role, claims.Email)
}

func (s *Server) handleLogout(c *gin.Context) {
	claims := c.MustGet("claims").(*tokenClaims)
	s.tokens.revoke(claims.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) handleMe(c *gin.Context) {
	user, ok := s.accounts.get(c.GetString("user_id"))
	if !ok {
		fail(c, http.StatusNotFound, "not_found", "User not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) handleClubs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"clubs": []gin.H{
		{"id": "club-1", "name": "Riverside FC", "sport": "football", "members": 42},
		{"id": "club-2", "name": "Hilltop Tennis", "sport": "tennis", "members": 18},
	}})
}

func (s *Server) handleAdminStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"users":     s.accounts.count(),
		"refreshes": s.refreshes.Load(),
	})
}

// requireAuth rejects requests without a valid, unexpired bearer token.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c)
		if !ok {
			fail(c, http.StatusUnauthorized, "missing_token", "Authorization required")
			return
		}
		claims, err := s.tokens.parse(raw, false)
		if err != nil {
			code := "invalid_token"
			if isExpired(err) {
				code = "token_expired"
			}
			fail(c, http.StatusUnauthorized, code, "Token is not valid")
			return
		}
		c.Set("claims", claims)
		c.Set("user_id", claims.Subject)
		c.Set("role", claims.Role)
		c.Next()
	}
}

func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != role {
			fail(c, http.StatusForbidden, "forbidden", "Access denied")
			return
		}
		c.Next()
	}
}

func bearer(c *gin.Context) (string, bool) {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[7:])
	return tok, tok != ""
}

// unverifiedGoogleToken reads email and name from a Google ID token without
// checking Google's signature. Good enough for a local stand-in.
func unverifiedGoogleToken(_ context.Context, idToken string) (string, string, error) {
	var mc jwt.MapClaims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &mc); err != nil {
		return "", "", err
	}
	email, _ := mc["email"].(string)
	name, _ := mc["name"].(string)
	return email, name, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
