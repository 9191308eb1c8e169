package mockapi

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type tokenClaims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// tokens mints and checks HS256 bearer tokens.
type tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]struct{}
}

func newTokens(secret string, ttl time.Duration, now func() time.Time) *tokens {
	return &tokens{secret: []byte(secret), ttl: ttl, now: now, revoked: make(map[string]struct{})}
}

func (t *tokens) mint(userID, role, email string) (string, error) {
	now := t.now()
	claims := tokenClaims{
		Role:  role,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// parse validates signature and expiry. With allowExpired, an expired but
// otherwise valid token is accepted, which is what the refresh endpoint needs.
func (t *tokens) parse(raw string, allowExpired bool) (*tokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}
	if allowExpired {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return t.secret, nil }, opts...)
	if err != nil {
		return nil, err
	}
	if t.isRevoked(claims.ID) {
		return nil, fmt.Errorf("token revoked")
	}
	return claims, nil
}

func (t *tokens) revoke(id string) {
	t.mu.Lock()
	t.revoked[id] = struct{}{}
	t.mu.Unlock()
}

func (t *tokens) isRevoked(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.revoked[id]
	return ok
}

func isExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
