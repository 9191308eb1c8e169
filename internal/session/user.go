package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the profile the backend returns with a credential.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	ClubID string `json:"clubId,omitempty"`
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Claims is the unverified content of the stored bearer token.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

// Expired reports whether the token's exp is in the past.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// parseClaims reads claims without verifying the signature. The client never
// holds the signing key; the backend is the authority on validity.
func parseClaims(token string) (*Claims, error) {
	var mc jwt.MapClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &mc); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	out := &Claims{}
	out.Subject, _ = mc.GetSubject()
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if role, ok := mc["role"].(string); ok {
		out.Role = role
	}
	return out, nil
}

func decodeUser(raw string) (*User, error) {
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("decode stored user: %w", err)
	}
	return &u, nil
}
