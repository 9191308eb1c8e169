package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClaims(t *testing.T) {
	exp := time.Unix(1_800_000_000, 0)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "u7",
		"role": "coach",
		"exp":  exp.Unix(),
	}).SignedString([]byte("whatever"))
	require.NoError(t, err)

	claims, err := parseClaims(raw)
	require.NoError(t, err)
	assert.Equal(t, "u7", claims.Subject)
	assert.Equal(t, "coach", claims.Role)
	assert.True(t, claims.ExpiresAt.Equal(exp))
	assert.False(t, claims.Expired(exp.Add(-time.Second)))
	assert.True(t, claims.Expired(exp.Add(time.Second)))

	_, err = parseClaims("not-a-jwt")
	assert.Error(t, err)
}

func TestClaimsWithoutExpiryNeverExpire(t *testing.T) {
	c := &Claims{}
	assert.False(t, c.Expired(time.Now()))
}

func TestDecodeUser(t *testing.T) {
	u, err := decodeUser(`{"id":"u1","name":"Ada","email":"a@b.c","role":"admin","clubId":"club-9"}`)
	require.NoError(t, err)
	assert.Equal(t, User{ID: "u1", Name: "Ada", Email: "a@b.c", Role: "admin", ClubID: "club-9"}, *u)

	_, err = decodeUser("{")
	assert.Error(t, err)
}
