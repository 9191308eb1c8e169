package oauth

import "time"

// AuthSession is a sign-in started with StartAuthFlow and not yet completed.
type AuthSession struct {
	State        string    `json:"state"`
	CodeVerifier string    `json:"code_verifier"`
	CreatedAt    time.Time `json:"created_at"`
}

// GoogleIdentity is the result of a completed Google sign-in.
type GoogleIdentity struct {
	// IDToken is the OpenID Connect token the club backend verifies.
	IDToken     string
	AccessToken string
	Expiry      time.Time
}
