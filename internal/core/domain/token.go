package domain

import "time"

// AccessToken is a signed bearer token handed to clients after login.
type AccessToken struct {
	Token     string
	TokenType string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the token has elapsed its validity window.
func (t AccessToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}

// ExpiresIn returns the remaining validity in whole seconds.
func (t AccessToken) ExpiresIn(at time.Time) int {
	if t.IsExpired(at) {
		return 0
	}
	return int(t.ExpiresAt.Sub(at).Seconds())
}
