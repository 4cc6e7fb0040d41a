// Package session provides domain entities for the anonymous identity
// lifecycle. It defines the decoded token claims, the authentication
// status values observed from the identity collaborator, and the edge
// transitions the coordinator reacts to.
package session

import "time"

// SubTypeAnonymousSession is the sub_type claim value the backend stamps
// into every anonymous session token.
const SubTypeAnonymousSession = "anonymous_session"

// Status represents the externally observed authentication state.
type Status string

const (
	StatusLoading         Status = "loading"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// AnonymousClaims is the decoded payload of an anonymous session token.
// AnonID is the stable identity key the backend uses to associate carts
// and preferences with a visitor; it survives token refreshes but not a
// clear-then-fetch.
type AnonymousClaims struct {
	Jti     string `json:"jti"`
	Iat     int64  `json:"iat"`
	Exp     int64  `json:"exp"`
	Iss     string `json:"iss"`
	Aud     string `json:"aud"`
	SubType string `json:"sub_type"`
	AnonID  string `json:"anon_id"`
}

// ExpiresAt returns the expiry instant of the token.
func (c *AnonymousClaims) ExpiresAt() time.Time {
	return time.Unix(c.Exp, 0)
}

// ExpiresWithin reports whether the token expires before now+buffer.
// The buffer keeps a token from being sent when it would expire
// mid-flight.
func (c *AnonymousClaims) ExpiresWithin(now time.Time, buffer time.Duration) bool {
	return c.Exp < now.Add(buffer).Unix()
}

// Edge is a derived authentication transition. Only login
// (non-authenticated -> authenticated) and logout
// (authenticated -> unauthenticated) edges are actionable.
type Edge struct {
	Previous Status
	Current  Status
}

// IsLogin reports whether this edge is the first observation of an
// authenticated status.
func (e Edge) IsLogin() bool {
	return e.Current == StatusAuthenticated && e.Previous != StatusAuthenticated
}

// IsLogout reports whether this edge is an authenticated session ending.
func (e Edge) IsLogout() bool {
	return e.Current == StatusUnauthenticated && e.Previous == StatusAuthenticated
}
