package domain

import "time"

// TokenPair is a single-use credential token together with its expiry.
// The two fields are always set and cleared together: a token without an
// expiry (or the reverse) must never be observable.
type TokenPair struct {
	Token   *string
	Expires *time.Time
}

// Valid reports whether the pair holds a token that is still usable at now.
// The comparison is exclusive: a token expiring exactly at now is expired.
func (p TokenPair) Valid(now time.Time) bool {
	return p.Token != nil && *p.Token != "" && p.Expires != nil && now.Before(*p.Expires)
}

// Raw returns the raw token value, or "" when no token is set
func (p TokenPair) Raw() string {
	if p.Token == nil {
		return ""
	}
	return *p.Token
}
