package domain

import "time"

// Session is a server-side session handle established after a successful
// sign-in. Only the ID ever leaves the server, wrapped in a sealed cookie.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
