package domain

import "time"

// Session binds a client-held token to an authenticated identity.
// The identity fields are a snapshot taken at login time.
type Session struct {
	Token     string
	UserID    int64
	Username  string
	Email     string
	ExpiresAt time.Time
}
