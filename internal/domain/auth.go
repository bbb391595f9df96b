package domain

import "time"

// Session describes an authenticated principal issued at login.
type Session struct {
	Identity  string
	IsAdmin   bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}
