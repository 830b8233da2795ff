package domain

import "time"

// Session is one signed-in browser for a user (sessions table). Rows are deleted on sign-out or
// revocation; expiry is checked lazily.
type Session struct {
	ID        string
	UserID    string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Active reports whether the session has not yet expired at now.
func (s *Session) Active(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

// Descriptor is the decoded view of a session cookie that the route layer works with.
type Descriptor struct {
	SessionID  string `json:"-"`
	UserID     string `json:"userId"`
	IsLoggedIn bool   `json:"isLoggedIn"`
	IsAdmin    bool   `json:"isAdmin"`
}

// LoggedOut is the descriptor for a request without a valid session.
func LoggedOut() Descriptor {
	return Descriptor{}
}
