package domain

import "time"

// ChallengeTTL is how long an issued code stays redeemable.
const ChallengeTTL = 5 * time.Minute

// Purpose records why a code was issued. It selects the delivery channel.
type Purpose string

const (
	PurposeLogin        Purpose = "login"
	PurposeRegistration Purpose = "registration"
)

// Challenge is one issued code (otp_challenges table). Only the code hash is stored.
// Several challenges for the same identifier may be valid at once.
type Challenge struct {
	ID         string
	Identifier string
	CodeHash   string
	Purpose    Purpose
	ExpiresAt  time.Time
	Used       bool
	CreatedAt  time.Time
}

// Redeemable reports whether the challenge can still be consumed at now.
func (c *Challenge) Redeemable(now time.Time) bool {
	return !c.Used && now.Before(c.ExpiresAt)
}
