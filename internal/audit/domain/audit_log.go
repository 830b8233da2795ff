package domain

import "time"

// Actions recorded explicitly by services. Route-derived entries use verbs from the audit mapping.
const (
	ActionSignup        = "signup"
	ActionSignIn        = "signin"
	ActionSignInFailure = "signin_failure"
	ActionSignOut       = "signout"
	ActionMFAEnable     = "mfa_enable"
	ActionTerminate     = "terminate"
)

// AuditLog represents an audit event. UserID is empty for anonymous actions (e.g. failed sign-in).
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
