package domain

import (
	"errors"
	"regexp"
	"time"
)

// User is a CRM employee account. Users are never hard-deleted; termination flips Status.
type User struct {
	ID                string
	Phone             string
	PasswordHash      string
	Email             string // empty when not on file
	Name              string
	MFASecret         string // base32 TOTP secret; empty until MFA setup
	MFAEnabled        bool
	MFAVerified       bool
	IsAdmin           bool
	Status            UserStatus
	DateOfTermination *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

var (
	// ErrPhoneTaken is returned by the repository when the phone number is already registered.
	ErrPhoneTaken = errors.New("phone already registered")
	// ErrEmailTaken is returned by the repository when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// ValidPhone reports whether s is a 10-digit phone number.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// Active reports whether the user may sign in.
func (u *User) Active() bool {
	return u.Status == UserStatusActive
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if !ValidPhone(u.Phone) {
		return errors.New("phone must be exactly 10 digits")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}
