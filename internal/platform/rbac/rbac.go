// Package rbac holds the role checks shared by handlers and route middleware.
package rbac

import (
	"mobitech-crm/backend/internal/platform/apperr"
	"mobitech-crm/backend/internal/session/domain"
)

const unauthorized = "Unauthorized"

// RequireUser ensures the caller has a logged-in session. Returns the caller's user id on success
// and an apperr Unauthorized error otherwise.
func RequireUser(d domain.Descriptor) (userID string, err error) {
	if !d.IsLoggedIn || d.UserID == "" {
		return "", apperr.Unauthorized(unauthorized)
	}
	return d.UserID, nil
}

// RequireAdmin ensures the caller is logged in and flagged as an administrator.
// Non-admins get the same Unauthorized error as anonymous callers.
func RequireAdmin(d domain.Descriptor) (userID string, err error) {
	userID, err = RequireUser(d)
	if err != nil {
		return "", err
	}
	if !d.IsAdmin {
		return "", apperr.Unauthorized(unauthorized)
	}
	return userID, nil
}
