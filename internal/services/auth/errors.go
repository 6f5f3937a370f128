package auth

import (
	"fmt"

	"noteflow/internal/apperr"
)

// ErrDuplicate is returned when trying to create a user with an email that already exists
var ErrDuplicate = apperr.New(apperr.ErrConflict, "user with this email already exists")

// ErrUserNotFound is returned by repositories for unknown users.
var ErrUserNotFound = apperr.New(apperr.ErrNotFound, "user not found")

// ErrRegistrationFailed masks duplicate emails so sign-up cannot be used to
// probe for accounts.
var ErrRegistrationFailed = apperr.New(apperr.ErrInvalidArgument, "registration failed")

// ErrInvalidCredentials is returned for any sign-in failure.
var ErrInvalidCredentials = apperr.New(apperr.ErrUnauthenticated, "invalid credentials")

// ErrGenAccessToken is returned when we cannot create a JWT.
var ErrGenAccessToken = apperr.New(apperr.ErrUpstream, "failed to generate access token")

var (
	ErrInvalidTokenMissingUserID = apperr.New(apperr.ErrUnauthenticated, "invalid token: missing user_id")
	ErrInvalidTokenMissingEmail  = apperr.New(apperr.ErrUnauthenticated, "invalid token: missing email")
)

// ErrUnauthorized wraps a token verification failure.
func ErrUnauthorized(cause error) error {
	return apperr.Wrap(apperr.ErrUnauthenticated, "missing or invalid credentials", fmt.Errorf("jwt: %w", cause))
}
