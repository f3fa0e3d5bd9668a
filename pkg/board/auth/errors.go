package auth

import "errors"

var (
	// ErrUnauthorized indicates a missing, invalid or expired token, or a
	// token whose subject no longer exists
	ErrUnauthorized = errors.New("invalid credentials")

	// ErrInvalidCredentials indicates the identity service rejected the password
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrForbidden indicates the user is not an administrator
	ErrForbidden = errors.New("user is not an admin")

	// ErrInactiveUser indicates the account has been deactivated
	ErrInactiveUser = errors.New("user is inactive")

	// ErrEmailExists indicates the email is already registered
	ErrEmailExists = errors.New("email already registered")
)
