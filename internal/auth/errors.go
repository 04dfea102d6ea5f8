package auth

import "errors"

var (
	// ErrUsernameExists is returned by Signup for a taken username.
	ErrUsernameExists = errors.New("Username already exists") //nolint:staticcheck // shown to the user verbatim

	// ErrInvalidCredentials is returned by Login when no user matches.
	ErrInvalidCredentials = errors.New("Invalid username or password") //nolint:staticcheck // shown to the user verbatim

	// ErrMissingCredentials is returned when the username or password is empty.
	ErrMissingCredentials = errors.New("username and password are required")

	// ErrPasswordMismatch is returned when the confirmation differs.
	ErrPasswordMismatch = errors.New("Ciphers do not match. Verification failed.") //nolint:staticcheck // shown to the user verbatim

	// ErrNotSignedIn is returned by commands that need a signed-in user.
	ErrNotSignedIn = errors.New("not signed in: run `personashield login` first")
)
