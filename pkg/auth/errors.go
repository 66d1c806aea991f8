package auth

import "errors"

var (
	// ErrRandomSource is returned when secure randomness is unavailable
	ErrRandomSource = errors.New("secure random source unavailable")
	// ErrTokenFormat is returned by ValidateTokenFormat
	ErrTokenFormat = errors.New("invalid token format")

	// ErrMalformedCredential means the Authorization header is not "Bearer <token>"
	ErrMalformedCredential = errors.New("malformed authorization header")
	// ErrInvalidCredential means the token has the wrong shape, is unknown or has expired
	ErrInvalidCredential = errors.New("invalid or expired authentication token")

	ErrAuthenticationRequired = errors.New("authentication required")
	ErrInactiveAccount        = errors.New("user account is not activated")
	ErrNotPermitted           = errors.New("missing required permission")

	// ErrInvalidCredentials is returned on a failed email/password match
	ErrInvalidCredentials = errors.New("invalid authentication credentials")
)

// IsCredentialError reports whether err rejects the presented bearer token
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrMalformedCredential) || errors.Is(err, ErrInvalidCredential)
}
