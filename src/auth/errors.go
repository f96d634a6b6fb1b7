package auth

import "errors"

// Failure kinds for the authorization-code flow. Every failure out of
// CompleteAuthorization wraps exactly one of these so handlers can map them
// to status codes with errors.Is.
var (
	// ErrInvalidState means the returned state did not match an issued,
	// unexpired state token. Checked before any network call.
	ErrInvalidState = errors.New("invalid or expired state")

	// ErrMissingCode means the callback carried no authorization code.
	ErrMissingCode = errors.New("authorization code not found")

	// ErrStateUnavailable means the state store could not be reached, so
	// the callback cannot be validated either way. Infrastructure failure,
	// not a client mistake.
	ErrStateUnavailable = errors.New("state store unavailable")

	// ErrTokenExchange means the provider token endpoint rejected the code
	// or was unreachable. Codes are single-use, so this is never retried.
	ErrTokenExchange = errors.New("token exchange failed")

	// ErrProfileFetch means the userinfo call failed after a successful
	// exchange.
	ErrProfileFetch = errors.New("profile fetch failed")
)
