package service

import "errors"

var (
	// Caller input errors, surfaced as 400-class responses.
	ErrProviderRejected     = errors.New("authorization rejected by provider")
	ErrMissingParams        = errors.New("missing code or state parameter")
	ErrInvalidState         = errors.New("invalid state parameter")
	ErrStateNotFound        = errors.New("state not found or expired")
	ErrStateMismatch        = errors.New("state does not match")
	ErrMalformedCredentials = errors.New("invalid credentials payload")

	// Consumption errors, surfaced as 404-class responses.
	ErrCredentialsNotFound = errors.New("no credentials found, please authorize first")
	ErrCredentialsInvalid  = errors.New("invalid credentials, please authorize again")

	// Store corruption, surfaced as a 500-class response.
	ErrCredentialsCorrupt = errors.New("invalid credentials format")
)
