// Package common defines shared constants and sentinel errors used across
// the server and client layers. Callers should use errors.Is to match
// these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound     = errors.New("not found")
	ErrDuplicateEmail = errors.New("duplicate email")

	// Service-level errors (generic/internal flow control).
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Registration and login errors.
	ErrConflictAlreadyRegistered = errors.New("user already exists")
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrRegistrationFailed        = errors.New("user registration failed")

	// Request authentication errors.
	ErrMissingCredentials = errors.New("missing credentials")
	ErrUnauthorized       = errors.New("unauthorized")

	// Token verification errors. The specific kinds wrap ErrInvalidToken.
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = fmt.Errorf("%w: token expired", ErrInvalidToken)
	ErrInvalidSignature = fmt.Errorf("%w: invalid signature", ErrInvalidToken)
	ErrMalformedToken   = fmt.Errorf("%w: malformed token", ErrInvalidToken)

	// Federated login errors.
	ErrMissingAssertion   = errors.New("no user information found")
	ErrInvalidOAuthState  = errors.New("invalid oauth state")
	ErrProviderNotEnabled = errors.New("identity provider is not configured")

	// Media errors.
	ErrInvalidFile = errors.New("invalid file")
)
