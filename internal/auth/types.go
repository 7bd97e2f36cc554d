package auth

import (
	"context"
	"fmt"
)

// Principal represents an authenticated user. ID is the canonical identity,
// an email-like string.
type Principal struct {
	ID string
}

// Credentials represents a Basic auth credential pair.
type Credentials struct {
	Username string
	Password string
}

// ErrorType represents the type of authentication error.
type ErrorType string

const (
	ErrInvalidCredentials ErrorType = "invalid_credentials"
	ErrUnauthorized       ErrorType = "unauthorized"
)

// Error represents an authentication-related error.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Authenticator defines the interface for identity verification providers.
type Authenticator interface {
	// Authenticate validates credentials and returns a Principal if successful.
	Authenticate(ctx context.Context, creds Credentials) (*Principal, error)
}
