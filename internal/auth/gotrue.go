package auth

import (
	"context"
	"io"
	"log/slog"
)

// PasswordVerifier performs one remote credential check. Implemented by the
// Supabase client.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, email, password string) bool
}

// GoTrueAuthenticator authenticates against the remote identity API. A
// successful check makes the submitted login the canonical identity; the
// remote call's success is the sole proof of validity and no credential or
// token is retained anywhere in the process.
type GoTrueAuthenticator struct {
	verifier PasswordVerifier
	logger   *slog.Logger
}

// NewGoTrueAuthenticator creates an authenticator backed by the verifier.
func NewGoTrueAuthenticator(verifier PasswordVerifier, logger *slog.Logger) *GoTrueAuthenticator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &GoTrueAuthenticator{verifier: verifier, logger: logger}
}

// Authenticate implements Authenticator. Every failure mode collapses into
// the same invalid-credentials error; callers can't tell a wrong password
// from an unknown account or an unreachable identity API.
func (a *GoTrueAuthenticator) Authenticate(ctx context.Context, creds Credentials) (*Principal, error) {
	if creds.Username == "" || !a.verifier.VerifyPassword(ctx, creds.Username, creds.Password) {
		a.logger.Info("authentication failed", "username", creds.Username)
		return nil, &Error{
			Type:    ErrInvalidCredentials,
			Message: "invalid username or password",
		}
	}

	a.logger.Debug("authentication successful", "username", creds.Username)
	return &Principal{ID: creds.Username}, nil
}
