package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
)

type contextKey string

// principalContextKey is the context key for the authenticated principal.
// The principal travels with the request; there is deliberately no
// process-wide session or token cache.
const principalContextKey contextKey = "principal"

// ContextWithPrincipal returns a context carrying the principal.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext retrieves the authenticated principal from the
// context, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalContextKey).(*Principal); ok {
		return p
	}
	return nil
}

// MiddlewareOption configures the middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	onFailure func()
}

// WithFailureHook registers a callback invoked on every rejected request,
// used for the auth failure counter.
func WithFailureHook(hook func()) MiddlewareOption {
	return func(c *middlewareConfig) {
		if hook != nil {
			c.onFailure = hook
		}
	}
}

// Middleware creates HTTP middleware that enforces Basic authentication and
// stores the resulting principal in the request context.
func Middleware(authenticator Authenticator, realm string, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if realm == "" {
		realm = "CardDAV Server"
	}
	cfg := &middlewareConfig{onFailure: func() {}}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				cfg.onFailure()
				requestAuth(w, realm, &Error{
					Type:    ErrUnauthorized,
					Message: "credentials required",
				})
				return
			}

			creds, err := parseBasicAuth(authHeader)
			if err != nil {
				cfg.onFailure()
				requestAuth(w, realm, err)
				return
			}

			principal, err := authenticator.Authenticate(r.Context(), creds)
			if err != nil {
				cfg.onFailure()
				requestAuth(w, realm, err)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestAuth sends the WWW-Authenticate challenge with the failure reason.
func requestAuth(w http.ResponseWriter, realm string, err error) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
	http.Error(w, err.Error(), http.StatusUnauthorized)
}

// parseBasicAuth parses an HTTP Basic Authentication string.
func parseBasicAuth(auth string) (Credentials, error) {
	const prefix = "Basic "
	if !strings.HasPrefix(auth, prefix) {
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "invalid authorization header format",
		}
	}

	decoded, err := base64.StdEncoding.DecodeString(auth[len(prefix):])
	if err != nil {
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "invalid base64 encoding",
			Err:     err,
		}
	}

	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "invalid credentials format",
		}
	}

	return Credentials{Username: parts[0], Password: parts[1]}, nil
}
