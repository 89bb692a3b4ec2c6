package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

type identityKey struct{}

// WithIdentity stores a verified email identity in the context.
func WithIdentity(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, identityKey{}, email)
}

// IdentityFromContext extracts the verified email identity from the context.
func IdentityFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(identityKey{}).(string)
	return email, ok && email != ""
}

// Authenticator extracts a verified email identity from Bearer tokens. The
// identity is the token's email claim; a token without one is rejected.
type Authenticator struct {
	validator  TokenValidator
	emailClaim string
	logger     *slog.Logger
}

// NewAuthenticator creates an authenticator. emailClaim names the JWT claim
// carrying the account email ("email" for most providers).
func NewAuthenticator(validator TokenValidator, emailClaim string, logger *slog.Logger) *Authenticator {
	if emailClaim == "" {
		emailClaim = "email"
	}
	return &Authenticator{validator: validator, emailClaim: emailClaim, logger: logger}
}

// Middleware validates the Bearer token when one is present and stores the
// identity in the context. Requests without a token pass through anonymous;
// requests with an invalid token are rejected so a client never silently
// degrades to anonymous.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			next.ServeHTTP(w, r)
			return
		}
		tokenStr, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			writeAuthError(w, "Authorization header must use the Bearer scheme")
			return
		}

		claims, err := a.validator.Validate(r.Context(), tokenStr)
		if err != nil {
			a.logger.Debug("token rejected", "error", err)
			writeAuthError(w, "invalid or expired token")
			return
		}
		email, ok := claims.StringClaim(a.emailClaim)
		if !ok {
			writeAuthError(w, "token is missing an email claim")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), email)))
	})
}

// RequireIdentity rejects requests that did not present a verified identity.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			writeAuthError(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
