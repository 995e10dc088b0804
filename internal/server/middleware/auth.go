// Package middleware contains the net/http middleware chain of the API:
// the bearer-token gate, CORS, security headers, request ids, logging,
// panic recovery, rate limiting and Prometheus instrumentation.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/authcrud/internal/common"
	"github.com/dmitrijs2005/authcrud/internal/server/auth"
	"github.com/dmitrijs2005/authcrud/internal/server/httpx"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
)

// Principal is the identity derived from a verified access token for the
// duration of one request.
type Principal struct {
	UserID string
	Role   models.Role
}

// IsAdmin trusts the role claim as signed; it is not re-read from the store.
func (p Principal) IsAdmin() bool { return p.Role == models.RoleAdmin }

// AccessTokenVerifier is satisfied by *auth.TokenCodec.
type AccessTokenVerifier interface {
	VerifyAccessToken(token string) (*auth.AccessClaims, error)
}

type principalContextKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal attached by Authenticate.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// value. The scheme is matched case-insensitively.
func BearerToken(value string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// Authenticate rejects requests without a valid access token:
// missing or malformed header is 401, an expired token is 401 with code
// token_expired, anything else that fails verification is 403.
func Authenticate(v AccessTokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r.Header.Get(common.AuthorizationHeaderName))
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "missing_token", "Access token required")
				return
			}

			claims, err := v.VerifyAccessToken(token)
			if err != nil {
				if errors.Is(err, common.ErrTokenExpired) {
					httpx.WriteError(w, http.StatusUnauthorized, "token_expired", "Token expired")
					return
				}
				httpx.WriteError(w, http.StatusForbidden, "invalid_token", "Invalid token")
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{UserID: claims.UserID, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "missing_token", "Access token required")
			return
		}
		if !p.IsAdmin() {
			httpx.WriteError(w, http.StatusForbidden, "insufficient_privilege", "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
