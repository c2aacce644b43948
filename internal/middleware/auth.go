package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ShailySarker/digital-wallet-backend/internal/account"
	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
	"github.com/ShailySarker/digital-wallet-backend/internal/auth"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const (
	// ClaimsContextKey is the key used to store verified claims in the
	// request context.
	ClaimsContextKey contextKey = "claims"
	// TokenContextKey holds the raw access token for logout.
	TokenContextKey contextKey = "token"
)

// Auth returns middleware that validates the Authorization header,
// checks revocation, and re-reads the caller's account state so a
// blocked or deleted account cannot keep using an old token.
func Auth(tokens *auth.Service, accounts *account.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, `{"error":"invalid authorization format"}`, http.StatusUnauthorized)
				return
			}
			tokenStr := parts[1]

			claims, err := tokens.VerifyAccess(r.Context(), tokenStr)
			if err != nil {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			caller, err := accounts.CheckCaller(r.Context(), claims.AccountID)
			if err != nil {
				status := http.StatusUnauthorized
				if apperr.KindOf(err) == apperr.KindInternal {
					status = http.StatusInternalServerError
				}
				http.Error(w, `{"error":"`+apperr.Message(err)+`"}`, status)
				return
			}
			// Role comes from current state, not the token, so an admin
			// demotion takes effect immediately.
			claims.Role = caller.Role

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			ctx = context.WithValue(ctx, TokenContextKey, tokenStr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns middleware that rejects callers whose role is not
// in the allowed set. Must run after Auth.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}
			if !allowed[claims.Role] {
				http.Error(w, `{"error":"insufficient permissions"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClaims extracts claims from the request context.
func GetClaims(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*models.Claims)
	return claims, ok
}

// GetToken extracts the raw access token from the request context.
func GetToken(ctx context.Context) string {
	if v, ok := ctx.Value(TokenContextKey).(string); ok {
		return v
	}
	return ""
}
