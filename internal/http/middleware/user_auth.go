package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userIDKey contextKey = "userID"

var (
	ErrAuthNotConfigured = errors.New("middleware: auth not configured")
	ErrMissingBearer     = errors.New("middleware: missing bearer token")
	ErrInvalidToken      = errors.New("middleware: invalid token")
	ErrNoSubject         = errors.New("middleware: token has no subject")
)

// ParseUserToken verifies an "Authorization: Bearer <jwt>" header value signed
// with secret (HMAC) and returns the token subject as the user ID.
func ParseUserToken(secret, authHeader string) (string, error) {
	if secret == "" {
		return "", ErrAuthNotConfigured
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", ErrMissingBearer
	}
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(authHeader, "Bearer "), &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", ErrNoSubject
	}
	return sub, nil
}

// UserJWT requires an HMAC-signed bearer token and exposes its subject as the
// calling user's ID. Tokens are issued elsewhere; this only verifies them.
func UserJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := ParseUserToken(secret, r.Header.Get("Authorization"))
			if err != nil {
				http.Error(w, strings.TrimPrefix(err.Error(), "middleware: "), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID stores the caller's user ID on ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user's ID if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}
