package auth

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"context"
	"net/http"
	"strings"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// Failure is called when a request does not carry a valid bearer token.
type Failure func(w http.ResponseWriter, r *http.Request, err error)

// RequireToken validates the "Authorization: Bearer <token>" header
// and injects the user id into the request context.
func RequireToken(tokens contract.ITokenService, fail Failure) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				fail(w, r, errors.ErrMissingToken)
				return
			}

			tokenStr, found := strings.CutPrefix(header, "Bearer ")
			if !found {
				fail(w, r, errors.ErrMissingToken)
				return
			}

			userID, ok := tokens.Validate(tokenStr)
			if !ok {
				fail(w, r, errors.ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the user id injected by RequireToken.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}
