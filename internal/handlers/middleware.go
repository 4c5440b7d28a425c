package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/viewtube/apiserver/internal/token"
)

const accessTokenCookie = "accessToken"

// RequireAuth rejects requests without a valid access token and injects
// the authenticated user ID into the request context.
func RequireAuth(issuer *token.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := authenticatedUserID(r, issuer)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), contextSubjectKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth injects the user ID when a valid access token is
// presented and passes the request through anonymously otherwise.
func OptionalAuth(issuer *token.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := authenticatedUserID(r, issuer); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), contextSubjectKey, userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authenticatedUserID resolves the access token from the cookie or the
// Authorization header, cookie first.
func authenticatedUserID(r *http.Request, issuer *token.Issuer) (int, error) {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return issuer.VerifyAccess(cookie.Value)
	}

	tokenString, err := bearerToken(r)
	if err != nil {
		return 0, err
	}
	return issuer.VerifyAccess(tokenString)
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", errors.New("invalid authorization")
	}
	return tokenString, nil
}
