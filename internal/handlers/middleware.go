package handlers

import (
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/auth"
)

const accessTokenCookie = "accessToken"

// bearerToken extracts the access token from the Authorization header or the
// httpOnly cookie, preferring the header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		return token
	}

	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}

	return ""
}

// RequireAuth rejects requests without a verifiable access token and stores
// the principal on the context for downstream handlers.
func RequireAuth(sessions SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				respondError(r.Context(), w, apperr.New(apperr.Unauthenticated, "authentication required"))
				return
			}

			principal, err := sessions.Verify(token)
			if err != nil {
				respondError(r.Context(), w, apperr.Wrap(apperr.Unauthenticated, "invalid access token", err))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

// OptionalAuth attaches a principal when a valid token is present but lets
// anonymous requests through. Read endpoints use it to widen visibility for
// the viewer without requiring login.
func OptionalAuth(sessions SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				if principal, err := sessions.Verify(token); err == nil {
					r = r.WithContext(auth.WithPrincipal(r.Context(), principal))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requirePrincipal fetches the authenticated principal or reports the
// taxonomy error RequireAuth would have produced.
func requirePrincipal(r *http.Request) (auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return auth.Principal{}, apperr.New(apperr.Unauthenticated, "authentication required")
	}
	return principal, nil
}
