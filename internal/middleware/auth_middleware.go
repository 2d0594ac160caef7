package middleware

import (
	"context"
	"net/http"
	"time"

	"notevault-server/internal/service"
	"notevault-server/pkg/response"
)

type contextKey string

const (
	OwnerIDKey      contextKey = "ownerID"
	CredentialIDKey contextKey = "credentialID"
)

// SessionCookieName is the HTTP-only cookie carrying the session token.
const SessionCookieName = "nv_session"

// AuthMiddleware authenticates the session cookie and re-checks that the
// bound credential still exists, so a revoked device is cut off on its next
// request. When the session authority hands back a renewed token it is set
// on the response transparently.
func AuthMiddleware(sessions *service.SessionService, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				response.Unauthorized(w, "missing session")
				return
			}

			claims, renewed, err := sessions.Authenticate(r.Context(), cookie.Value)
			if err != nil {
				response.FromError(w, err)
				return
			}

			if renewed != "" {
				SetSessionCookie(w, renewed, sessions.TTL(), secure)
			}

			ctx := context.WithValue(r.Context(), OwnerIDKey, claims.OwnerID)
			ctx = context.WithValue(ctx, CredentialIDKey, claims.CredentialID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func GetOwnerID(r *http.Request) string {
	ownerID, ok := r.Context().Value(OwnerIDKey).(string)
	if !ok {
		return ""
	}
	return ownerID
}

func GetCredentialID(r *http.Request) string {
	credentialID, ok := r.Context().Value(CredentialIDKey).(string)
	if !ok {
		return ""
	}
	return credentialID
}
