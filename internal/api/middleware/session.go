package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

const guestSessionCookie = "guest_session"

// GuestSession gives every anonymous visitor a stable session id so their
// cart and wishlist survive between requests. The cookie is issued once
// and rides along until they sign in.
func GuestSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(guestSessionCookie); err != nil {
			sessionID := uuid.New().String()
			cookie := &http.Cookie{
				Name:     guestSessionCookie,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   30 * 24 * 60 * 60,
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			}
			http.SetCookie(w, cookie)
			r.AddCookie(cookie)
		}
		next.ServeHTTP(w, r)
	})
}

// GuestSessionID returns the visitor's guest session id, if any.
func GuestSessionID(r *http.Request) string {
	if cookie, err := r.Cookie(guestSessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}
