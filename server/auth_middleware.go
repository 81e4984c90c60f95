package server

import (
	"context"
	"net/http"
	"strings"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySubject stores the authenticated account ID
	ContextKeySubject ContextKey = "subject"
	// ContextKeySession stores the decoded session
	ContextKeySession ContextKey = "session"

	// sessionCookieName carries the session token for browser clients; API
	// clients use the Authorization header instead.
	sessionCookieName = "session_token"
)

// RequireSession is middleware that validates the presented session token
// (Bearer header or cookie) and injects the subject into the context. Any
// invalid token answers 401 with a generic body.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if cookie, err := r.Cookie(sessionCookieName); err == nil {
					token = cookie.Value
				}
			}
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}

			session, err := s.auth.ValidateSession(token)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, session.Subject)
			ctx = context.WithValue(ctx, ContextKeySession, session)
			next(w, r.WithContext(ctx))
		}
	}
}

// bearerToken extracts a Bearer token from the Authorization header, or ""
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
