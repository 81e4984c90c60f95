package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/go-user-auth/accounts"
	"github.com/jrsteele09/go-user-auth/auth"
	"github.com/jrsteele09/go-user-auth/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

// Generic client-facing messages. Validation and duplicate-email failures
// share one body so registration cannot be used to probe which emails exist;
// the distinct causes go to the log only.
const (
	msgRegistrationFailed = "registration failed"
	msgInvalidCredentials = "invalid email or password"
	msgUnauthenticated    = "unauthenticated"
)

type registerRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Account   *accounts.Account `json:"account,omitempty"`
}

// RegisterHandler creates an account and signs it in (POST /auth/register)
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, msgRegistrationFailed)
			return
		}

		outcome, err := s.auth.Authorize(r.Context(), auth.RegistrationIntent{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			s.writeAuthError(w, err, msgRegistrationFailed)
			return
		}

		s.setSessionCookie(w, r, outcome.Token, outcome.ExpiresAt)
		writeJSON(w, http.StatusCreated, sessionResponse{
			Token:     outcome.Token,
			ExpiresAt: outcome.ExpiresAt,
			Account:   outcome.Account,
		})
	}
}

// LoginHandler verifies credentials and issues a session (POST /auth/login)
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}

		outcome, err := s.auth.Authorize(r.Context(), auth.CredentialsIntent{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			s.writeAuthError(w, err, msgInvalidCredentials)
			return
		}

		s.setSessionCookie(w, r, outcome.Token, outcome.ExpiresAt)
		writeJSON(w, http.StatusOK, sessionResponse{
			Token:     outcome.Token,
			ExpiresAt: outcome.ExpiresAt,
			Account:   outcome.Account,
		})
	}
}

// FederatedBeginHandler redirects to the external provider
// (GET /auth/federated/{provider})
func (s *Server) FederatedBeginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := s.providers.Provider(r.PathValue("provider"))
		if provider == nil {
			writeJSONError(w, http.StatusNotFound, "unknown provider")
			return
		}

		state, nonce := s.flowState.Begin(provider.Name())
		http.Redirect(w, r, provider.AuthURL(state, nonce), http.StatusFound)
	}
}

// FederatedCallbackHandler completes the provider round trip and issues a
// session (GET|POST /auth/federated/{provider}/callback)
func (s *Server) FederatedCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.FormValue covers both query params and form_post bodies
		if errParam := r.FormValue("error"); errParam != "" {
			log.Warn().Str("error", errParam).Str("description", r.FormValue("error_description")).Msg("provider returned error")
			writeJSONError(w, http.StatusUnauthorized, msgUnauthenticated)
			return
		}

		code := r.FormValue("code")
		state := r.FormValue("state")
		if code == "" || state == "" {
			writeJSONError(w, http.StatusBadRequest, "missing code or state parameter")
			return
		}

		providerName, nonce, err := s.flowState.Consume(state)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid state parameter")
			return
		}

		provider := s.providers.Provider(providerName)
		if provider == nil || provider.Name() != r.PathValue("provider") {
			writeJSONError(w, http.StatusBadRequest, "invalid state parameter")
			return
		}

		assertion, err := provider.Complete(r.Context(), code, nonce)
		if err != nil {
			log.Warn().Err(err).Str("provider", providerName).Msg("federated sign-in failed")
			writeJSONError(w, http.StatusUnauthorized, msgUnauthenticated)
			return
		}

		outcome, err := s.auth.Authorize(r.Context(), auth.FederatedIntent{Assertion: *assertion})
		if err != nil {
			s.writeAuthError(w, err, msgUnauthenticated)
			return
		}

		s.setSessionCookie(w, r, outcome.Token, outcome.ExpiresAt)
		writeJSON(w, http.StatusOK, sessionResponse{
			Token:     outcome.Token,
			ExpiresAt: outcome.ExpiresAt,
			Account:   outcome.Account,
		})
	}
}

// SessionHandler reports the authenticated subject (GET /auth/session).
// RequireSession has already validated the token.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := r.Context().Value(ContextKeySession).(*sessions.Session)
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, msgUnauthenticated)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"subject":    session.Subject,
			"expires_at": session.ExpiresAt,
		})
	}
}

// writeAuthError maps the service error taxonomy onto status codes and
// generic bodies, logging the specific cause.
func (s *Server) writeAuthError(w http.ResponseWriter, err error, genericMsg string) {
	switch {
	case errors.Is(err, auth.ErrValidation), errors.Is(err, auth.ErrDuplicateAccount):
		log.Debug().Err(err).Msg("registration rejected")
		writeJSONError(w, http.StatusBadRequest, genericMsg)
	case errors.Is(err, auth.ErrInvalidCredentials):
		log.Debug().Err(err).Msg("sign-in rejected")
		writeJSONError(w, http.StatusUnauthorized, genericMsg)
	case errors.Is(err, sessions.ErrTokenInvalid):
		writeJSONError(w, http.StatusUnauthorized, msgUnauthenticated)
	default:
		log.Error().Err(err).Msg("auth request failed")
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
