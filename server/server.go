// Package server is the JSON HTTP intake for the auth service. Form and UI
// rendering live in the clients; this layer only maps requests to the auth
// service and outcomes to status codes.
package server

import (
	"net/http"

	"github.com/jrsteele09/go-user-auth/auth"
	"github.com/jrsteele09/go-user-auth/federation"
	"github.com/jrsteele09/go-user-auth/internal/config"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	auth      *auth.Service
	providers *federation.Registry
	flowState *federation.StateStore
}

// New wires the HTTP surface around an auth service. The federation registry
// may be nil when no external provider is configured; the federated routes
// then answer 404.
func New(cfg config.Config, authService *auth.Service, providers *federation.Registry) *Server {
	s := &Server{
		env:       cfg.Env,
		mux:       http.NewServeMux(),
		config:    cfg,
		auth:      authService,
		providers: providers,
		flowState: federation.NewStateStore(),
	}

	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) initRoutes() {
	// Registration & credential sign-in
	s.RegisterRouteFunc("POST "+RouteRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))

	// Federated sign-in
	s.RegisterRouteFunc("GET "+RouteFederatedBegin, ChainMiddleware(s.FederatedBeginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteFederatedCallback, ChainMiddleware(s.FederatedCallbackHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteFederatedCallback, ChainMiddleware(s.FederatedCallbackHandler(), s.APIMiddleware()...)) // form_post response mode

	// Session validation for downstream authorization
	s.RegisterRouteFunc("GET "+RouteSession, ChainMiddleware(s.SessionHandler(), append(s.APIMiddleware(), s.RequireSession())...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}

func (s *Server) logRoutes() {
	for _, route := range s.routes {
		log.Debug().Str("route", route).Msg("registered route")
	}
}

// HealthHandler answers liveness probes.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
