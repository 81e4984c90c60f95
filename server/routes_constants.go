package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes
	RouteRegister = "/auth/register"
	RouteLogin    = "/auth/login"
	RouteSession  = "/auth/session"

	// Federated sign-in Routes
	RouteFederatedBegin    = "/auth/federated/{provider}"
	RouteFederatedCallback = "/auth/federated/{provider}/callback"

	// Health
	RouteHealth = "/healthz"
)
