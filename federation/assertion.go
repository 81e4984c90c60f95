// Package federation negotiates with external identity providers and turns a
// completed sign-in into a verified identity assertion. The account-linking
// decisions belong to the auth service; this package only produces assertions
// it has verified.
package federation

// Assertion is a verified claim from an external identity provider. By the
// time one exists, the provider's ID token signature and nonce have already
// been checked.
type Assertion struct {
	Provider  string // Provider name as configured, e.g. "github"
	SubjectID string // Provider-scoped stable user identifier
	Email     string // May be empty if the provider withholds it
	Name      string
}
