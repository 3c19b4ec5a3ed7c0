package reconcile

import "github.com/canonid/canonid/svc/directory"

// PreSignupEvent is delivered by the directory before a new social
// identity is admitted.
type PreSignupEvent struct {
	Provider       string
	ProviderUserID string
	Email          string
	EmailVerified  bool
}

// ConfirmationEvent is delivered once when a newly created identity first
// reaches confirmed state. Providers, when present, is the explicit social
// context from the directory's identity record.
type ConfirmationEvent struct {
	IdentityID string
	Email      string
	Username   string
	Providers  []directory.ProviderRef
}

// AuthenticationEvent is delivered on every successful authentication.
// Providers, when present, is the explicit method context for this login.
type AuthenticationEvent struct {
	IdentityID string
	Email      string
	Providers  []directory.ProviderRef
}
