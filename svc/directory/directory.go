package directory

import "context"

// Provider identifiers as reported by the external directory.
const (
	ProviderNative   = "NATIVE"
	ProviderGoogle   = "Google"
	ProviderFacebook = "Facebook"
	ProviderApple    = "SignInWithApple"
)

// ProviderRef identifies an identity inside an external provider's
// namespace. The directory guarantees uniqueness of the pair.
type ProviderRef struct {
	Provider string // e.g. "Google", "Facebook"
	UserID   string // provider-scoped subject
}

// Identity is a directory record. The ID is the directory-assigned stable
// identifier (the "sub" claim in issued tokens) and never changes.
//
// For an external identity, Providers holds its own provider reference and
// LinkedTo carries the native identity id once an admin link has been
// established. For a native identity, Providers accumulates the external
// references linked into it.
type Identity struct {
	ID            string
	Username      string
	Email         string
	EmailVerified bool
	Native        bool
	Providers     []ProviderRef
	LinkedTo      string
}

// HasProvider reports whether ref is among the identity's provider references.
func (i Identity) HasProvider(ref ProviderRef) bool {
	for _, p := range i.Providers {
		if p == ref {
			return true
		}
	}
	return false
}

// Directory is the admin-level interface to the external identity
// directory. All operations take a context and may be retried: LinkProvider
// and SetPassword are idempotent, and callers must treat ErrAlreadyLinked
// as success.
type Directory interface {
	// FindByEmail returns all identities whose email equals the normalized
	// address, native and external alike. An empty slice is not an error.
	FindByEmail(ctx context.Context, normalizedEmail string) ([]Identity, error)

	// FindByID returns the identity with the given stable id.
	FindByID(ctx context.Context, identityID string) (Identity, error)

	// CreateNative provisions a native identity for an email whose
	// ownership the caller has already verified. Returns ErrIdentityExists
	// when a native identity already holds the email.
	CreateNative(ctx context.Context, normalizedEmail string) (Identity, error)

	// LinkProvider binds the external identity identified by src to the
	// native identity with the given username.
	LinkProvider(ctx context.Context, nativeUsername string, src ProviderRef) error

	// SetPassword sets a permanent password on the named native identity.
	SetPassword(ctx context.Context, username, password string) error
}

// NativeIdentity returns the first native identity in the slice, or false
// when none is present. Used wherever the canonical link destination is
// chosen from an email lookup.
func NativeIdentity(identities []Identity) (Identity, bool) {
	for _, id := range identities {
		if id.Native {
			return id, true
		}
	}
	return Identity{}, false
}
