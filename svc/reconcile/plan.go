package reconcile

import (
	"github.com/canonid/canonid/svc/directory"
	"github.com/canonid/canonid/svc/store"
)

// methodContext is the strictly determined credential context of one
// event. ok=false means the context is ambiguous and no method may be
// seeded or linked.
type methodContext struct {
	method   store.Method
	provider string
	ref      directory.ProviderRef
	social   bool
	ok       bool
}

// resolveMethodContext determines the method for an identity from
// explicit directory-supplied data only: provider references carried by
// the event, the identity record's own references, or the record's native
// flag. No inference from username shapes or email formats is permitted.
func resolveMethodContext(identity directory.Identity, haveIdentity bool, eventRefs []directory.ProviderRef) methodContext {
	if method, ref, ok := socialMethod(eventRefs); ok {
		return methodContext{method: method, provider: ref.Provider, ref: ref, social: true, ok: true}
	}

	if !haveIdentity {
		return methodContext{}
	}

	if identity.Native {
		return methodContext{method: store.MethodPassword, provider: directory.ProviderNative, ok: true}
	}

	if method, ref, ok := socialMethod(identity.Providers); ok {
		return methodContext{method: method, provider: ref.Provider, ref: ref, social: true, ok: true}
	}

	return methodContext{}
}

// canonicalAccountID picks the canonical id for an email: the existing
// account row wins, then the native directory identity, then the identity
// that triggered the event. The choice is deterministic so concurrent
// handlers converge on the same id.
func canonicalAccountID(existingID string, identities []directory.Identity, fallbackID string) string {
	if existingID != "" {
		return existingID
	}
	if native, ok := directory.NativeIdentity(identities); ok {
		return native.ID
	}
	return fallbackID
}
