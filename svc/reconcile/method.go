package reconcile

import (
	"strings"

	"github.com/canonid/canonid/svc/directory"
	"github.com/canonid/canonid/svc/store"
)

// methodByProvider maps directory provider names to credential methods.
// Unknown providers map to nothing: the engine never guesses.
var methodByProvider = map[string]store.Method{
	directory.ProviderNative:   store.MethodPassword,
	directory.ProviderGoogle:   store.MethodGoogle,
	directory.ProviderFacebook: store.MethodFacebook,
	directory.ProviderApple:    store.MethodApple,
}

// MethodForProvider returns the credential method for a directory provider
// name, matching case-insensitively because providers are not consistent
// about capitalization across event payloads.
func MethodForProvider(provider string) (store.Method, bool) {
	if m, ok := methodByProvider[provider]; ok {
		return m, true
	}
	for name, m := range methodByProvider {
		if strings.EqualFold(name, provider) {
			return m, true
		}
	}
	return "", false
}

// socialMethod picks the first provider reference that maps to a known
// method. Strict mode: an empty result means the context is ambiguous.
func socialMethod(refs []directory.ProviderRef) (store.Method, directory.ProviderRef, bool) {
	for _, ref := range refs {
		if ref.UserID == "" {
			continue
		}
		if m, ok := MethodForProvider(ref.Provider); ok {
			return m, ref, true
		}
	}
	return "", directory.ProviderRef{}, false
}
