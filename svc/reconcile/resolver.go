package reconcile

import (
	"context"
	"errors"

	"github.com/canonid/canonid/pkg/sanitizer"
	"github.com/canonid/canonid/svc/store"
)

// Resolver looks up the canonical account for a normalized email. The
// answer depends only on the email, never on which identity the current
// request authenticated through. It is shared by the event handlers and
// the account API.
type Resolver struct {
	store store.Store
}

// NewResolver returns a Resolver over the given metadata store.
func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// Resolve returns the canonical account for a raw email, normalizing it
// first. ok is false when no account has ever completed confirmation for
// this email.
func (r *Resolver) Resolve(ctx context.Context, email string) (account store.Account, ok bool, err error) {
	normalized := sanitizer.NormalizeEmail(email)
	if normalized == "" {
		return store.Account{}, false, nil
	}

	account, err = r.store.AccountByEmail(ctx, normalized)
	if errors.Is(err, store.ErrNotFound) {
		return store.Account{}, false, nil
	}
	if err != nil {
		return store.Account{}, false, err
	}
	return account, true, nil
}
