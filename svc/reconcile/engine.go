package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/canonid/canonid/pkg/logger"
	"github.com/canonid/canonid/pkg/sanitizer"
	"github.com/canonid/canonid/svc/directory"
	"github.com/canonid/canonid/svc/store"
)

// Engine executes reconciliation decisions against the directory and the
// metadata store. It is stateless between invocations and safe for
// concurrent use; convergence under at-least-once delivery relies on the
// store's condition-on-absence writes and the directory's idempotent
// admin operations, not on locks.
type Engine struct {
	dir      directory.Directory
	store    store.Store
	resolver *Resolver
	log      *slog.Logger
	now      func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger supplies the logger used for the alarm channel.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates a reconciliation engine over the given adapters.
func NewEngine(dir directory.Directory, s store.Store, opts ...Option) *Engine {
	e := &Engine{
		dir:      dir,
		store:    s,
		resolver: NewResolver(s),
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolver exposes the shared canonical-account resolver.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// PreSignup decides whether a new social identity may be admitted. A nil
// return allows admission; ErrMissingOrUnverifiedProviderEmail and
// ErrLinkingFailed deny it. This stage only shapes directory state and
// performs no metadata writes.
func (e *Engine) PreSignup(ctx context.Context, event PreSignupEvent) error {
	if event.Email == "" || !event.EmailVerified {
		return ErrMissingOrUnverifiedProviderEmail
	}

	if _, ok := MethodForProvider(event.Provider); !ok || event.ProviderUserID == "" {
		// Nothing to link against; the identity becomes canonical at
		// confirmation.
		e.log.InfoContext(ctx, "pre-signup: unresolvable provider context, admitting without link",
			slog.String("provider", event.Provider))
		return nil
	}

	email := sanitizer.NormalizeEmail(event.Email)
	identities, err := e.dir.FindByEmail(ctx, email)
	if err != nil {
		return errors.Join(ErrLinkingFailed, err)
	}

	native, ok := directory.NativeIdentity(identities)
	if !ok {
		return nil
	}

	ref := directory.ProviderRef{Provider: event.Provider, UserID: event.ProviderUserID}
	err = e.dir.LinkProvider(ctx, native.Username, ref)
	if err != nil && !errors.Is(err, directory.ErrAlreadyLinked) {
		return errors.Join(ErrLinkingFailed, err)
	}

	e.log.InfoContext(ctx, "pre-signup: linked provider to existing native identity",
		slog.String("provider", event.Provider),
		logger.IdentityID(native.ID))
	return nil
}

// ConfirmSignup seeds the canonical account and its first auth method.
// The returned error is the alarm channel only: callers log it and must
// never surface it as a confirmation failure.
func (e *Engine) ConfirmSignup(ctx context.Context, event ConfirmationEvent) error {
	if event.IdentityID == "" {
		e.log.WarnContext(ctx, "confirmation skipped: missing identity id")
		return nil
	}

	identity, haveIdentity := e.lookupIdentity(ctx, event.IdentityID)

	email := sanitizer.NormalizeEmail(event.Email)
	if email == "" && haveIdentity {
		email = identity.Email
	}
	if email == "" {
		e.log.WarnContext(ctx, "confirmation skipped: no email on event or identity",
			logger.IdentityID(event.IdentityID))
		return nil
	}

	existing, found, err := e.resolver.Resolve(ctx, email)
	if err != nil {
		return err
	}

	canonicalID := event.IdentityID
	if found {
		canonicalID = existing.ID
	}

	accountCreated := false
	if !found {
		accountCreated, err = e.store.CreateAccount(ctx, store.Account{
			ID:        canonicalID,
			Email:     email,
			CreatedAt: e.now().UTC(),
		})
		if err != nil {
			return err
		}
		if !accountCreated {
			// A concurrent confirmation for the same email won the race;
			// adopt its account id so the method lands on the canonical row.
			if winner, ok, err := e.resolver.Resolve(ctx, email); err == nil && ok {
				canonicalID = winner.ID
			}
		}
	}

	mc := resolveMethodContext(identity, haveIdentity, event.Providers)
	if !mc.ok {
		// The user is never blocked on ambiguity: the account exists, only
		// the method seeding is skipped.
		e.audit(ctx, canonicalID, store.EventStrictAnomaly, "",
			"confirmation carried no resolvable method context; method seeding skipped")
		return nil
	}

	methodCreated, err := e.store.CreateAuthMethod(ctx, store.AuthMethod{
		AccountID:        canonicalID,
		Method:           mc.method,
		Provider:         mc.provider,
		SourceIdentityID: event.IdentityID,
		LinkedAt:         e.now().UTC(),
		Verified:         true,
	})
	if err != nil {
		return err
	}

	if accountCreated || methodCreated {
		e.audit(ctx, canonicalID, store.EventSignupConfirmed, mc.method,
			"signup confirmed and account metadata seeded")
	}
	return nil
}

// PostLogin reconciles metadata and directory links after a successful
// authentication. Like ConfirmSignup, the returned error exists for
// alarming only; reconciliation never revokes access the directory
// already granted.
func (e *Engine) PostLogin(ctx context.Context, event AuthenticationEvent) error {
	if event.IdentityID == "" {
		return nil
	}

	identity, haveIdentity := e.lookupIdentity(ctx, event.IdentityID)

	email := sanitizer.NormalizeEmail(event.Email)
	if email == "" && haveIdentity {
		email = identity.Email
	}

	var identities []directory.Identity
	if email != "" {
		var err error
		identities, err = e.dir.FindByEmail(ctx, email)
		if err != nil {
			e.log.ErrorContext(ctx, "login reconciliation: directory lookup failed",
				logger.Error(err), logger.IdentityID(event.IdentityID))
			return err
		}
	}

	var existingID string
	if email != "" {
		if existing, found, err := e.resolver.Resolve(ctx, email); err != nil {
			return err
		} else if found {
			existingID = existing.ID
		}
	}
	canonicalID := canonicalAccountID(existingID, identities, event.IdentityID)

	mc := resolveMethodContext(identity, haveIdentity, event.Providers)
	if !mc.ok {
		e.log.ErrorContext(ctx, "login reconciliation: method context missing",
			logger.IdentityID(event.IdentityID), logger.AccountID(canonicalID))
		e.audit(ctx, canonicalID, store.EventStrictAnomaly, "",
			"login carried no resolvable method context; no linking action taken")
		return nil
	}

	// Link before the method upsert so a first social login produces the
	// link and its AUTO_LINKED entry atomically from the caller's view.
	linkFailed := false
	if mc.social && haveIdentity && identity.LinkedTo == "" {
		if native, ok := directory.NativeIdentity(identities); ok && native.ID != identity.ID {
			err := e.dir.LinkProvider(ctx, native.Username, mc.ref)
			switch {
			case err == nil:
			case errors.Is(err, directory.ErrAlreadyLinked):
				// Converged on a previous delivery.
			default:
				linkFailed = true
				e.log.ErrorContext(ctx, "login reconciliation: auto-link failed",
					logger.Error(err), logger.AccountID(canonicalID))
				e.audit(ctx, canonicalID, store.EventLinkFailed, mc.method, err.Error())
			}
		}
	}

	methodCreated, err := e.store.CreateAuthMethod(ctx, store.AuthMethod{
		AccountID:        canonicalID,
		Method:           mc.method,
		Provider:         mc.provider,
		SourceIdentityID: event.IdentityID,
		LinkedAt:         e.now().UTC(),
		Verified:         true,
	})
	if err != nil {
		e.log.ErrorContext(ctx, "login reconciliation: method upsert failed",
			logger.Error(err), logger.AccountID(canonicalID))
		return err
	}

	if linkFailed {
		return nil
	}
	if methodCreated && mc.social {
		e.audit(ctx, canonicalID, store.EventAutoLinked, mc.method,
			"linked "+mc.provider+" login into canonical account")
	} else {
		e.audit(ctx, canonicalID, store.EventLoginMethodSynced, mc.method,
			"login method already present; linkedAt untouched")
	}
	return nil
}

// RecordPasswordSet upserts the password method under the canonical
// account and appends the PASSWORD_SET audit entry. Shared by the
// set-password and password-setup completion flows.
func (e *Engine) RecordPasswordSet(ctx context.Context, accountID, sourceIdentityID, detail string) error {
	_, err := e.store.CreateAuthMethod(ctx, store.AuthMethod{
		AccountID:        accountID,
		Method:           store.MethodPassword,
		Provider:         directory.ProviderNative,
		SourceIdentityID: sourceIdentityID,
		LinkedAt:         e.now().UTC(),
		Verified:         true,
	})
	if err != nil {
		return err
	}
	e.audit(ctx, accountID, store.EventPasswordSet, store.MethodPassword, detail)
	return nil
}

func (e *Engine) lookupIdentity(ctx context.Context, identityID string) (directory.Identity, bool) {
	identity, err := e.dir.FindByID(ctx, identityID)
	if err != nil {
		if !errors.Is(err, directory.ErrIdentityNotFound) {
			e.log.ErrorContext(ctx, "directory identity lookup failed",
				logger.Error(err), logger.IdentityID(identityID))
		}
		return directory.Identity{}, false
	}
	return identity, true
}

// audit appends an entry best-effort. A failed audit write is alarmed via
// the log and never interrupts the decision that produced it.
func (e *Engine) audit(ctx context.Context, accountID, eventType string, method store.Method, detail string) {
	err := e.store.AppendAudit(ctx, store.AuditEntry{
		ID:        uuid.NewString(),
		AccountID: accountID,
		EventType: eventType,
		Method:    method,
		Detail:    detail,
		CreatedAt: e.now().UTC(),
	})
	if err != nil {
		e.log.ErrorContext(ctx, "audit append failed",
			logger.Error(err), logger.AccountID(accountID), slog.String("event_type", eventType))
	}
}
