package store

import (
	"context"
	"time"
)

// Method is the credential kind attached to an account.
type Method string

const (
	MethodPassword Method = "password"
	MethodGoogle   Method = "google"
	MethodFacebook Method = "facebook"
	MethodApple    Method = "apple"
)

// Audit event types, one per reconciliation decision.
const (
	EventSignupConfirmed   = "SIGNUP_CONFIRMED"
	EventAutoLinked        = "AUTO_LINKED"
	EventLoginMethodSynced = "LOGIN_METHOD_SYNCED"
	EventLinkFailed        = "LINK_FAILED"
	EventStrictAnomaly     = "STRICT_ANOMALY"
	EventPasswordSet       = "PASSWORD_SET"
)

// Account is the canonical row for one real person. ID equals the
// directory identity id of whichever identity became canonical and is
// immutable after creation.
type Account struct {
	ID        string
	Email     string // normalized
	CreatedAt time.Time
}

// AuthMethod records one credential kind linked to an account. At most one
// row exists per (AccountID, Method); LinkedAt is set by the first writer
// and never overwritten.
type AuthMethod struct {
	AccountID        string
	Method           Method
	Provider         string // directory provider name, e.g. "NATIVE", "Google"
	SourceIdentityID string // directory identity the method came from
	LinkedAt         time.Time
	Verified         bool
}

// AuditEntry is an append-only record of a reconciliation decision.
type AuditEntry struct {
	ID        string // uuid
	AccountID string
	EventType string
	Method    Method
	Detail    string
	CreatedAt time.Time
}

// Store is the metadata store boundary shared by the reconciliation engine
// and the account API.
type Store interface {
	// CreateAccount inserts the account unless one with the same id already
	// exists. created=false with a nil error means another writer got there
	// first, which callers treat as success.
	CreateAccount(ctx context.Context, account Account) (created bool, err error)

	// AccountByEmail returns the account for a normalized email, or
	// ErrNotFound.
	AccountByEmail(ctx context.Context, normalizedEmail string) (Account, error)

	// AccountByID returns the account with the given id, or ErrNotFound.
	AccountByID(ctx context.Context, accountID string) (Account, error)

	// CreateAuthMethod inserts the method row unless (AccountID, Method)
	// already exists. An existing row keeps its original LinkedAt.
	CreateAuthMethod(ctx context.Context, method AuthMethod) (created bool, err error)

	// AuthMethods lists the method rows for an account, ordered by LinkedAt.
	AuthMethods(ctx context.Context, accountID string) ([]AuthMethod, error)

	// AppendAudit appends an audit entry. Entries are never updated or
	// deleted.
	AppendAudit(ctx context.Context, entry AuditEntry) error

	// AuditTrail lists audit entries for an account in append order.
	AuditTrail(ctx context.Context, accountID string) ([]AuditEntry, error)
}
