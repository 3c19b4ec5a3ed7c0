package directory

import "errors"

var (
	// ErrIdentityNotFound is returned when no identity matches the lookup.
	ErrIdentityNotFound = errors.New("directory: identity not found")

	// ErrIdentityExists is returned by CreateNative when a native identity
	// already holds the email.
	ErrIdentityExists = errors.New("directory: native identity already exists")

	// ErrAlreadyLinked is returned when the provider identity is already
	// linked to the requested destination. Callers treat this as success;
	// link operations are idempotent by contract.
	ErrAlreadyLinked = errors.New("directory: provider already linked to this identity")

	// ErrLinkConflict is returned when the provider identity is linked to a
	// different native identity. This is never safe to ignore.
	ErrLinkConflict = errors.New("directory: provider linked to another identity")
)
