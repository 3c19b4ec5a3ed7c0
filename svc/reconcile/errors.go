package reconcile

import "errors"

var (
	// ErrMissingOrUnverifiedProviderEmail denies admission of a social
	// identity whose email is absent or unverified. Email is the only
	// linking key; an unverified one must never be trusted.
	ErrMissingOrUnverifiedProviderEmail = errors.New("reconcile: missing or unverified provider email")

	// ErrLinkingFailed denies admission when the directory admin-link
	// operation failed for any reason other than "already linked".
	// Admitting the identity anyway would create an orphan.
	ErrLinkingFailed = errors.New("reconcile: provider linking failed")
)
