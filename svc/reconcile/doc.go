// Package reconcile is the identity reconciliation engine. It guarantees
// at most one canonical account per verified email address across the
// external identity directory and the metadata store, no matter in which
// order signups arrive (password-first, social-first, several providers)
// and no matter how often the directory redelivers an event.
//
// Three entry points mirror the directory's lifecycle hooks:
//
//   - PreSignup runs before a new social identity is admitted and decides
//     link-vs-create. It is the only entry point whose error blocks the
//     directory operation.
//   - ConfirmSignup runs once per newly confirmed identity and seeds the
//     canonical account and its first auth method.
//   - PostLogin runs on every successful authentication, resolves the
//     canonical account and auto-links when safe.
//
// ConfirmSignup and PostLogin are best-effort relative to the user-facing
// flow: their returned errors exist for alarming and must never be
// propagated into the confirmation or authentication result.
//
// Method context is determined strictly from directory-supplied data.
// Nothing is ever inferred from username shapes; when context cannot be
// determined the engine records a STRICT_ANOMALY audit entry and takes no
// linking action.
package reconcile
