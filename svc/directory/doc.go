// Package directory is the adapter boundary to the external identity
// directory: the system of record for credentials and unique identities.
//
// The directory guarantees uniqueness of native usernames and of
// (provider, provider user id) pairs. It does NOT guarantee one identity
// per email address across providers; collapsing those into a single
// canonical account is the job of svc/reconcile.
//
// Two implementations are provided: AdminClient speaks to a directory's
// HTTP admin API, and MemoryDirectory is an in-process fake for local
// development and tests.
package directory
