// Package store is the application-owned metadata store behind the
// reconciliation engine: accounts, auth methods and the append-only audit
// log. It holds pure data; linking decisions live in svc/reconcile.
//
// All create operations are condition-on-absence: the first writer wins
// and later writers observe created=false, which callers treat as success.
// That property replaces locking under concurrent, at-least-once event
// delivery. Nothing in this package deletes or mutates existing rows,
// except that audit entries only ever accumulate.
package store
