// Package hooks receives the directory's lifecycle events and feeds them
// to the reconciliation engine. Pre-signup is the only synchronous
// decision: its response gates identity admission. Confirmation and
// authentication events are fire-and-forget from the directory's view, so
// those handlers answer 204 unconditionally and engine failures go to the
// log, never back to the directory.
package hooks
