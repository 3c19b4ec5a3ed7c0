// Package authapi exposes the account-facing HTTP API: method discovery,
// listing linked auth methods, and the two password-establishment flows
// (authenticated set-password and the public code-verified setup flow).
//
// All handlers are stateless and resolve the canonical account per request
// through the reconciliation resolver; none of them persist session state.
// Responses are JSON; errors carry `{message, code}` with a stable code
// for programmatic handling. Discover deliberately answers 200 for every
// well-formed request to keep account enumeration signal low.
package authapi
