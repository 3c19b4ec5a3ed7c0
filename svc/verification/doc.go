// Package verification manages the short-lived codes behind the
// password-setup flow. Only SHA-256 digests of codes are stored, and a
// successful verification leaves a completion marker so that replaying
// the same code (an at-least-once client retrying "complete") verifies
// again instead of failing, without ever accepting a different code.
package verification
