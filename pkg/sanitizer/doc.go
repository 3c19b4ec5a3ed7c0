// Package sanitizer provides email normalization and masking helpers.
//
// The normalized form (trimmed, lowercased, local part cleaned of
// consecutive dots) is the only linking key used by the reconciliation
// engine, so every component that touches an email address must pass it
// through NormalizeEmail first.
package sanitizer
