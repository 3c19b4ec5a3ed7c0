package verification

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCodeExpired is returned when no challenge is pending for the email.
	ErrCodeExpired = errors.New("verification: code expired or never issued")
	// ErrCodeMismatch is returned when the supplied code does not match the
	// pending challenge.
	ErrCodeMismatch = errors.New("verification: code mismatch")
)

// Config holds verification challenge settings.
type Config struct {
	CodeTTL time.Duration `env:"VERIFICATION_CODE_TTL" envDefault:"15m"` // CodeTTL is how long an issued code stays valid.
}

// Store holds pending password-setup challenges keyed by normalized email.
type Store interface {
	// Put records the digest of a freshly issued code, replacing any
	// pending challenge for the email.
	Put(ctx context.Context, normalizedEmail, codeHash string, ttl time.Duration) error

	// Verify checks the code against the pending challenge. The first
	// success consumes the challenge and records a completion marker;
	// verifying the identical code again succeeds until the marker
	// expires. A different code fails with ErrCodeMismatch.
	Verify(ctx context.Context, normalizedEmail, code string) error
}
