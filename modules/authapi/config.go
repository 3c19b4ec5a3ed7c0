package authapi

import "time"

// Config holds the account API settings.
type Config struct {
	// JWTSecret verifies bearer tokens issued by the directory (HS256).
	JWTSecret string `env:"AUTH_JWT_SECRET,required"`
	// MaxAuthAge bounds how old a session's authentication may be for the
	// set-password route.
	MaxAuthAge time.Duration `env:"AUTH_MAX_AUTH_AGE" envDefault:"15m"`
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength int `env:"AUTH_MIN_PASSWORD_LENGTH" envDefault:"10"`
}
