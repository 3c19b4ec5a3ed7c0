package store

import "errors"

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("store: not found")

	// ErrFailedToOpenDBConnection is returned when all connection attempts fail.
	ErrFailedToOpenDBConnection = errors.New("store: failed to open database connection")

	// ErrFailedToParseDBConfig is returned for an invalid connection string.
	ErrFailedToParseDBConfig = errors.New("store: failed to parse database config")

	// ErrFailedToApplyMigrations is returned when goose cannot bring the
	// schema up to date.
	ErrFailedToApplyMigrations = errors.New("store: failed to apply migrations")
)
