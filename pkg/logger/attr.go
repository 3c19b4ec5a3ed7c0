package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// AccountID records the canonical account identifier under the key "account_id".
func AccountID(id string) slog.Attr {
	return slog.String("account_id", id)
}

// IdentityID records a directory identity identifier under the key "identity_id".
func IdentityID(id string) slog.Attr {
	return slog.String("identity_id", id)
}

// Email records an email address under the key "email". Callers are
// expected to mask the address before logging it.
func Email(masked string) slog.Attr {
	return slog.String("email", masked)
}
