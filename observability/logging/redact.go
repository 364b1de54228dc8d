package logging

import (
	"log/slog"
	"net/url"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

var plainKeys = map[string]struct{}{
	"listen":   {},
	"backend":  {},
	"path":     {},
	"driver":   {},
	"dsn":      {},
	"endpoint": {},
	"events":   {},
	"issuer":   {},
	"audience": {},
	"env":      {},
	"module":   {},
}

func plain(key string) bool {
	_, ok := plainKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskField redacts value unless key names a non-secret setting. Empty values
// pass through so operators can see what is unset.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || plain(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// RedactDSN hides the password of a database connection string. Both URL
// DSNs and libpq key=value strings are understood.
func RedactDSN(dsn string) string {
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return RedactedValue
		}
		return u.Redacted()
	}
	fields := strings.Fields(dsn)
	for i, field := range fields {
		key, _, ok := strings.Cut(field, "=")
		if ok && strings.EqualFold(key, "password") {
			fields[i] = key + "=" + RedactedValue
		}
	}
	return strings.Join(fields, " ")
}
