package logging

import (
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// RedactedValue replaces identities and other sensitive values in log output.
const RedactedValue = "[REDACTED]"

// Keys emitted verbatim by MaskField. Everything else logged through it is
// masked.
var redactionAllowlist = map[string]struct{}{
	"service":   {},
	"env":       {},
	"message":   {},
	"severity":  {},
	"timestamp": {},
	"error":     {},
	"reason":    {},
	"component": {},
	"event":     {},
	"index":     {},
	"kind":      {},
	"amount":    {},
	"root":      {},
	"active":    {},
	"starttime": {},
	"assetkind": {},
}

// Keys that carry a vault participant's identity. The handler built by
// SetupWithOptions masks them even when a caller logs them with a plain
// slog.String.
var identityKeys = map[string]struct{}{
	"recipient": {},
	"submitter": {},
	"creator":   {},
	"owner":     {},
	"admin":     {},
	"to":        {},
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// IsAllowlisted reports whether key is exempt from MaskField redaction.
func IsAllowlisted(key string) bool {
	_, ok := redactionAllowlist[normalizeKey(key)]
	return ok
}

// MaskField returns a slog.Attr that redacts value unless key is allowlisted.
// Empty values pass through so absent data stays visible.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskIdentity logs a 20-byte identity under key. The zero identity is
// logged as an empty string; any other identity is masked.
func MaskIdentity(key string, id [20]byte) slog.Attr {
	if id == ([20]byte{}) {
		return slog.String(key, "")
	}
	return MaskField(key, common.Address(id).Hex())
}

// redactIdentity is the ReplaceAttr step that masks identity keys at the
// top level of a record.
func redactIdentity(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return attr
	}
	if _, ok := identityKeys[normalizeKey(attr.Key)]; !ok {
		return attr
	}
	if attr.Value.Kind() == slog.KindString && strings.TrimSpace(attr.Value.String()) == "" {
		return attr
	}
	return slog.String(attr.Key, RedactedValue)
}
