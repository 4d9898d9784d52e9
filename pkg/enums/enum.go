// Package enums holds the string enums persisted in varchar columns and
// carried in tokens, payloads and query strings.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

// parseEnum matches raw, trimmed, against valid. kind names the enum in the
// error so callers can surface it as a validation message.
func parseEnum[T ~string](valid []T, raw, kind string) (T, error) {
	v := T(strings.TrimSpace(raw))
	if slices.Contains(valid, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
