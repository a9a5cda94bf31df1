package textutil

import "strings"

const maxFileNameLength = 100

// SanitizeFileName converts a podcast or episode title into a path component
// safe on every filesystem podscribe writes to. ASCII letters, digits,
// hyphens, and underscores are kept; every other rune becomes an underscore.
// The result is capped at 100 runes; empty input yields "unknown".
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	var b strings.Builder
	b.Grow(len(name))
	count := 0
	for _, r := range name {
		if count >= maxFileNameLength {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		count++
	}
	out := b.String()
	if strings.Trim(out, "_") == "" {
		return "unknown"
	}
	return out
}
