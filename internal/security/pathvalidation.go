// Package security holds helpers for handling untrusted identifiers that
// end up in filesystem paths.
package security

import "strings"

// SanitizeFilename makes a safe filename component from an arbitrary string.
// Video identifiers arrive over the API and are embedded in plot and export
// file names, so anything that is not an ASCII letter, digit, dot, underscore
// or dash is replaced with an underscore. Repeated underscores collapse and
// the result is trimmed to a reasonable length.
func SanitizeFilename(s string) string {
	if s == "" {
		return "unknown"
	}
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
