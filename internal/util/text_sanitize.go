package util

import "strings"

// SanitizeText strips NUL bytes and other non-printing control characters
// that PDF extractors sometimes leak. Postgres text columns reject NUL
// outright, and stray controls garble prompts and the persisted index.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		switch {
		case ch == '\n' || ch == '\r' || ch == '\t':
			b.WriteRune(ch)
		case ch < 0x20 || ch == 0x7f:
			// drop
		default:
			b.WriteRune(ch)
		}
	}
	return strings.TrimSpace(b.String())
}
