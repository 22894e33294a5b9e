package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ScopedKey joins a key prefix with the ids it is scoped to, eg. "quiz_start" + (4, 2) -> "quiz_start_4_2".
func ScopedKey(prefix string, ids ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, id := range ids {
		b.WriteByte('_')
		b.WriteString(id)
	}
	return b.String()
}
