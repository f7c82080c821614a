package utils

import "strings"

// NonEmptyStrings keeps the string elements of a decoded JSON array,
// trimmed, dropping blanks and non-string values.
func NonEmptyStrings(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
