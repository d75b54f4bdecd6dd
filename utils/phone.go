package utils

import "strings"

// DigitsOnly strips everything but 0-9 from s. Phone searches compare digit
// strings so "(555) 123-4567" matches "5551234".
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
