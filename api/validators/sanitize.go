package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims input, drops control characters other than newlines,
// folds runs of horizontal whitespace into one space and truncates the result
// to maxLen runes. maxLen <= 0 disables truncation.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(input))

	count := 0
	pendingSpace := false
	for _, r := range strings.TrimSpace(input) {
		switch {
		case r == '\n':
			pendingSpace = false
		case unicode.IsSpace(r):
			pendingSpace = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if maxLen > 0 && count >= maxLen {
			break
		}
		if pendingSpace {
			b.WriteByte(' ')
			count++
			pendingSpace = false
			if maxLen > 0 && count >= maxLen {
				break
			}
		}
		b.WriteRune(r)
		count++
	}
	return strings.TrimSpace(b.String())
}
