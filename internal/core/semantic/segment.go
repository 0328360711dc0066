package semantic

import "strings"

// Sentences splits text on terminal punctuation. It is intentionally
// simple: the consumers score or filter sentences and tolerate the
// occasional bad split.
func Sentences(text string) []string {
	var out []string
	var b strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			next := ' '
			if i+1 < len(runes) {
				next = runes[i+1]
			}
			if next == ' ' || next == '\n' || next == '\t' || i+1 == len(runes) {
				if s := strings.TrimSpace(b.String()); s != "" {
					out = append(out, s)
				}
				b.Reset()
			}
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// Tokens lower-cases and splits on any non-letter, non-digit rune.
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= 'A' && r <= 'Z':
			return false
		case r >= '0' && r <= '9':
			return false
		default:
			return true
		}
	})
}

// Truncate bounds text to max runes.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
