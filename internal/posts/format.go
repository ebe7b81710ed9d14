package posts

import (
	"unicode"
	"unicode/utf8"
)

// Capitalize upper-cases the first character and leaves the rest as is.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}

	return string(unicode.ToUpper(r)) + s[size:]
}
