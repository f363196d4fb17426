package validators

import (
	"net/mail"
	"strings"
)

// IsEmail reports whether s is a bare address ("a@b.c"), not a display form.
func IsEmail(s string) bool {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}
