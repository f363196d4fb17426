package validators

import "regexp"

var phonePattern = regexp.MustCompile(`^\d{11,13}$`)

// IsPhone accepts 11 to 13 digits with no separators.
func IsPhone(s string) bool {
	return phonePattern.MatchString(s)
}
