package email

import "regexp"

// addressPattern accepts local@domain.tld with no whitespace anywhere.
var addressPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidAddress reports whether addr looks like local@domain.tld.
func IsValidAddress(addr string) bool {
	return addressPattern.MatchString(addr)
}

// ValidateAddress returns a *ValidationError naming field when addr is
// malformed.
func ValidateAddress(field, addr string) error {
	if !IsValidAddress(addr) {
		return &ValidationError{Field: field, Address: addr}
	}
	return nil
}
