package octopus

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

const maxEmailLength = 254

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// EmailAddress is a syntactically valid email address. The zero value is
// not a valid address and is rejected by every client operation.
type EmailAddress struct {
	raw string
}

// ParseEmailAddress validates raw and returns it as an EmailAddress.
// Surrounding whitespace is ignored; the case of the address is preserved.
func ParseEmailAddress(raw string) (EmailAddress, error) {
	addr := strings.TrimSpace(raw)
	if addr == "" {
		return EmailAddress{}, assertionFailed("email address cannot be empty")
	}
	if len(addr) > maxEmailLength {
		return EmailAddress{}, assertionFailed("email address exceeds %d characters", maxEmailLength)
	}
	if !emailPattern.MatchString(addr) {
		return EmailAddress{}, assertionFailed("%q is not a valid email address", addr)
	}
	return EmailAddress{raw: addr}, nil
}

// MustParseEmailAddress is like ParseEmailAddress but panics on invalid input.
func MustParseEmailAddress(raw string) EmailAddress {
	e, err := ParseEmailAddress(raw)
	if err != nil {
		panic(err)
	}
	return e
}

func (e EmailAddress) String() string {
	return e.raw
}

// IsZero reports whether e was never parsed.
func (e EmailAddress) IsZero() bool {
	return e.raw == ""
}

// Equal compares two addresses case-insensitively.
func (e EmailAddress) Equal(other EmailAddress) bool {
	return strings.EqualFold(e.raw, other.raw)
}

// Hash returns the lowercase hex MD5 digest of the lowercased address, which
// the API uses to address a contact within a list.
func (e EmailAddress) Hash() string {
	sum := md5.Sum([]byte(strings.ToLower(e.raw)))
	return hex.EncodeToString(sum[:])
}
