package auth

import (
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// IdentityKind tells email and phone identities apart
type IdentityKind string

const (
	IdentityEmail IdentityKind = "email"
	IdentityPhone IdentityKind = "phone"
)

// Label is the human name used in client messages
func (k IdentityKind) Label() string {
	if k == IdentityPhone {
		return "phone number"
	}
	return "email"
}

var (
	emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)
)

// DefaultPhoneRegion is used to parse phone numbers given without a
// country prefix.
var DefaultPhoneRegion = "IN"

// Identity is a normalized login handle
type Identity struct {
	Kind  IdentityKind
	Value string
}

// IsEmail reports whether s looks like an email address
func IsEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// IsPhone reports whether s looks like a phone number
func IsPhone(s string) bool {
	return phonePattern.MatchString(strings.TrimSpace(s))
}

// NormalizeIdentity classifies raw and returns its canonical form. Emails
// are lower-cased. Phones are formatted as E.164 when libphonenumber can
// parse them, otherwise kept as entered.
func NormalizeIdentity(raw string) (Identity, error) {
	s := strings.TrimSpace(raw)
	switch {
	case s == "":
		return Identity{}, NewValidationError("emailOrPhone", "Email or phone number is required", nil)
	case IsEmail(s):
		return Identity{Kind: IdentityEmail, Value: strings.ToLower(s)}, nil
	case IsPhone(s):
		return Identity{Kind: IdentityPhone, Value: normalizePhone(s)}, nil
	default:
		return Identity{}, NewValidationError("emailOrPhone", "Please provide a valid email or phone number", raw)
	}
}

// NormalizeIdentityValue is NormalizeIdentity for lookups. Unrecognized
// input is returned trimmed so that it simply matches nothing.
func NormalizeIdentityValue(raw string) string {
	id, err := NormalizeIdentity(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return id.Value
}

func normalizePhone(s string) string {
	num, err := phonenumbers.Parse(s, DefaultPhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return s
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
