package auth

import "strings"

// AccountRole is the role an account registered with
type AccountRole string

const (
	RoleDonor     AccountRole = "donor"
	RoleRecipient AccountRole = "recipient"
	RoleNGO       AccountRole = "ngo"
)

// AccountRoles lists every valid role
var AccountRoles = []AccountRole{RoleDonor, RoleRecipient, RoleNGO}

// IsValid checks if the role is one of the predefined valid roles
func (r AccountRole) IsValid() bool {
	switch r {
	case RoleDonor, RoleRecipient, RoleNGO:
		return true
	default:
		return false
	}
}

func (r AccountRole) String() string {
	return string(r)
}

// ParseAccountRole is case insensitive. It returns false for unknown roles.
func ParseAccountRole(s string) (AccountRole, bool) {
	r := AccountRole(strings.ToLower(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// CanClaimDonations reports whether the role may claim a donation
func (r AccountRole) CanClaimDonations() bool {
	return r == RoleRecipient || r == RoleNGO
}
