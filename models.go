package auth

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the account model
type Account struct {
	bun.BaseModel   `bun:"table:accounts,alias:acct"`
	ID              uuid.UUID   `bun:"id,pk,type:uuid" json:"id"`
	Name            string      `bun:"name,notnull" json:"name"`
	Email           string      `bun:"email,unique,nullzero" json:"email,omitempty"`
	Phone           string      `bun:"phone,unique,nullzero" json:"phone,omitempty"`
	PasswordHash    string      `bun:"password_hash,notnull" json:"-"`
	Role            AccountRole `bun:"role,notnull" json:"role"`
	Location        Location    `bun:"embed:location_" json:"location"`
	NGODetails      *NGODetails `bun:"ngo_details" json:"ngoDetails,omitempty"`
	IsActive        bool        `bun:"is_active,notnull" json:"isActive"`
	IsPhoneVerified bool        `bun:"is_phone_verified,notnull" json:"isPhoneVerified"`
	LoginAttempts   int         `bun:"login_attempts,notnull" json:"-"`
	LockUntil       *time.Time  `bun:"lock_until" json:"-"`
	LastLogin       *time.Time  `bun:"last_login" json:"lastLogin,omitempty"`
	CreatedAt       time.Time   `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt       time.Time   `bun:"updated_at,notnull" json:"updatedAt"`
}

// Location is a free text address with an optional point
type Location struct {
	Address   string  `bun:"address,notnull" json:"address"`
	Longitude float64 `bun:"lng,notnull" json:"lng"`
	Latitude  float64 `bun:"lat,notnull" json:"lat"`
}

// NGODetails is only present on ngo accounts
type NGODetails struct {
	RegistrationID  string `json:"registrationId"`
	CertificatePath string `json:"certificatePath,omitempty"`
	IsVerified      bool   `json:"isVerified"`
}

// Identity returns the login handle for the account
func (a *Account) Identity() string {
	if a.Email != "" {
		return a.Email
	}
	return a.Phone
}

// IsLockedAt reports whether the lockout window is open at now
func (a *Account) IsLockedAt(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// Validate checks the invariants a stored account must hold
func (a *Account) Validate() error {
	err := validation.ValidateStruct(a,
		validation.Field(&a.Name, validation.Required, validation.RuneLength(2, 50)),
		validation.Field(&a.Role, validation.Required, validation.In(RoleDonor, RoleRecipient, RoleNGO)),
		validation.Field(&a.PasswordHash, validation.Required),
		validation.Field(&a.Location, validation.By(func(value any) error {
			loc, _ := value.(Location)
			if strings.TrimSpace(loc.Address) == "" {
				return errors.New("Location is required")
			}
			return nil
		})),
	)
	if err != nil {
		return AsValidationError(err, nil)
	}

	if (a.Email == "") == (a.Phone == "") {
		return NewValidationError("emailOrPhone", "Exactly one of email or phone must be set", nil)
	}

	if a.Role == RoleNGO {
		if a.NGODetails == nil || strings.TrimSpace(a.NGODetails.RegistrationID) == "" {
			return NewValidationError("ngoId", "NGO registration ID is required for NGO accounts", nil)
		}
	} else if a.NGODetails != nil {
		return NewValidationError("ngoId", "NGO details are only allowed on NGO accounts", nil)
	}

	return nil
}

// GeoPoint is the GeoJSON point clients receive
type GeoPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// LocationView is the public location shape
type LocationView struct {
	Address     string   `json:"address"`
	Coordinates GeoPoint `json:"coordinates"`
}

// AccountView is the only account shape sent to clients. It never
// carries the password hash or the lockout counters.
type AccountView struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Email           string       `json:"email,omitempty"`
	Phone           string       `json:"phone,omitempty"`
	Role            AccountRole  `json:"role"`
	Location        LocationView `json:"location"`
	NGODetails      *NGODetails  `json:"ngoDetails,omitempty"`
	IsActive        bool         `json:"isActive"`
	IsPhoneVerified bool         `json:"isPhoneVerified"`
	LastLogin       *time.Time   `json:"lastLogin,omitempty"`
	CreatedAt       *time.Time   `json:"createdAt,omitempty"`
}

// NewLocationView converts a stored location to its public shape
func NewLocationView(l Location) LocationView {
	return LocationView{
		Address: l.Address,
		Coordinates: GeoPoint{
			Type:        "Point",
			Coordinates: [2]float64{l.Longitude, l.Latitude},
		},
	}
}

// NewAccountView will strip secrets from the account
func NewAccountView(a *Account) *AccountView {
	if a == nil {
		return nil
	}

	view := &AccountView{
		ID:              a.ID.String(),
		Name:            a.Name,
		Email:           a.Email,
		Phone:           a.Phone,
		Role:            a.Role,
		Location:        NewLocationView(a.Location),
		IsActive:        a.IsActive,
		IsPhoneVerified: a.IsPhoneVerified,
		LastLogin:       a.LastLogin,
	}

	if a.NGODetails != nil {
		details := *a.NGODetails
		view.NGODetails = &details
	}

	if !a.CreatedAt.IsZero() {
		created := a.CreatedAt
		view.CreatedAt = &created
	}

	return view
}

func prepareAccountDefaults(record *Account, now time.Time) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.LoginAttempts = 0
	record.LockUntil = nil
}

// PrepareAccountDefaults fills ID and timestamps before insert. Storage
// backends outside this package call it from Create.
func PrepareAccountDefaults(record *Account, now time.Time) {
	prepareAccountDefaults(record, now)
}
