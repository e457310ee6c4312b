package auth

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

var passwordStrength = []*regexp.Regexp{
	regexp.MustCompile(`[a-z]`),
	regexp.MustCompile(`[A-Z]`),
	regexp.MustCompile(`\d`),
}

// RegisterAccountMessage carries a registration request
type RegisterAccountMessage struct {
	Name            string `form:"name" json:"name"`
	EmailOrPhone    string `form:"emailOrPhone" json:"emailOrPhone"`
	Password        string `form:"password" json:"password"`
	Role            string `form:"role" json:"role"`
	Location        string `form:"location" json:"location"`
	NGOID           string `form:"ngoId" json:"ngoId"`
	CertificatePath string `form:"-" json:"-"`
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// Normalize trims every free text field. Password is left untouched.
func (e RegisterAccountMessage) Normalize() RegisterAccountMessage {
	e.Name = strings.TrimSpace(e.Name)
	e.EmailOrPhone = strings.TrimSpace(e.EmailOrPhone)
	e.Role = strings.ToLower(strings.TrimSpace(e.Role))
	e.Location = strings.TrimSpace(e.Location)
	e.NGOID = strings.TrimSpace(e.NGOID)
	return e
}

func (e RegisterAccountMessage) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.Name,
			validation.Required.Error("Name is required"),
			validation.RuneLength(2, 50).Error("Name must be between 2 and 50 characters"),
		),
		validation.Field(&e.EmailOrPhone,
			validation.Required.Error("Email or phone is required"),
			validation.By(validIdentity),
		),
		validation.Field(&e.Password,
			validation.Required.Error("Password is required"),
			validation.RuneLength(6, 0).Error("Password must be at least 6 characters long"),
			validation.By(strongPassword),
		),
		validation.Field(&e.Role,
			validation.Required.Error("Role must be donor, recipient, or ngo"),
			validation.In(string(RoleDonor), string(RoleRecipient), string(RoleNGO)).Error("Role must be donor, recipient, or ngo"),
		),
		validation.Field(&e.Location,
			validation.Required.Error("Location is required"),
		),
		validation.Field(&e.NGOID,
			validation.By(requiredForNGO(e.Role)),
		),
	)
	return AsValidationError(err, map[string]any{
		"name":         e.Name,
		"emailOrPhone": e.EmailOrPhone,
		"role":         e.Role,
		"location":     e.Location,
		"ngoId":        e.NGOID,
	})
}

func validIdentity(value any) error {
	s, _ := value.(string)
	if s == "" || IsEmail(s) || IsPhone(s) {
		return nil
	}
	return errors.New("Please provide a valid email or phone number")
}

func strongPassword(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	for _, re := range passwordStrength {
		if !re.MatchString(s) {
			return errors.New("Password must contain at least one uppercase letter, one lowercase letter, and one number")
		}
	}
	return nil
}

func requiredForNGO(role string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if role == string(RoleNGO) && strings.TrimSpace(s) == "" {
			return errors.New("NGO registration ID is required for NGO accounts")
		}
		return nil
	}
}

// UpdateProfileMessage carries a profile update. Nil fields are unchanged.
type UpdateProfileMessage struct {
	Name     *string `form:"name" json:"name"`
	Location *string `form:"location" json:"location"`
}

func (e UpdateProfileMessage) Type() string { return "account.profile.update" }

func (e UpdateProfileMessage) Validate() error {
	name := ""
	if e.Name != nil {
		name = strings.TrimSpace(*e.Name)
	}
	location := ""
	if e.Location != nil {
		location = strings.TrimSpace(*e.Location)
	}

	err := validation.Errors{
		"name": validation.Validate(name,
			validation.RuneLength(2, 50).Error("Name must be between 2 and 50 characters"),
		),
		"location": validation.Validate(e.Location,
			validation.By(func(any) error {
				if e.Location != nil && location == "" {
					return errors.New("Location cannot be empty")
				}
				return nil
			}),
		),
	}.Filter()

	return AsValidationError(err, map[string]any{"name": name, "location": location})
}
