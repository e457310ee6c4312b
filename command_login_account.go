package auth

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// LoginAccountMessage carries a login request
type LoginAccountMessage struct {
	EmailOrPhone string `form:"emailOrPhone" json:"emailOrPhone"`
	Password     string `form:"password" json:"password"`
}

func (e LoginAccountMessage) Type() string { return "account.login" }

func (e LoginAccountMessage) Validate() error {
	e.EmailOrPhone = strings.TrimSpace(e.EmailOrPhone)
	err := validation.ValidateStruct(&e,
		validation.Field(&e.EmailOrPhone,
			validation.Required.Error("Email or phone is required"),
		),
		validation.Field(&e.Password,
			validation.Required.Error("Password is required"),
			validation.RuneLength(6, 0).Error("Password must be at least 6 characters long"),
		),
	)
	return AsValidationError(err, map[string]any{"emailOrPhone": e.EmailOrPhone})
}
