package auth

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeValidationFailed   = "VALIDATION_FAILED"
	TextCodeDuplicateIdentity  = "DUPLICATE_IDENTITY"
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeAccountLocked      = "ACCOUNT_LOCKED"
	TextCodeAccountDeactivated = "ACCOUNT_DEACTIVATED"
	TextCodeTokenInvalid       = "TOKEN_INVALID"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
)

// ErrValidationFailed is returned when input is missing or malformed.
// Field level detail travels in a *ValidationError that wraps it.
var ErrValidationFailed = goerrors.New("Validation failed", goerrors.CategoryValidation).
	WithTextCode(TextCodeValidationFailed).
	WithCode(goerrors.CodeBadRequest)

// ErrDuplicateIdentity is returned when another account holds the identity
var ErrDuplicateIdentity = goerrors.New("User with this identity already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateIdentity).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidCredentials is shared by unknown identity and wrong password
var ErrInvalidCredentials = goerrors.New("Invalid email/phone or password. Please try again.", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountLocked is returned while a lockout window is open
var ErrAccountLocked = goerrors.New("Account temporarily locked due to too many failed login attempts. Please try again later.", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeAccountLocked)

// ErrAccountDeactivated is returned when IsActive is false
var ErrAccountDeactivated = goerrors.New("Account is deactivated. Please contact support.", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountDeactivated).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenInvalid covers malformed, unsigned and forged tokens
var ErrTokenInvalid = goerrors.New("Invalid authentication token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for well formed tokens past their expiry
var ErrTokenExpired = goerrors.New("Authentication token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// DuplicateIdentityError names the identity kind that collided.
// It matches ErrDuplicateIdentity with errors.Is.
type DuplicateIdentityError struct {
	Kind IdentityKind
}

func (e *DuplicateIdentityError) Error() string {
	return "User with this " + e.Kind.Label() + " already exists"
}

func (e *DuplicateIdentityError) Unwrap() error {
	return ErrDuplicateIdentity
}

// NewDuplicateIdentityError is returned by stores on unique violations
func NewDuplicateIdentityError(kind IdentityKind) *DuplicateIdentityError {
	if kind == "" {
		kind = IdentityEmail
	}
	return &DuplicateIdentityError{Kind: kind}
}

// IsDuplicateIdentity reports whether err is a duplicate identity failure
func IsDuplicateIdentity(err error) bool {
	var dup *DuplicateIdentityError
	return errors.As(err, &dup) || errors.Is(err, ErrDuplicateIdentity)
}

// FieldError describes a single invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValidationError carries field errors and matches ErrValidationFailed
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidationFailed.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrValidationFailed.Message + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError builds a ValidationError from a single field
func NewValidationError(field, message string, value any) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message, Value: value}}}
}

// FormatValidationErrors will turn an ozzo validation error into field errors.
// values is optional and used to echo the rejected input back to the client.
func FormatValidationErrors(err error, values map[string]any) []FieldError {
	if err == nil {
		return nil
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		return []FieldError{{Field: "form", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(errs))
	for _, field := range sortedKeys(errs) {
		fe := FieldError{
			Field:   field,
			Message: errs[field].Error(),
		}
		if values != nil {
			if v, ok := values[field]; ok && v != "" {
				fe.Value = v
			}
		}
		out = append(out, fe)
	}
	return out
}

// AsValidationError converts an ozzo error into a *ValidationError.
// nil in, nil out.
func AsValidationError(err error, values map[string]any) error {
	if err == nil {
		return nil
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return &ValidationError{Fields: FormatValidationErrors(err, values)}
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenInvalid) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

func sortedKeys(errs validation.Errors) []string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TextCodeOf returns the text code of the first coded error in the chain
func TextCodeOf(err error) string {
	if err == nil {
		return ""
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return TextCodeValidationFailed
	}

	var dup *DuplicateIdentityError
	if errors.As(err, &dup) {
		return TextCodeDuplicateIdentity
	}

	var gerr *goerrors.Error
	if errors.As(err, &gerr) {
		return gerr.TextCode
	}

	return ""
}

// HasTextCode reports whether err carries code
func HasTextCode(err error, code string) bool {
	return code != "" && TextCodeOf(err) == code
}
