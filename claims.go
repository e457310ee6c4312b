package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTClaims is the payload carried by bearer tokens
type JWTClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid,omitempty"`
	UserRole string `json:"role,omitempty"`
}

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the account ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// AccountID parses the account ID claim
func (c *JWTClaims) AccountID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.UserID())
	if err != nil {
		return uuid.Nil, ErrTokenInvalid
	}
	return id, nil
}

// Role returns the account role
func (c *JWTClaims) Role() AccountRole {
	return AccountRole(c.UserRole)
}

// HasRole checks the global role
func (c *JWTClaims) HasRole(role AccountRole) bool {
	return c.Role() == role
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// RoleName returns the role as a plain string
func (c *JWTClaims) RoleName() string {
	return c.UserRole
}
