package config

import "time"

func (c BaseConfig) GetSigningKey() string {
	return c.Auth.SigningKey
}

func (c BaseConfig) GetTokenExpiration() int {
	return c.Auth.TokenExpiration
}

func (c BaseConfig) GetIssuer() string {
	return c.Auth.Issuer
}

func (c BaseConfig) GetAudience() []string {
	return c.Auth.Audience
}

func (c BaseConfig) GetContextKey() string {
	return c.Auth.ContextKey
}

func (c BaseConfig) GetTokenLookup() string {
	return c.Auth.TokenLookup
}

func (c BaseConfig) GetAuthScheme() string {
	return c.Auth.AuthScheme
}

func (c BaseConfig) GetMaxLoginAttempts() int {
	return c.Auth.MaxLoginAttempts
}

func (c BaseConfig) GetLockoutDuration() time.Duration {
	return c.Auth.LockoutDuration
}

func (c BaseConfig) GetPasswordCost() int {
	return c.Auth.PasswordCost
}

func (c BaseConfig) GetDeterministicIDs() bool {
	return c.Auth.DeterministicIDs
}

func (c BaseConfig) GetOperationTimeout() time.Duration {
	return c.Auth.OperationTimeout
}
