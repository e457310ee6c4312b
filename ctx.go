package auth

import (
	"context"

	"github.com/google/uuid"
)

var accountCtxKey = &contextKey{"account"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithAccountID sets the authenticated account ID in the given context
func WithAccountID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, accountCtxKey, id)
}

// AccountIDFromContext finds the authenticated account ID
func AccountIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	raw, ok := ctx.Value(accountCtxKey).(uuid.UUID)
	return raw, ok && raw != uuid.Nil
}

// WithClaimsContext sets the token claims in the given context
func WithClaimsContext(ctx context.Context, claims *JWTClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// GetClaims extracts the token claims from the context
func GetClaims(ctx context.Context) (*JWTClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*JWTClaims)
	return raw, ok && raw != nil
}
