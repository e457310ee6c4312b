package auth

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetContextKey() string
	GetTokenLookup() string
	GetAuthScheme() string
	GetMaxLoginAttempts() int
	GetLockoutDuration() time.Duration
	GetPasswordCost() int
	GetDeterministicIDs() bool
	GetOperationTimeout() time.Duration
}

// PasswordHasher hashes and verifies account secrets
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// TokenIssuer mints bearer tokens for an account
type TokenIssuer interface {
	Issue(accountID uuid.UUID, role AccountRole) (string, error)
}

// TokenVerifier validates bearer tokens and returns their claims
type TokenVerifier interface {
	Verify(token string) (*JWTClaims, error)
}

// AccountStore is the credential store contract
type AccountStore interface {
	FindByIdentity(ctx context.Context, identity string, opts ...FindOption) (*Account, error)
	FindByID(ctx context.Context, id uuid.UUID, opts ...FindOption) (*Account, error)
	Create(ctx context.Context, record *Account) (*Account, error)
	Update(ctx context.Context, id uuid.UUID, patch AccountPatch) (*Account, error)
}

// LoginTracker mutates the lockout counters. Implementations must apply
// each call as a single atomic read-modify-write.
type LoginTracker interface {
	IncrementLoginAttempts(ctx context.Context, id uuid.UUID, threshold int, lockUntil time.Time) (*Account, error)
	ResetLoginAttempts(ctx context.Context, id uuid.UUID) (*Account, error)
	// ReleaseExpiredLock resets the counter only if the stored lock ended
	// at or before now. When nothing matches, the current record is
	// returned unchanged.
	ReleaseExpiredLock(ctx context.Context, id uuid.UUID, now time.Time) (*Account, error)
}

// Accounts is what a storage backend provides for accounts
type Accounts interface {
	AccountStore
	LoginTracker
}

// FindOption tweaks account lookups
type FindOption func(*FindOptions)

// FindOptions is the resolved set of lookup flags
type FindOptions struct {
	WithSecret bool
}

// WithSecret keeps PasswordHash on the returned record. Only
// credential verification should ask for it.
func WithSecret() FindOption {
	return func(o *FindOptions) {
		o.WithSecret = true
	}
}

// ResolveFindOptions applies opts over the defaults
func ResolveFindOptions(opts ...FindOption) FindOptions {
	out := FindOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&out)
		}
	}
	return out
}

// AccountPatch lists the mutable account fields. Nil means unchanged.
type AccountPatch struct {
	Name      *string
	Location  *Location
	LastLogin *time.Time
	IsActive  *bool
}

// IsEmpty reports whether the patch changes nothing
func (p AccountPatch) IsEmpty() bool {
	return p.Name == nil && p.Location == nil && p.LastLogin == nil && p.IsActive == nil
}

// defLogger writes slog style lines: the message followed by key=value
// pairs taken from args.
type defLogger struct {
	out io.Writer
}

func (d defLogger) Error(msg string, args ...any) {
	d.write("[ERR]", msg, args...)
}

func (d defLogger) Warn(msg string, args ...any) {
	d.write("[WRN]", msg, args...)
}

func (d defLogger) Info(msg string, args ...any) {
	d.write("[INF]", msg, args...)
}

func (d defLogger) Debug(msg string, args ...any) {
	d.write("[DBG]", msg, args...)
}

func (d defLogger) write(level, msg string, args ...any) {
	out := d.out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintln(out, level+" AUTH "+logLine(msg, args...))
}

func logLine(msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(msg, "\n"))
	for i := 0; i < len(args); i += 2 {
		b.WriteByte(' ')
		if i+1 == len(args) {
			fmt.Fprintf(&b, "!BADKEY=%v", args[i])
			break
		}
		fmt.Fprintf(&b, "%v=%v", args[i], args[i+1])
	}
	return b.String()
}

// DefaultLogger returns the stdout logger used when none is configured
func DefaultLogger() Logger {
	return defLogger{}
}
