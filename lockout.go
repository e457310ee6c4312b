package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

const (
	// DefaultMaxLoginAttempts is the number of consecutive failures that
	// locks an account
	DefaultMaxLoginAttempts = 5
	// DefaultLockoutDuration is how long a lock lasts
	DefaultLockoutDuration = 15 * time.Minute
)

// LockoutPolicy tracks failed logins per account and locks the account
// once MaxAttempts consecutive failures are recorded. Locks expire on
// their own: the first read after LockUntil passes resets the counter.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
	store        LoginTracker
	now          func() time.Time
}

// NewLockoutPolicy returns a policy with the default thresholds
func NewLockoutPolicy(store LoginTracker) *LockoutPolicy {
	return &LockoutPolicy{
		MaxAttempts:  DefaultMaxLoginAttempts,
		LockDuration: DefaultLockoutDuration,
		store:        store,
		now:          time.Now,
	}
}

// WithThresholds overrides the defaults. Non positive values are ignored.
func (p *LockoutPolicy) WithThresholds(maxAttempts int, lockDuration time.Duration) *LockoutPolicy {
	if maxAttempts > 0 {
		p.MaxAttempts = maxAttempts
	}
	if lockDuration > 0 {
		p.LockDuration = lockDuration
	}
	return p
}

// WithClock sets the time source, used in tests
func (p *LockoutPolicy) WithClock(now func() time.Time) *LockoutPolicy {
	if now != nil {
		p.now = now
	}
	return p
}

// IsLocked reports whether acct is inside an active lock window
func (p *LockoutPolicy) IsLocked(acct *Account) bool {
	if acct == nil {
		return false
	}
	return acct.IsLockedAt(p.now())
}

// Refresh releases an expired lock. acct is updated in place with the
// stored counters, which may already hold failures recorded by
// concurrent logins.
func (p *LockoutPolicy) Refresh(ctx context.Context, acct *Account) error {
	now := p.now()
	if acct == nil || acct.LockUntil == nil || acct.IsLockedAt(now) {
		return nil
	}

	updated, err := p.store.ReleaseExpiredLock(ctx, acct.ID, now)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to release expired lock")
	}

	syncLockState(acct, updated)
	return nil
}

// RecordFailure increments the counter and starts a lock when it reaches
// MaxAttempts. It returns true when this call locked the account.
func (p *LockoutPolicy) RecordFailure(ctx context.Context, acct *Account) (bool, error) {
	if acct == nil {
		return false, nil
	}

	lockUntil := p.now().Add(p.LockDuration)
	updated, err := p.store.IncrementLoginAttempts(ctx, acct.ID, p.MaxAttempts, lockUntil)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to track login attempt")
	}

	wasLocked := acct.LockUntil != nil
	syncLockState(acct, updated)

	return !wasLocked && acct.LockUntil != nil, nil
}

// RecordSuccess clears the counter. It is a no-op for clean accounts.
func (p *LockoutPolicy) RecordSuccess(ctx context.Context, acct *Account) error {
	if acct == nil || (acct.LoginAttempts == 0 && acct.LockUntil == nil) {
		return nil
	}

	updated, err := p.store.ResetLoginAttempts(ctx, acct.ID)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to track successful login")
	}

	syncLockState(acct, updated)
	return nil
}

// RemainingAttempts is how many failures are left before a lock
func (p *LockoutPolicy) RemainingAttempts(acct *Account) int {
	if acct == nil {
		return p.MaxAttempts
	}
	left := p.MaxAttempts - acct.LoginAttempts
	if left < 0 {
		return 0
	}
	return left
}

func syncLockState(dst, src *Account) {
	if src == nil {
		dst.LoginAttempts = 0
		dst.LockUntil = nil
		return
	}
	dst.LoginAttempts = src.LoginAttempts
	dst.LockUntil = src.LockUntil
}
