package auth

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

// IncrementLoginAttemptsSQL is the lock transition applied in a single
// statement. SET expressions read the pre-update row.
var IncrementLoginAttemptsSQL = `login_attempts = login_attempts + 1,
	lock_until = CASE WHEN login_attempts + 1 >= ? THEN ? ELSE lock_until END,
	updated_at = ?`

// AccountsRepository is the bun implementation of Accounts. Plain CRUD
// goes through the embedded repository, counters and patches use
// explicit single statement updates.
type AccountsRepository struct {
	repository.Repository[*Account]
	db  *bun.DB
	now func() time.Time
}

var _ Accounts = (*AccountsRepository)(nil)

// NewAccountsRepository returns an Accounts store over db
func NewAccountsRepository(db *bun.DB) *AccountsRepository {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(record *Account) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Account, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &AccountsRepository{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
}

// WithClock sets the time source used for timestamps
func (a *AccountsRepository) WithClock(now func() time.Time) *AccountsRepository {
	if now != nil {
		a.now = now
	}
	return a
}

// FindByIdentity finds an account by email or phone
func (a *AccountsRepository) FindByIdentity(ctx context.Context, identity string, opts ...FindOption) (*Account, error) {
	return a.FindByIdentityTx(ctx, a.db, identity, opts...)
}

func (a *AccountsRepository) FindByIdentityTx(ctx context.Context, tx bun.IDB, identity string, opts ...FindOption) (*Account, error) {
	value := NormalizeIdentityValue(identity)
	if value == "" {
		return nil, ErrIdentityNotFound
	}

	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", value).
		WhereOr("?TableAlias.phone = ?", value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, a.readError(err, "failed to find account by identity")
	}

	return scrub(record, opts...), nil
}

// FindByID finds an account by primary key
func (a *AccountsRepository) FindByID(ctx context.Context, id uuid.UUID, opts ...FindOption) (*Account, error) {
	record, err := a.Repository.GetByID(ctx, id.String())
	if err != nil {
		return nil, a.readError(err, "failed to find account by id")
	}

	return scrub(record, opts...), nil
}

func (a *AccountsRepository) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID, opts ...FindOption) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, a.readError(err, "failed to find account by id")
	}

	return scrub(record, opts...), nil
}

// Create validates and inserts the account. Identity collisions return
// a *DuplicateIdentityError.
func (a *AccountsRepository) Create(ctx context.Context, record *Account) (*Account, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *AccountsRepository) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	if record == nil {
		return nil, errors.New("account must not be nil", errors.CategoryBadInput)
	}

	prepareAccountDefaults(record, a.now())

	if err := record.Validate(); err != nil {
		return nil, err
	}

	created, err := a.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if dup, ok := uniqueViolation(err); ok {
			return nil, dup
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to insert account")
	}

	return scrub(created), nil
}

// Update applies patch and returns the updated record
func (a *AccountsRepository) Update(ctx context.Context, id uuid.UUID, patch AccountPatch) (*Account, error) {
	return a.UpdateTx(ctx, a.db, id, patch)
}

func (a *AccountsRepository) UpdateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, patch AccountPatch) (*Account, error) {
	if patch.IsEmpty() {
		return a.FindByIDTx(ctx, tx, id)
	}

	record := &Account{}
	q := tx.NewUpdate().
		Model(record).
		Set("updated_at = ?", a.now())

	if patch.Name != nil {
		q = q.Set("name = ?", strings.TrimSpace(*patch.Name))
	}

	if patch.Location != nil {
		q = q.Set("location_address = ?", patch.Location.Address).
			Set("location_lng = ?", patch.Location.Longitude).
			Set("location_lat = ?", patch.Location.Latitude)
	}

	if patch.LastLogin != nil {
		q = q.Set("last_login = ?", *patch.LastLogin)
	}

	if patch.IsActive != nil {
		q = q.Set("is_active = ?", *patch.IsActive)
	}

	err := q.Where("id = ?", id).
		Returning("*").
		Scan(ctx)
	if err != nil {
		return nil, a.readError(err, "failed to update account")
	}

	return scrub(record), nil
}

// IncrementLoginAttempts counts a failed login and starts a lock when the
// counter reaches threshold.
func (a *AccountsRepository) IncrementLoginAttempts(ctx context.Context, id uuid.UUID, threshold int, lockUntil time.Time) (*Account, error) {
	return a.IncrementLoginAttemptsTx(ctx, a.db, id, threshold, lockUntil)
}

func (a *AccountsRepository) IncrementLoginAttemptsTx(ctx context.Context, tx bun.IDB, id uuid.UUID, threshold int, lockUntil time.Time) (*Account, error) {
	record := &Account{}
	err := tx.NewUpdate().
		Model(record).
		Set(IncrementLoginAttemptsSQL, threshold, lockUntil, a.now()).
		Where("id = ?", id).
		Returning("*").
		Scan(ctx)
	if err != nil {
		return nil, a.readError(err, "failed to track login attempt")
	}

	return scrub(record), nil
}

// ResetLoginAttempts clears the counter and any lock
func (a *AccountsRepository) ResetLoginAttempts(ctx context.Context, id uuid.UUID) (*Account, error) {
	return a.ResetLoginAttemptsTx(ctx, a.db, id)
}

func (a *AccountsRepository) ResetLoginAttemptsTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error) {
	record := &Account{}
	err := tx.NewUpdate().
		Model(record).
		Set("login_attempts = 0").
		Set("lock_until = NULL").
		Set("updated_at = ?", a.now()).
		Where("id = ?", id).
		Returning("*").
		Scan(ctx)
	if err != nil {
		return nil, a.readError(err, "failed to reset login attempts")
	}

	return scrub(record), nil
}

// ReleaseExpiredLock clears an expired lock. A lock that is still active,
// or was already released by another request, is left alone.
func (a *AccountsRepository) ReleaseExpiredLock(ctx context.Context, id uuid.UUID, now time.Time) (*Account, error) {
	return a.ReleaseExpiredLockTx(ctx, a.db, id, now)
}

func (a *AccountsRepository) ReleaseExpiredLockTx(ctx context.Context, tx bun.IDB, id uuid.UUID, now time.Time) (*Account, error) {
	record := &Account{}
	err := tx.NewUpdate().
		Model(record).
		Set("login_attempts = 0").
		Set("lock_until = NULL").
		Set("updated_at = ?", a.now()).
		Where("id = ?", id).
		Where("lock_until IS NOT NULL").
		Where("lock_until <= ?", now).
		Returning("*").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return a.FindByIDTx(ctx, tx, id)
	}
	if err != nil {
		return nil, a.readError(err, "failed to release expired lock")
	}

	return scrub(record), nil
}

func (a *AccountsRepository) readError(err error, msg string) error {
	if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return ErrIdentityNotFound
	}
	return errors.Wrap(err, errors.CategoryInternal, msg)
}

func scrub(record *Account, opts ...FindOption) *Account {
	if record == nil {
		return nil
	}
	if !ResolveFindOptions(opts...).WithSecret {
		record.PasswordHash = ""
	}
	return record
}

// uniqueViolation detects sqlite and postgres unique constraint errors and
// reports which identity column collided.
func uniqueViolation(err error) (*DuplicateIdentityError, bool) {
	if err == nil {
		return nil, false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != "23505" {
			return nil, false
		}
		return NewDuplicateIdentityError(identityKindFromConstraint(pgErr.ConstraintName + " " + pgErr.Detail)), true
	}

	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value") {
		return NewDuplicateIdentityError(identityKindFromConstraint(msg)), true
	}

	return nil, false
}

func identityKindFromConstraint(s string) IdentityKind {
	if strings.Contains(strings.ToLower(s), "phone") {
		return IdentityPhone
	}
	return IdentityEmail
}
