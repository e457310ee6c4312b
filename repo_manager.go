package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes the account repositories over a bun database
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Migrate(ctx context.Context) error
	Accounts() *AccountsRepository
	DB() *bun.DB
}

var _ RepositoryManager = (*mngr)(nil)

type mngr struct {
	db       *bun.DB
	accounts *AccountsRepository
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:       db,
		accounts: NewAccountsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository database should be initialized")
	}

	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// Migrate creates the accounts table with its unique identity columns
func (m mngr) Migrate(ctx context.Context) error {
	return CreateAccountsTable(ctx, m.db)
}

func (m mngr) Accounts() *AccountsRepository {
	return m.accounts
}

func (m mngr) DB() *bun.DB {
	return m.db
}

// CreateAccountsTable is idempotent
func CreateAccountsTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*Account)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}
