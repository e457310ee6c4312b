package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	auth "github.com/hungerlink/go-auth"
	"github.com/hungerlink/go-auth/marketplace"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/mongo"
)

// DriverMongo selects the MongoDB backend in Open
const DriverMongo = "mongo"

// Manager exposes every store the API needs, whatever the backend
type Manager interface {
	Validate() error
	MustValidate()
	Migrate(ctx context.Context) error
	Close(ctx context.Context) error
	Accounts() auth.Accounts
	Donations() marketplace.Donations
	Requests() marketplace.Requests
}

type bunManager struct {
	accountsMngr auth.RepositoryManager
	donations    *marketplace.DonationsRepository
	requests     *marketplace.RequestsRepository
}

// NewBunManager composes the account and marketplace repositories over db
func NewBunManager(db *bun.DB) Manager {
	return &bunManager{
		accountsMngr: auth.NewRepositoryManager(db),
		donations:    marketplace.NewDonationsRepository(db),
		requests:     marketplace.NewRequestsRepository(db),
	}
}

func (m bunManager) Validate() error {
	if m.accountsMngr == nil {
		return errors.New("repository accounts should be initialized")
	}

	if err := m.accountsMngr.Validate(); err != nil {
		return err
	}

	if m.donations == nil {
		return errors.New("repository donations should be initialized")
	}

	if m.requests == nil {
		return errors.New("repository requests should be initialized")
	}

	return nil
}

func (m bunManager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m bunManager) Migrate(ctx context.Context) error {
	if err := m.accountsMngr.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate accounts: %w", err)
	}
	if err := marketplace.CreateTables(ctx, m.accountsMngr.DB()); err != nil {
		return fmt.Errorf("migrate marketplace: %w", err)
	}
	return nil
}

func (m bunManager) Close(context.Context) error {
	return m.accountsMngr.DB().Close()
}

func (m bunManager) Accounts() auth.Accounts {
	return m.accountsMngr.Accounts()
}

func (m bunManager) Donations() marketplace.Donations {
	return m.donations
}

func (m bunManager) Requests() marketplace.Requests {
	return m.requests
}

type mongoManager struct {
	client    *mongo.Client
	db        *mongo.Database
	accounts  *AccountsMongo
	donations *DonationsMongo
	requests  *RequestsMongo
}

// NewMongoManager builds the stores over the named database
func NewMongoManager(client *mongo.Client, database string) Manager {
	db := client.Database(database)
	return &mongoManager{
		client:    client,
		db:        db,
		accounts:  NewAccountsMongo(db),
		donations: NewDonationsMongo(db),
		requests:  NewRequestsMongo(db),
	}
}

func (m mongoManager) Validate() error {
	if m.client == nil || m.db == nil {
		return errors.New("repository mongo client should be initialized")
	}

	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.donations == nil || m.requests == nil {
		return errors.New("repository marketplace should be initialized")
	}

	return nil
}

func (m mongoManager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// Migrate creates the unique identity indexes and the listing indexes
func (m mongoManager) Migrate(ctx context.Context) error {
	if err := m.accounts.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("migrate accounts: %w", err)
	}
	if err := m.donations.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("migrate donations: %w", err)
	}
	if err := m.requests.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("migrate requests: %w", err)
	}
	return nil
}

func (m mongoManager) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m mongoManager) Accounts() auth.Accounts {
	return m.accounts
}

func (m mongoManager) Donations() marketplace.Donations {
	return m.donations
}

func (m mongoManager) Requests() marketplace.Requests {
	return m.requests
}

// Open connects to the configured backend. driver is sqlite, postgres or
// mongo. database only applies to mongo.
func Open(ctx context.Context, driver, dsn, database string) (Manager, error) {
	if strings.EqualFold(strings.TrimSpace(driver), DriverMongo) || strings.EqualFold(strings.TrimSpace(driver), "mongodb") {
		client, err := ConnectMongo(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return NewMongoManager(client, database), nil
	}

	db, err := auth.OpenDB(driver, dsn)
	if err != nil {
		return nil, err
	}
	return NewBunManager(db), nil
}
