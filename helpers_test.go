package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hungerlink/go-auth"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := auth.OpenDB(auth.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := auth.NewRepositoryManager(db)
	require.NoError(t, repo.Migrate(context.Background()))

	return db
}

type testConfig struct {
	maxAttempts int
	lockFor     time.Duration
}

func (c testConfig) GetSigningKey() string { return "test-signing-key-with-32-characters!" }
func (c testConfig) GetTokenExpiration() int { return 24 * 7 }
func (c testConfig) GetIssuer() string { return "hungerlink-test" }
func (c testConfig) GetAudience() []string { return []string{"hungerlink"} }
func (c testConfig) GetContextKey() string { return "user" }
func (c testConfig) GetTokenLookup() string { return "header:Authorization" }
func (c testConfig) GetAuthScheme() string { return "Bearer" }
func (c testConfig) GetMaxLoginAttempts() int { return c.maxAttempts }
func (c testConfig) GetLockoutDuration() time.Duration { return c.lockFor }
func (c testConfig) GetPasswordCost() int { return bcrypt.MinCost }
func (c testConfig) GetDeterministicIDs() bool { return false }
func (c testConfig) GetOperationTimeout() time.Duration { return 5 * time.Second }

var _ auth.Config = testConfig{}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type fixture struct {
	db      *bun.DB
	store   *auth.AccountsRepository
	tokens  *auth.TokenService
	service *auth.AccountService
	clock   *clock
	sink    *recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testConfig{maxAttempts: 5, lockFor: 15 * time.Minute}
	clk := newClock()
	db := newTestDB(t)
	store := auth.NewAccountsRepository(db).WithClock(clk.Now)
	tokens := auth.NewTokenServiceFromConfig(cfg, nil).WithClock(clk.Now)
	sink := &recordingSink{}

	service := auth.NewAccountServiceFromConfig(store, tokens, cfg).
		WithClock(clk.Now).
		WithActivitySink(sink)

	return &fixture{
		db:      db,
		store:   store,
		tokens:  tokens,
		service: service,
		clock:   clk,
		sink:    sink,
	}
}

func ashaRegistration() auth.RegisterAccountMessage {
	return auth.RegisterAccountMessage{
		Name:         "Asha",
		EmailOrPhone: "asha@example.com",
		Password:     "Secret123",
		Role:         "donor",
		Location:     "Pune",
	}
}
