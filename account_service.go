package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// DefaultOperationTimeout bounds the store work of a single service call
const DefaultOperationTimeout = 10 * time.Second

// AccountService runs registration, login and profile operations
type AccountService struct {
	store            Accounts
	hasher           PasswordHasher
	policy           *LockoutPolicy
	tokens           TokenIssuer
	logger           Logger
	activitySink     ActivitySink
	timeout          time.Duration
	deterministicIDs bool
	now              func() time.Time
}

// NewAccountService wires the lifecycle service with bcrypt and the
// default lockout thresholds. Use the With methods to override.
func NewAccountService(store Accounts, tokens TokenIssuer) *AccountService {
	return &AccountService{
		store:        store,
		hasher:       NewBcryptHasher(0),
		policy:       NewLockoutPolicy(store),
		tokens:       tokens,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		timeout:      DefaultOperationTimeout,
		now:          time.Now,
	}
}

// NewAccountServiceFromConfig applies the Config thresholds
func NewAccountServiceFromConfig(store Accounts, tokens TokenIssuer, cfg Config) *AccountService {
	return NewAccountService(store, tokens).
		WithHasher(NewBcryptHasher(cfg.GetPasswordCost())).
		WithLockout(cfg.GetMaxLoginAttempts(), cfg.GetLockoutDuration()).
		WithTimeout(cfg.GetOperationTimeout()).
		WithDeterministicIDs(cfg.GetDeterministicIDs())
}

func (s *AccountService) WithLogger(logger Logger) *AccountService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *AccountService) WithHasher(hasher PasswordHasher) *AccountService {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

// WithLockout overrides the failure threshold and lock duration
func (s *AccountService) WithLockout(maxAttempts int, lockDuration time.Duration) *AccountService {
	s.policy.WithThresholds(maxAttempts, lockDuration)
	return s
}

func (s *AccountService) WithActivitySink(sink ActivitySink) *AccountService {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

func (s *AccountService) WithTimeout(timeout time.Duration) *AccountService {
	if timeout > 0 {
		s.timeout = timeout
	}
	return s
}

// WithDeterministicIDs derives account IDs from the normalized identity
func (s *AccountService) WithDeterministicIDs(enabled bool) *AccountService {
	s.deterministicIDs = enabled
	return s
}

// WithClock sets the time source for the service and its lockout policy
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	if now != nil {
		s.now = now
		s.policy.WithClock(now)
	}
	return s
}

// Policy returns the lockout policy in use
func (s *AccountService) Policy() *LockoutPolicy {
	return s.policy
}

// Register creates an account and returns it with a fresh token
func (s *AccountService) Register(ctx context.Context, msg RegisterAccountMessage) (*AccountView, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during account registration")
	default:
		return s.register(ctx, msg.Normalize())
	}
}

func (s *AccountService) register(ctx context.Context, msg RegisterAccountMessage) (*AccountView, string, error) {
	if err := msg.Validate(); err != nil {
		return nil, "", err
	}

	identity, err := NormalizeIdentity(msg.EmailOrPhone)
	if err != nil {
		return nil, "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	existing, err := s.store.FindByIdentity(ctx, identity.Value)
	switch {
	case err == nil && existing != nil:
		return nil, "", NewDuplicateIdentityError(identity.Kind)
	case err != nil && !HasTextCode(err, TextCodeIdentityNotFound):
		return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing account")
	}

	hash, err := s.hasher.HashPassword(msg.Password)
	if err != nil {
		if HasTextCode(err, TextCodeEmptyPassword) {
			return nil, "", NewValidationError("password", ErrNoEmptyString.Message, nil)
		}
		return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	now := s.now()
	record := &Account{
		Name:         msg.Name,
		PasswordHash: hash,
		Role:         AccountRole(msg.Role),
		Location:     ParseLocation(msg.Location),
		IsActive:     true,
		LastLogin:    &now,
		CreatedAt:    now,
	}

	if identity.Kind == IdentityEmail {
		record.Email = identity.Value
	} else {
		record.Phone = identity.Value
	}

	if record.Role == RoleNGO {
		record.NGODetails = &NGODetails{
			RegistrationID:  msg.NGOID,
			CertificatePath: msg.CertificatePath,
		}
	}

	if s.deterministicIDs {
		if id, err := hashid.NewUUID(identity.Value); err == nil {
			record.ID = id
		}
	}

	created, err := s.store.Create(ctx, record)
	if err != nil {
		if IsDuplicateIdentity(err) {
			return nil, "", NewDuplicateIdentityError(identity.Kind)
		}
		return nil, "", err
	}

	token, err := s.tokens.Issue(created.ID, created.Role)
	if err != nil {
		s.logger.Error("Register failed to issue token", "error", err)
		return nil, "", err
	}

	s.emit(ctx, ActivityEventRegisterSuccess, created, identity.Kind, "")

	return NewAccountView(created), token, nil
}

// Login verifies credentials and returns the account with a fresh token.
// Unknown identities and wrong passwords return the same error.
func (s *AccountService) Login(ctx context.Context, msg LoginAccountMessage) (*AccountView, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during login")
	default:
		return s.login(ctx, msg)
	}
}

func (s *AccountService) login(ctx context.Context, msg LoginAccountMessage) (*AccountView, string, error) {
	if err := msg.Validate(); err != nil {
		return nil, "", err
	}

	kind := IdentityEmail
	if !IsEmail(msg.EmailOrPhone) {
		kind = IdentityPhone
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	acct, err := s.store.FindByIdentity(ctx, msg.EmailOrPhone, WithSecret())
	if err != nil {
		if HasTextCode(err, TextCodeIdentityNotFound) {
			s.emit(ctx, ActivityEventLoginFailure, nil, kind, "unknown_identity")
			return nil, "", ErrInvalidCredentials
		}
		s.logger.Error("Login failed to find account", "error", err)
		return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during login")
	}

	if err := s.policy.Refresh(ctx, acct); err != nil {
		return nil, "", err
	}

	if s.policy.IsLocked(acct) {
		s.emit(ctx, ActivityEventLoginFailure, acct, kind, "locked")
		return nil, "", ErrAccountLocked
	}

	if !acct.IsActive {
		s.emit(ctx, ActivityEventLoginFailure, acct, kind, "deactivated")
		return nil, "", ErrAccountDeactivated
	}

	if err := s.hasher.ComparePasswordAndHash(msg.Password, acct.PasswordHash); err != nil {
		locked, trackErr := s.policy.RecordFailure(ctx, acct)
		if trackErr != nil {
			s.logger.Error("Login failed to track attempt", "error", trackErr)
			return nil, "", trackErr
		}

		s.emit(ctx, ActivityEventLoginFailure, acct, kind, "invalid_credentials")

		if locked {
			s.logger.Warn("Account locked after failed logins", "account_id", acct.ID.String())
			s.emit(ctx, ActivityEventAccountLocked, acct, kind, "")
			return nil, "", ErrAccountLocked
		}

		return nil, "", ErrInvalidCredentials
	}

	if err := s.policy.RecordSuccess(ctx, acct); err != nil {
		s.logger.Error("failed to track successful login", "error", err)
	}

	now := s.now()
	updated, err := s.store.Update(ctx, acct.ID, AccountPatch{LastLogin: &now})
	if err != nil {
		return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record last login")
	}

	token, err := s.tokens.Issue(updated.ID, updated.Role)
	if err != nil {
		s.logger.Error("Login failed to issue token", "error", err)
		return nil, "", err
	}

	s.emit(ctx, ActivityEventLoginSuccess, updated, kind, "")

	return NewAccountView(updated), token, nil
}

// Profile returns the account view for id
func (s *AccountService) Profile(ctx context.Context, id uuid.UUID) (*AccountView, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	acct, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return NewAccountView(acct), nil
}

// UpdateProfile changes the name and location of an account
func (s *AccountService) UpdateProfile(ctx context.Context, id uuid.UUID, msg UpdateProfileMessage) (*AccountView, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	patch := AccountPatch{}
	if msg.Name != nil {
		name := strings.TrimSpace(*msg.Name)
		if name != "" {
			patch.Name = &name
		}
	}
	if msg.Location != nil {
		loc := ParseLocation(*msg.Location)
		patch.Location = &loc
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if !patch.IsEmpty() {
		s.emit(ctx, ActivityEventProfileUpdated, updated, "", "")
	}

	return NewAccountView(updated), nil
}

func (s *AccountService) emit(ctx context.Context, eventType ActivityEventType, acct *Account, kind IdentityKind, reason string) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType:    eventType,
		IdentityKind: kind,
		Reason:       reason,
		Metadata:     map[string]any{},
		OccurredAt:   s.now(),
	}

	if acct != nil {
		event.AccountID = acct.ID.String()
		event.Role = acct.Role
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error", "error", err)
	}
}
