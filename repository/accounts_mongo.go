package repository

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	auth "github.com/hungerlink/go-auth"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ngoDocument struct {
	RegistrationID  string `bson:"registration_id"`
	CertificatePath string `bson:"certificate_path,omitempty"`
	IsVerified      bool   `bson:"is_verified"`
}

type accountDocument struct {
	ID              string           `bson:"_id"`
	Name            string           `bson:"name"`
	Email           string           `bson:"email,omitempty"`
	Phone           string           `bson:"phone,omitempty"`
	PasswordHash    string           `bson:"password_hash"`
	Role            string           `bson:"role"`
	Location        locationDocument `bson:"location"`
	NGODetails      *ngoDocument     `bson:"ngo_details,omitempty"`
	IsActive        bool             `bson:"is_active"`
	IsPhoneVerified bool             `bson:"is_phone_verified"`
	LoginAttempts   int              `bson:"login_attempts"`
	LockUntil       *time.Time       `bson:"lock_until,omitempty"`
	LastLogin       *time.Time       `bson:"last_login,omitempty"`
	CreatedAt       time.Time        `bson:"created_at"`
	UpdatedAt       time.Time        `bson:"updated_at"`
}

func toAccountDocument(a *auth.Account) accountDocument {
	doc := accountDocument{
		ID:              a.ID.String(),
		Name:            a.Name,
		Email:           a.Email,
		Phone:           a.Phone,
		PasswordHash:    a.PasswordHash,
		Role:            a.Role.String(),
		Location:        toLocationDocument(a.Location),
		IsActive:        a.IsActive,
		IsPhoneVerified: a.IsPhoneVerified,
		LoginAttempts:   a.LoginAttempts,
		LockUntil:       a.LockUntil,
		LastLogin:       a.LastLogin,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.NGODetails != nil {
		doc.NGODetails = &ngoDocument{
			RegistrationID:  a.NGODetails.RegistrationID,
			CertificatePath: a.NGODetails.CertificatePath,
			IsVerified:      a.NGODetails.IsVerified,
		}
	}
	return doc
}

func (d accountDocument) account(opts ...auth.FindOption) (*auth.Account, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "stored account has an invalid id")
	}

	a := &auth.Account{
		ID:              id,
		Name:            d.Name,
		Email:           d.Email,
		Phone:           d.Phone,
		Role:            auth.AccountRole(d.Role),
		Location:        d.Location.location(),
		IsActive:        d.IsActive,
		IsPhoneVerified: d.IsPhoneVerified,
		LoginAttempts:   d.LoginAttempts,
		LockUntil:       d.LockUntil,
		LastLogin:       d.LastLogin,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}

	if d.NGODetails != nil {
		a.NGODetails = &auth.NGODetails{
			RegistrationID:  d.NGODetails.RegistrationID,
			CertificatePath: d.NGODetails.CertificatePath,
			IsVerified:      d.NGODetails.IsVerified,
		}
	}

	if auth.ResolveFindOptions(opts...).WithSecret {
		a.PasswordHash = d.PasswordHash
	}

	return a, nil
}

// AccountsMongo is the MongoDB implementation of auth.Accounts
type AccountsMongo struct {
	coll *mongo.Collection
	now  func() time.Time
}

var _ auth.Accounts = (*AccountsMongo)(nil)

func NewAccountsMongo(db *mongo.Database) *AccountsMongo {
	return &AccountsMongo{coll: db.Collection(accountsCollection), now: time.Now}
}

func (r *AccountsMongo) WithClock(now func() time.Time) *AccountsMongo {
	if now != nil {
		r.now = now
	}
	return r
}

// EnsureIndexes creates the unique identity indexes. Sparse so accounts
// without an email or phone do not collide on the missing field.
func (r *AccountsMongo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("accounts_email_unique"),
		},
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("accounts_phone_unique"),
		},
	})
	return err
}

func (r *AccountsMongo) FindByIdentity(ctx context.Context, identity string, opts ...auth.FindOption) (*auth.Account, error) {
	value := auth.NormalizeIdentityValue(identity)
	if value == "" {
		return nil, auth.ErrIdentityNotFound
	}

	filter := bson.M{"$or": bson.A{
		bson.M{"email": value},
		bson.M{"phone": value},
	}}

	return r.findOne(ctx, filter, "failed to find account by identity", opts...)
}

func (r *AccountsMongo) FindByID(ctx context.Context, id uuid.UUID, opts ...auth.FindOption) (*auth.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()}, "failed to find account by id", opts...)
}

func (r *AccountsMongo) findOne(ctx context.Context, filter any, msg string, opts ...auth.FindOption) (*auth.Account, error) {
	doc := accountDocument{}
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, readError(err, auth.ErrIdentityNotFound, msg)
	}
	return doc.account(opts...)
}

func (r *AccountsMongo) Create(ctx context.Context, record *auth.Account) (*auth.Account, error) {
	if record == nil {
		return nil, errors.New("account must not be nil", errors.CategoryBadInput)
	}

	auth.PrepareAccountDefaults(record, r.now())

	if err := record.Validate(); err != nil {
		return nil, err
	}

	if _, err := r.coll.InsertOne(ctx, toAccountDocument(record)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, auth.NewDuplicateIdentityError(duplicateKind(err))
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to insert account")
	}

	out := *record
	out.PasswordHash = ""
	return &out, nil
}

func (r *AccountsMongo) Update(ctx context.Context, id uuid.UUID, patch auth.AccountPatch) (*auth.Account, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	set := bson.M{"updated_at": r.now()}
	if patch.Name != nil {
		set["name"] = strings.TrimSpace(*patch.Name)
	}
	if patch.Location != nil {
		set["location"] = toLocationDocument(*patch.Location)
	}
	if patch.LastLogin != nil {
		set["last_login"] = *patch.LastLogin
	}
	if patch.IsActive != nil {
		set["is_active"] = *patch.IsActive
	}

	return r.findOneAndUpdate(ctx, id, bson.M{"$set": set}, "failed to update account")
}

// IncrementLoginAttempts runs a pipeline update so the counter and the lock
// are computed from the stored value in one write.
func (r *AccountsMongo) IncrementLoginAttempts(ctx context.Context, id uuid.UUID, threshold int, lockUntil time.Time) (*auth.Account, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "login_attempts", Value: bson.D{{Key: "$add", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$login_attempts", 0}}}, 1,
			}}}},
			{Key: "updated_at", Value: r.now()},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "lock_until", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$gte", Value: bson.A{"$login_attempts", threshold}}},
				lockUntil,
				"$lock_until",
			}}}},
		}}},
	}

	return r.findOneAndUpdate(ctx, id, pipeline, "failed to track login attempt")
}

func (r *AccountsMongo) ResetLoginAttempts(ctx context.Context, id uuid.UUID) (*auth.Account, error) {
	update := bson.M{
		"$set":   bson.M{"login_attempts": 0, "updated_at": r.now()},
		"$unset": bson.M{"lock_until": ""},
	}
	return r.findOneAndUpdate(ctx, id, update, "failed to reset login attempts")
}

func (r *AccountsMongo) ReleaseExpiredLock(ctx context.Context, id uuid.UUID, now time.Time) (*auth.Account, error) {
	doc := accountDocument{}
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String(), "lock_until": bson.M{"$lte": now}},
		bson.M{
			"$set":   bson.M{"login_attempts": 0, "updated_at": r.now()},
			"$unset": bson.M{"lock_until": ""},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return r.FindByID(ctx, id)
	}
	if err != nil {
		return nil, readError(err, auth.ErrIdentityNotFound, "failed to release expired lock")
	}
	return doc.account()
}

func (r *AccountsMongo) findOneAndUpdate(ctx context.Context, id uuid.UUID, update any, msg string) (*auth.Account, error) {
	doc := accountDocument{}
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String()},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, readError(err, auth.ErrIdentityNotFound, msg)
	}
	return doc.account()
}

func duplicateKind(err error) auth.IdentityKind {
	if strings.Contains(err.Error(), "phone") {
		return auth.IdentityPhone
	}
	return auth.IdentityEmail
}
