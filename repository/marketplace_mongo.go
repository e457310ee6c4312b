package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/hungerlink/go-auth/marketplace"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type donationDocument struct {
	ID         string           `bson:"_id"`
	OwnerID    string           `bson:"user"`
	FoodType   string           `bson:"food_type"`
	Quantity   string           `bson:"quantity"`
	ExpiryTime string           `bson:"expiry_time"`
	Location   locationDocument `bson:"location"`
	Photo      string           `bson:"photo,omitempty"`
	Status     string           `bson:"status"`
	AIQuality  string           `bson:"ai_quality,omitempty"`
	ClaimedBy  string           `bson:"claimed_by,omitempty"`
	CreatedAt  time.Time        `bson:"created_at"`
	UpdatedAt  time.Time        `bson:"updated_at"`
}

func toDonationDocument(d *marketplace.Donation) donationDocument {
	doc := donationDocument{
		ID:         d.ID.String(),
		OwnerID:    d.OwnerID.String(),
		FoodType:   d.FoodType,
		Quantity:   d.Quantity,
		ExpiryTime: d.ExpiryTime,
		Location:   toLocationDocument(d.Location),
		Photo:      d.Photo,
		Status:     string(d.Status),
		AIQuality:  string(d.AIQuality),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	if d.ClaimedBy != nil {
		doc.ClaimedBy = d.ClaimedBy.String()
	}
	return doc
}

func (d donationDocument) donation() *marketplace.Donation {
	out := &marketplace.Donation{
		ID:         uuid.MustParse(d.ID),
		OwnerID:    uuid.MustParse(d.OwnerID),
		FoodType:   d.FoodType,
		Quantity:   d.Quantity,
		ExpiryTime: d.ExpiryTime,
		Location:   d.Location.location(),
		Photo:      d.Photo,
		Status:     marketplace.DonationStatus(d.Status),
		AIQuality:  marketplace.Quality(d.AIQuality),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	if id, err := uuid.Parse(d.ClaimedBy); err == nil {
		out.ClaimedBy = &id
	}
	return out
}

// DonationsMongo is the MongoDB implementation of marketplace.Donations
type DonationsMongo struct {
	coll *mongo.Collection
	now  func() time.Time
}

var _ marketplace.Donations = (*DonationsMongo)(nil)

func NewDonationsMongo(db *mongo.Database) *DonationsMongo {
	return &DonationsMongo{coll: db.Collection(donationsCollection), now: time.Now}
}

func (r *DonationsMongo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

func (r *DonationsMongo) Create(ctx context.Context, record *marketplace.Donation) (*marketplace.Donation, error) {
	if record == nil {
		return nil, errors.New("donation must not be nil", errors.CategoryBadInput)
	}

	marketplace.PrepareDonationDefaults(record, r.now())

	if _, err := r.coll.InsertOne(ctx, toDonationDocument(record)); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to insert donation")
	}
	return record, nil
}

func (r *DonationsMongo) FindByID(ctx context.Context, id uuid.UUID) (*marketplace.Donation, error) {
	doc := donationDocument{}
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, readError(err, marketplace.ErrDonationNotFound, "failed to find donation")
	}
	return doc.donation(), nil
}

func (r *DonationsMongo) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*marketplace.Donation, error) {
	return r.find(ctx, bson.M{"user": owner.String()}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *DonationsMongo) List(ctx context.Context, opts marketplace.ListOptions) ([]*marketplace.Donation, error) {
	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = opts.Status
	}
	return r.find(ctx, filter, findOptions(opts))
}

func (r *DonationsMongo) find(ctx context.Context, filter any, opts *options.FindOptions) ([]*marketplace.Donation, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list donations")
	}

	docs := []donationDocument{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to decode donations")
	}

	out := make([]*marketplace.Donation, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.donation())
	}
	return out, nil
}

func (r *DonationsMongo) Update(ctx context.Context, id uuid.UUID, patch marketplace.DonationPatch) (*marketplace.Donation, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	set := bson.M{"updated_at": r.now()}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}
	if patch.AIQuality != nil {
		set["ai_quality"] = string(*patch.AIQuality)
	}
	if patch.ClaimedBy != nil {
		set["claimed_by"] = patch.ClaimedBy.String()
	}

	doc := donationDocument{}
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, readError(err, marketplace.ErrDonationNotFound, "failed to update donation")
	}
	return doc.donation(), nil
}

func (r *DonationsMongo) Claim(ctx context.Context, id uuid.UUID, claimer uuid.UUID) (*marketplace.Donation, error) {
	doc := donationDocument{}
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String(), "status": string(marketplace.DonationAvailable)},
		bson.M{"$set": bson.M{
			"status":     string(marketplace.DonationClaimed),
			"claimed_by": claimer.String(),
			"updated_at": r.now(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return doc.donation(), nil
	}

	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to claim donation")
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, marketplace.ErrDonationUnavailable
}

type requestDocument struct {
	ID            string           `bson:"_id"`
	OwnerID       string           `bson:"user"`
	FoodNeeded    string           `bson:"food_needed"`
	Quantity      string           `bson:"quantity"`
	Location      locationDocument `bson:"location"`
	Distance      string           `bson:"distance,omitempty"`
	RequesterName string           `bson:"requester_name,omitempty"`
	RequesterType string           `bson:"requester_type"`
	Status        string           `bson:"status"`
	CreatedAt     time.Time        `bson:"created_at"`
	UpdatedAt     time.Time        `bson:"updated_at"`
}

func toRequestDocument(r *marketplace.Request) requestDocument {
	return requestDocument{
		ID:            r.ID.String(),
		OwnerID:       r.OwnerID.String(),
		FoodNeeded:    r.FoodNeeded,
		Quantity:      r.Quantity,
		Location:      toLocationDocument(r.Location),
		Distance:      r.Distance,
		RequesterName: r.RequesterName,
		RequesterType: string(r.RequesterType),
		Status:        string(r.Status),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (d requestDocument) request() *marketplace.Request {
	return &marketplace.Request{
		ID:            uuid.MustParse(d.ID),
		OwnerID:       uuid.MustParse(d.OwnerID),
		FoodNeeded:    d.FoodNeeded,
		Quantity:      d.Quantity,
		Location:      d.Location.location(),
		Distance:      d.Distance,
		RequesterName: d.RequesterName,
		RequesterType: marketplace.RequesterType(d.RequesterType),
		Status:        marketplace.RequestStatus(d.Status),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// RequestsMongo is the MongoDB implementation of marketplace.Requests
type RequestsMongo struct {
	coll *mongo.Collection
	now  func() time.Time
}

var _ marketplace.Requests = (*RequestsMongo)(nil)

func NewRequestsMongo(db *mongo.Database) *RequestsMongo {
	return &RequestsMongo{coll: db.Collection(requestsCollection), now: time.Now}
}

func (r *RequestsMongo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}

func (r *RequestsMongo) Create(ctx context.Context, record *marketplace.Request) (*marketplace.Request, error) {
	if record == nil {
		return nil, errors.New("request must not be nil", errors.CategoryBadInput)
	}

	marketplace.PrepareRequestDefaults(record, r.now())

	if _, err := r.coll.InsertOne(ctx, toRequestDocument(record)); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to insert request")
	}
	return record, nil
}

func (r *RequestsMongo) FindByID(ctx context.Context, id uuid.UUID) (*marketplace.Request, error) {
	doc := requestDocument{}
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, readError(err, marketplace.ErrRequestNotFound, "failed to find request")
	}
	return doc.request(), nil
}

func (r *RequestsMongo) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*marketplace.Request, error) {
	return r.find(ctx, bson.M{"user": owner.String()}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *RequestsMongo) List(ctx context.Context, opts marketplace.ListOptions) ([]*marketplace.Request, error) {
	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = opts.Status
	}
	return r.find(ctx, filter, findOptions(opts))
}

func (r *RequestsMongo) find(ctx context.Context, filter any, opts *options.FindOptions) ([]*marketplace.Request, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list requests")
	}

	docs := []requestDocument{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to decode requests")
	}

	out := make([]*marketplace.Request, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.request())
	}
	return out, nil
}

func (r *RequestsMongo) Update(ctx context.Context, id uuid.UUID, patch marketplace.RequestPatch) (*marketplace.Request, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	doc := requestDocument{}
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"status": string(*patch.Status), "updated_at": r.now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, readError(err, marketplace.ErrRequestNotFound, "failed to update request")
	}
	return doc.request(), nil
}

func (r *RequestsMongo) Accept(ctx context.Context, id uuid.UUID) (*marketplace.Request, error) {
	doc := requestDocument{}
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String(), "status": string(marketplace.RequestOpen)},
		bson.M{"$set": bson.M{"status": string(marketplace.RequestAccepted), "updated_at": r.now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return doc.request(), nil
	}

	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to accept request")
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, marketplace.ErrRequestUnavailable
}

func findOptions(opts marketplace.ListOptions) *options.FindOptions {
	limit := opts.Limit
	if limit <= 0 || limit > marketplace.DefaultListLimit {
		limit = marketplace.DefaultListLimit
	}
	skip := opts.Offset
	if skip < 0 {
		skip = 0
	}
	return options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(skip))
}
