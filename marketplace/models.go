package marketplace

import (
	"time"

	"github.com/google/uuid"
	auth "github.com/hungerlink/go-auth"
	"github.com/uptrace/bun"
)

// DonationStatus tracks a donation from posting to pickup
type DonationStatus string

const (
	DonationAvailable DonationStatus = "available"
	DonationClaimed   DonationStatus = "claimed"
	DonationCompleted DonationStatus = "completed"
)

func (s DonationStatus) IsValid() bool {
	switch s {
	case DonationAvailable, DonationClaimed, DonationCompleted:
		return true
	}
	return false
}

// Quality is the freshness label attached to a donation photo
type Quality string

const (
	QualityFresh       Quality = "fresh"
	QualityCheck       Quality = "check"
	QualityNotSuitable Quality = "not-suitable"
)

func (q Quality) IsValid() bool {
	switch q {
	case QualityFresh, QualityCheck, QualityNotSuitable:
		return true
	}
	return false
}

// RequestStatus tracks a food request
type RequestStatus string

const (
	RequestOpen      RequestStatus = "open"
	RequestAccepted  RequestStatus = "accepted"
	RequestFulfilled RequestStatus = "fulfilled"
)

func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestOpen, RequestAccepted, RequestFulfilled:
		return true
	}
	return false
}

// RequesterType tells organisations and individuals apart
type RequesterType string

const (
	RequesterNGO        RequesterType = "ngo"
	RequesterIndividual RequesterType = "individual"
)

func (t RequesterType) IsValid() bool {
	return t == RequesterNGO || t == RequesterIndividual
}

// RequesterTypeFor derives the requester type from an account role
func RequesterTypeFor(role auth.AccountRole) RequesterType {
	if role == auth.RoleNGO {
		return RequesterNGO
	}
	return RequesterIndividual
}

// Donation is surplus food posted by a donor
type Donation struct {
	bun.BaseModel `bun:"table:donations,alias:don"`
	ID            uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	OwnerID       uuid.UUID      `bun:"owner_id,type:uuid,notnull" json:"user"`
	FoodType      string         `bun:"food_type,notnull" json:"foodType"`
	Quantity      string         `bun:"quantity,notnull" json:"quantity"`
	ExpiryTime    string         `bun:"expiry_time,notnull" json:"expiryTime"`
	Location      auth.Location  `bun:"embed:location_" json:"location"`
	Photo         string         `bun:"photo,nullzero" json:"photo,omitempty"`
	Status        DonationStatus `bun:"status,notnull" json:"status"`
	AIQuality     Quality        `bun:"ai_quality,nullzero" json:"aiQuality,omitempty"`
	ClaimedBy     *uuid.UUID     `bun:"claimed_by,type:uuid" json:"claimedBy,omitempty"`
	CreatedAt     time.Time      `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt     time.Time      `bun:"updated_at,notnull" json:"updatedAt"`
}

// Request is a food need posted by a recipient or an NGO
type Request struct {
	bun.BaseModel `bun:"table:requests,alias:req"`
	ID            uuid.UUID     `bun:"id,pk,type:uuid" json:"id"`
	OwnerID       uuid.UUID     `bun:"owner_id,type:uuid,notnull" json:"user"`
	FoodNeeded    string        `bun:"food_needed,notnull" json:"foodNeeded"`
	Quantity      string        `bun:"quantity,notnull" json:"quantity"`
	Location      auth.Location `bun:"embed:location_" json:"location"`
	Distance      string        `bun:"distance,nullzero" json:"distance,omitempty"`
	RequesterName string        `bun:"requester_name,nullzero" json:"requesterName,omitempty"`
	RequesterType RequesterType `bun:"requester_type,notnull" json:"requesterType"`
	Status        RequestStatus `bun:"status,notnull" json:"status"`
	CreatedAt     time.Time     `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt     time.Time     `bun:"updated_at,notnull" json:"updatedAt"`
}

// DonationView is the public donation shape
type DonationView struct {
	ID         string            `json:"id"`
	User       string            `json:"user"`
	FoodType   string            `json:"foodType"`
	Quantity   string            `json:"quantity"`
	ExpiryTime string            `json:"expiryTime"`
	Location   auth.LocationView `json:"location"`
	Photo      string            `json:"photo,omitempty"`
	Status     DonationStatus    `json:"status"`
	AIQuality  Quality           `json:"aiQuality,omitempty"`
	ClaimedBy  string            `json:"claimedBy,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

func NewDonationView(d *Donation) *DonationView {
	if d == nil {
		return nil
	}
	view := &DonationView{
		ID:         d.ID.String(),
		User:       d.OwnerID.String(),
		FoodType:   d.FoodType,
		Quantity:   d.Quantity,
		ExpiryTime: d.ExpiryTime,
		Location:   auth.NewLocationView(d.Location),
		Photo:      d.Photo,
		Status:     d.Status,
		AIQuality:  d.AIQuality,
		CreatedAt:  d.CreatedAt,
	}
	if d.ClaimedBy != nil {
		view.ClaimedBy = d.ClaimedBy.String()
	}
	return view
}

func NewDonationViews(records []*Donation) []*DonationView {
	out := make([]*DonationView, 0, len(records))
	for _, d := range records {
		out = append(out, NewDonationView(d))
	}
	return out
}

// RequestView is the public request shape
type RequestView struct {
	ID            string            `json:"id"`
	User          string            `json:"user"`
	FoodNeeded    string            `json:"foodNeeded"`
	Quantity      string            `json:"quantity"`
	Location      auth.LocationView `json:"location"`
	Distance      string            `json:"distance,omitempty"`
	RequesterName string            `json:"requesterName,omitempty"`
	RequesterType RequesterType     `json:"requesterType"`
	Status        RequestStatus     `json:"status"`
	CreatedAt     time.Time         `json:"createdAt"`
}

func NewRequestView(r *Request) *RequestView {
	if r == nil {
		return nil
	}
	return &RequestView{
		ID:            r.ID.String(),
		User:          r.OwnerID.String(),
		FoodNeeded:    r.FoodNeeded,
		Quantity:      r.Quantity,
		Location:      auth.NewLocationView(r.Location),
		Distance:      r.Distance,
		RequesterName: r.RequesterName,
		RequesterType: r.RequesterType,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
	}
}

func NewRequestViews(records []*Request) []*RequestView {
	out := make([]*RequestView, 0, len(records))
	for _, r := range records {
		out = append(out, NewRequestView(r))
	}
	return out
}

// PrepareDonationDefaults fills ID, status and timestamps before insert
func PrepareDonationDefaults(d *Donation, now time.Time) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = DonationAvailable
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
}

// PrepareRequestDefaults fills ID, status and timestamps before insert
func PrepareRequestDefaults(r *Request, now time.Time) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = RequestOpen
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
}
