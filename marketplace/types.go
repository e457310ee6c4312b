package marketplace

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	auth "github.com/hungerlink/go-auth"
)

const (
	TextCodeDonationNotFound = "DONATION_NOT_FOUND"
	TextCodeRequestNotFound  = "REQUEST_NOT_FOUND"
	TextCodeForbidden        = "MARKETPLACE_FORBIDDEN"
	TextCodeInvalidID        = "INVALID_ID"
	TextCodeUnavailable      = "DONATION_UNAVAILABLE"
	TextCodeRequestTaken     = "REQUEST_UNAVAILABLE"
)

var ErrDonationNotFound = goerrors.New("Donation not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeDonationNotFound).
	WithCode(goerrors.CodeNotFound)

var ErrRequestNotFound = goerrors.New("Request not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeRequestNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrForbidden is returned when the actor may not change a record
var ErrForbidden = goerrors.New("You are not allowed to modify this record", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrDonationUnavailable is returned when claiming a donation that is
// no longer available
var ErrDonationUnavailable = goerrors.New("Donation is no longer available", goerrors.CategoryConflict).
	WithTextCode(TextCodeUnavailable).
	WithCode(goerrors.CodeConflict)

// ErrRequestUnavailable is returned when accepting a request that is no
// longer open
var ErrRequestUnavailable = goerrors.New("Request is no longer open", goerrors.CategoryConflict).
	WithTextCode(TextCodeRequestTaken).
	WithCode(goerrors.CodeConflict)

var ErrInvalidID = goerrors.New("Invalid id", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidID).
	WithCode(goerrors.CodeBadRequest)

// Actor is the authenticated account acting on the marketplace
type Actor struct {
	ID   uuid.UUID
	Role auth.AccountRole
}

// ListOptions filters public listings
type ListOptions struct {
	Status string
	Limit  int
	Offset int
}

// DefaultListLimit caps public listings
const DefaultListLimit = 100

func (o ListOptions) limit() int {
	if o.Limit <= 0 || o.Limit > DefaultListLimit {
		return DefaultListLimit
	}
	return o.Limit
}

func (o ListOptions) offset() int {
	if o.Offset < 0 {
		return 0
	}
	return o.Offset
}

// DonationPatch lists the mutable donation fields. Nil means unchanged.
type DonationPatch struct {
	Status    *DonationStatus
	AIQuality *Quality
	ClaimedBy *uuid.UUID
}

func (p DonationPatch) IsEmpty() bool {
	return p.Status == nil && p.AIQuality == nil && p.ClaimedBy == nil
}

// RequestPatch lists the mutable request fields
type RequestPatch struct {
	Status *RequestStatus
}

func (p RequestPatch) IsEmpty() bool {
	return p.Status == nil
}

// Donations is the donation store contract
type Donations interface {
	Create(ctx context.Context, record *Donation) (*Donation, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Donation, error)
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]*Donation, error)
	List(ctx context.Context, opts ListOptions) ([]*Donation, error)
	Update(ctx context.Context, id uuid.UUID, patch DonationPatch) (*Donation, error)
	// Claim marks an available donation as claimed by claimer in one
	// conditional write.
	Claim(ctx context.Context, id uuid.UUID, claimer uuid.UUID) (*Donation, error)
}

// Requests is the request store contract
type Requests interface {
	Create(ctx context.Context, record *Request) (*Request, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Request, error)
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]*Request, error)
	List(ctx context.Context, opts ListOptions) ([]*Request, error)
	Update(ctx context.Context, id uuid.UUID, patch RequestPatch) (*Request, error)
	// Accept moves an open request to accepted in one conditional write.
	Accept(ctx context.Context, id uuid.UUID) (*Request, error)
}
