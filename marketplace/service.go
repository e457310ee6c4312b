package marketplace

import (
	"context"
	"time"

	"github.com/google/uuid"
	auth "github.com/hungerlink/go-auth"
)

// Service runs donation and request operations for authenticated actors
type Service struct {
	donations Donations
	requests  Requests
	logger    auth.Logger
	timeout   time.Duration
}

func NewService(donations Donations, requests Requests) *Service {
	return &Service{
		donations: donations,
		requests:  requests,
		logger:    auth.DefaultLogger(),
		timeout:   auth.DefaultOperationTimeout,
	}
}

func (s *Service) WithLogger(logger auth.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *Service) WithTimeout(timeout time.Duration) *Service {
	if timeout > 0 {
		s.timeout = timeout
	}
	return s
}

func (s *Service) CreateDonation(ctx context.Context, actor Actor, msg CreateDonationMessage) (*Donation, error) {
	msg = msg.Normalize()
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.donations.Create(ctx, &Donation{
		OwnerID:    actor.ID,
		FoodType:   msg.FoodType,
		Quantity:   msg.Quantity,
		ExpiryTime: msg.ExpiryTime,
		Location:   auth.ParseLocation(msg.Location),
		Photo:      msg.Photo,
		AIQuality:  Quality(msg.AIQuality),
	})
}

func (s *Service) MyDonations(ctx context.Context, actor Actor) ([]*Donation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.donations.ListByOwner(ctx, actor.ID)
}

func (s *Service) ListDonations(ctx context.Context, opts ListOptions) ([]*Donation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.donations.List(ctx, opts)
}

// UpdateDonation applies a patch. Owners may change any field. Other
// accounts may only claim an available donation for themselves, and only
// when their role can claim.
func (s *Service) UpdateDonation(ctx context.Context, actor Actor, id uuid.UUID, msg UpdateDonationMessage) (*Donation, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	patch := msg.Patch()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	current, err := s.donations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if current.OwnerID == actor.ID {
		return s.donations.Update(ctx, id, patch)
	}

	if !isClaim(patch, actor) || !actor.Role.CanClaimDonations() {
		s.logger.Info("donation update rejected", "donation_id", id.String(), "actor", actor.ID.String())
		return nil, ErrForbidden
	}

	return s.donations.Claim(ctx, id, actor.ID)
}

func isClaim(patch DonationPatch, actor Actor) bool {
	if patch.Status == nil || *patch.Status != DonationClaimed || patch.AIQuality != nil {
		return false
	}
	return patch.ClaimedBy == nil || *patch.ClaimedBy == actor.ID
}

func (s *Service) CreateRequest(ctx context.Context, actor Actor, msg CreateRequestMessage) (*Request, error) {
	msg = msg.Normalize()
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	requesterType := RequesterType(msg.RequesterType)
	if requesterType == "" {
		requesterType = RequesterTypeFor(actor.Role)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.requests.Create(ctx, &Request{
		OwnerID:       actor.ID,
		FoodNeeded:    msg.FoodNeeded,
		Quantity:      msg.Quantity,
		Location:      auth.ParseLocation(msg.Location),
		Distance:      msg.Distance,
		RequesterName: msg.RequesterName,
		RequesterType: requesterType,
	})
}

func (s *Service) MyRequests(ctx context.Context, actor Actor) ([]*Request, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.requests.ListByOwner(ctx, actor.ID)
}

func (s *Service) ListRequests(ctx context.Context, opts ListOptions) ([]*Request, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.requests.List(ctx, opts)
}

// UpdateRequest changes the status of a request. Owners may set any
// status, other accounts may only accept an open request. Acceptance is a
// conditional write, so concurrent acceptors see ErrRequestUnavailable.
func (s *Service) UpdateRequest(ctx context.Context, actor Actor, id uuid.UUID, msg UpdateRequestMessage) (*Request, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	patch := msg.Patch()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	current, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if current.OwnerID == actor.ID {
		return s.requests.Update(ctx, id, patch)
	}

	if patch.Status == nil || *patch.Status != RequestAccepted {
		s.logger.Info("request update rejected", "request_id", id.String(), "actor", actor.ID.String())
		return nil, ErrForbidden
	}
	return s.requests.Accept(ctx, id)
}
