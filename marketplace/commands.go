package marketplace

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	auth "github.com/hungerlink/go-auth"
)

// CreateDonationMessage carries a new donation
type CreateDonationMessage struct {
	FoodType   string `form:"foodType" json:"foodType"`
	Quantity   string `form:"quantity" json:"quantity"`
	ExpiryTime string `form:"expiryTime" json:"expiryTime"`
	Location   string `form:"location" json:"location"`
	Photo      string `form:"photo" json:"photo"`
	AIQuality  string `form:"aiQuality" json:"aiQuality"`
}

func (e CreateDonationMessage) Type() string { return "donation.create" }

func (e CreateDonationMessage) Normalize() CreateDonationMessage {
	e.FoodType = strings.TrimSpace(e.FoodType)
	e.Quantity = strings.TrimSpace(e.Quantity)
	e.ExpiryTime = strings.TrimSpace(e.ExpiryTime)
	e.Location = strings.TrimSpace(e.Location)
	e.Photo = strings.TrimSpace(e.Photo)
	e.AIQuality = strings.ToLower(strings.TrimSpace(e.AIQuality))
	return e
}

func (e CreateDonationMessage) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.FoodType, validation.Required.Error("Food type is required")),
		validation.Field(&e.Quantity, validation.Required.Error("Quantity is required")),
		validation.Field(&e.ExpiryTime, validation.Required.Error("Expiry time is required")),
		validation.Field(&e.Location, validation.Required.Error("Location is required")),
		validation.Field(&e.AIQuality,
			validation.In(string(QualityFresh), string(QualityCheck), string(QualityNotSuitable)).
				Error("AI quality must be fresh, check, or not-suitable"),
		),
	)
	return auth.AsValidationError(err, map[string]any{"aiQuality": e.AIQuality})
}

// UpdateDonationMessage carries a donation patch. Nil fields are unchanged.
type UpdateDonationMessage struct {
	Status    *string `json:"status"`
	AIQuality *string `json:"aiQuality"`
	ClaimedBy *string `json:"claimedBy"`
}

func (e UpdateDonationMessage) Type() string { return "donation.update" }

func (e UpdateDonationMessage) Validate() error {
	err := validation.Errors{
		"status": validation.Validate(deref(e.Status),
			validation.In(string(DonationAvailable), string(DonationClaimed), string(DonationCompleted)).
				Error("Status must be available, claimed, or completed"),
		),
		"aiQuality": validation.Validate(deref(e.AIQuality),
			validation.In(string(QualityFresh), string(QualityCheck), string(QualityNotSuitable)).
				Error("AI quality must be fresh, check, or not-suitable"),
		),
		"claimedBy": validation.Validate(deref(e.ClaimedBy), validation.By(validUUID)),
	}.Filter()
	return auth.AsValidationError(err, nil)
}

// Patch converts the message. Call Validate first.
func (e UpdateDonationMessage) Patch() DonationPatch {
	patch := DonationPatch{}
	if s := deref(e.Status); s != "" {
		status := DonationStatus(s)
		patch.Status = &status
	}
	if q := deref(e.AIQuality); q != "" {
		quality := Quality(q)
		patch.AIQuality = &quality
	}
	if c := deref(e.ClaimedBy); c != "" {
		if id, err := uuid.Parse(c); err == nil {
			patch.ClaimedBy = &id
		}
	}
	return patch
}

// CreateRequestMessage carries a new food request
type CreateRequestMessage struct {
	FoodNeeded    string `form:"foodNeeded" json:"foodNeeded"`
	Quantity      string `form:"quantity" json:"quantity"`
	Location      string `form:"location" json:"location"`
	Distance      string `form:"distance" json:"distance"`
	RequesterName string `form:"requesterName" json:"requesterName"`
	RequesterType string `form:"requesterType" json:"requesterType"`
}

func (e CreateRequestMessage) Type() string { return "request.create" }

func (e CreateRequestMessage) Normalize() CreateRequestMessage {
	e.FoodNeeded = strings.TrimSpace(e.FoodNeeded)
	e.Quantity = strings.TrimSpace(e.Quantity)
	e.Location = strings.TrimSpace(e.Location)
	e.Distance = strings.TrimSpace(e.Distance)
	e.RequesterName = strings.TrimSpace(e.RequesterName)
	e.RequesterType = strings.ToLower(strings.TrimSpace(e.RequesterType))
	return e
}

func (e CreateRequestMessage) Validate() error {
	err := validation.ValidateStruct(&e,
		validation.Field(&e.FoodNeeded, validation.Required.Error("Food needed is required")),
		validation.Field(&e.Quantity, validation.Required.Error("Quantity is required")),
		validation.Field(&e.Location, validation.Required.Error("Location is required")),
		validation.Field(&e.RequesterType,
			validation.In(string(RequesterNGO), string(RequesterIndividual)).
				Error("Requester type must be ngo or individual"),
		),
	)
	return auth.AsValidationError(err, map[string]any{"requesterType": e.RequesterType})
}

// UpdateRequestMessage carries a request status change
type UpdateRequestMessage struct {
	Status *string `json:"status"`
}

func (e UpdateRequestMessage) Type() string { return "request.update" }

func (e UpdateRequestMessage) Validate() error {
	err := validation.Errors{
		"status": validation.Validate(deref(e.Status),
			validation.In(string(RequestOpen), string(RequestAccepted), string(RequestFulfilled)).
				Error("Status must be open, accepted, or fulfilled"),
		),
	}.Filter()
	return auth.AsValidationError(err, nil)
}

func (e UpdateRequestMessage) Patch() RequestPatch {
	patch := RequestPatch{}
	if s := deref(e.Status); s != "" {
		status := RequestStatus(s)
		patch.Status = &status
	}
	return patch
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func validUUID(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return errors.New("must be a valid id")
	}
	return nil
}
