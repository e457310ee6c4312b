package marketplace_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	auth "github.com/hungerlink/go-auth"
	"github.com/hungerlink/go-auth/marketplace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := auth.OpenDB(auth.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, marketplace.CreateTables(context.Background(), db))
	return db
}

type fixture struct {
	donations *marketplace.DonationsRepository
	requests  *marketplace.RequestsRepository
	service   *marketplace.Service

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	tick := func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.now = f.now.Add(time.Second)
		return f.now
	}

	db := newTestDB(t)
	f.donations = marketplace.NewDonationsRepository(db).WithClock(tick)
	f.requests = marketplace.NewRequestsRepository(db).WithClock(tick)
	f.service = marketplace.NewService(f.donations, f.requests).WithTimeout(5 * time.Second)
	return f
}

func actor(role auth.AccountRole) marketplace.Actor {
	return marketplace.Actor{ID: uuid.New(), Role: role}
}

func rice() marketplace.CreateDonationMessage {
	return marketplace.CreateDonationMessage{
		FoodType:   " Cooked rice ",
		Quantity:   "20 plates",
		ExpiryTime: "2026-03-01T20:00:00Z",
		Location:   "Kothrud, Pune GPS: 18.50, 73.80",
		AIQuality:  "Fresh",
	}
}

func ptr(s string) *string { return &s }

func TestService_CreateDonation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	donor := actor(auth.RoleDonor)

	d, err := f.service.CreateDonation(ctx, donor, rice())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, d.ID)
	assert.Equal(t, donor.ID, d.OwnerID)
	assert.Equal(t, "Cooked rice", d.FoodType)
	assert.Equal(t, marketplace.DonationAvailable, d.Status)
	assert.Equal(t, marketplace.QualityFresh, d.AIQuality)
	assert.InDelta(t, 18.50, d.Location.Latitude, 1e-9)
	assert.Nil(t, d.ClaimedBy)

	found, err := f.donations.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.FoodType, found.FoodType)
	assert.Equal(t, "Kothrud, Pune GPS: 18.50, 73.80", found.Location.Address)
}

func TestService_CreateDonationValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		edit  func(*marketplace.CreateDonationMessage)
		field string
	}{
		{"missing food type", func(m *marketplace.CreateDonationMessage) { m.FoodType = "  " }, "foodType"},
		{"missing quantity", func(m *marketplace.CreateDonationMessage) { m.Quantity = "" }, "quantity"},
		{"missing expiry", func(m *marketplace.CreateDonationMessage) { m.ExpiryTime = "" }, "expiryTime"},
		{"missing location", func(m *marketplace.CreateDonationMessage) { m.Location = "" }, "location"},
		{"bad quality", func(m *marketplace.CreateDonationMessage) { m.AIQuality = "mouldy" }, "aiQuality"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := rice()
			tt.edit(&msg)

			_, err := f.service.CreateDonation(context.Background(), actor(auth.RoleDonor), msg)
			require.Error(t, err)
			assert.Equal(t, 400, auth.HTTPStatus(err))

			var verr *auth.ValidationError
			require.ErrorAs(t, err, &verr)
			require.NotEmpty(t, verr.Fields)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}
}

func TestService_MyAndListDonations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	donor := actor(auth.RoleDonor)
	other := actor(auth.RoleDonor)

	for i := 0; i < 3; i++ {
		_, err := f.service.CreateDonation(ctx, donor, rice())
		require.NoError(t, err)
	}
	theirs, err := f.service.CreateDonation(ctx, other, rice())
	require.NoError(t, err)

	mine, err := f.service.MyDonations(ctx, donor)
	require.NoError(t, err)
	assert.Len(t, mine, 3)
	for _, d := range mine {
		assert.Equal(t, donor.ID, d.OwnerID)
	}

	all, err := f.service.ListDonations(ctx, marketplace.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, theirs.ID, all[0].ID, "newest first")

	page, err := f.service.ListDonations(ctx, marketplace.ListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	recipient := actor(auth.RoleRecipient)
	_, err = f.service.UpdateDonation(ctx, recipient, theirs.ID, marketplace.UpdateDonationMessage{Status: ptr("claimed")})
	require.NoError(t, err)

	available, err := f.service.ListDonations(ctx, marketplace.ListOptions{Status: "available"})
	require.NoError(t, err)
	assert.Len(t, available, 3)

	claimed, err := f.service.ListDonations(ctx, marketplace.ListOptions{Status: "claimed"})
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, theirs.ID, claimed[0].ID)
}

func TestService_OwnerUpdatesDonation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	donor := actor(auth.RoleDonor)

	d, err := f.service.CreateDonation(ctx, donor, rice())
	require.NoError(t, err)

	updated, err := f.service.UpdateDonation(ctx, donor, d.ID, marketplace.UpdateDonationMessage{
		Status:    ptr("completed"),
		AIQuality: ptr("check"),
	})
	require.NoError(t, err)
	assert.Equal(t, marketplace.DonationCompleted, updated.Status)
	assert.Equal(t, marketplace.QualityCheck, updated.AIQuality)
	assert.True(t, updated.UpdatedAt.After(d.UpdatedAt))

	_, err = f.service.UpdateDonation(ctx, donor, d.ID, marketplace.UpdateDonationMessage{Status: ptr("eaten")})
	require.Error(t, err)
	assert.Equal(t, 400, auth.HTTPStatus(err))

	_, err = f.service.UpdateDonation(ctx, donor, d.ID, marketplace.UpdateDonationMessage{ClaimedBy: ptr("not-an-id")})
	require.Error(t, err)
	assert.Equal(t, 400, auth.HTTPStatus(err))

	_, err = f.service.UpdateDonation(ctx, donor, uuid.New(), marketplace.UpdateDonationMessage{Status: ptr("completed")})
	assert.ErrorIs(t, err, marketplace.ErrDonationNotFound)
	assert.Equal(t, 404, auth.HTTPStatus(err))
}

func TestService_ClaimDonation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	donor := actor(auth.RoleDonor)

	d, err := f.service.CreateDonation(ctx, donor, rice())
	require.NoError(t, err)

	ngo := actor(auth.RoleNGO)
	claimed, err := f.service.UpdateDonation(ctx, ngo, d.ID, marketplace.UpdateDonationMessage{
		Status:    ptr("claimed"),
		ClaimedBy: ptr(ngo.ID.String()),
	})
	require.NoError(t, err)
	assert.Equal(t, marketplace.DonationClaimed, claimed.Status)
	require.NotNil(t, claimed.ClaimedBy)
	assert.Equal(t, ngo.ID, *claimed.ClaimedBy)

	recipient := actor(auth.RoleRecipient)
	_, err = f.service.UpdateDonation(ctx, recipient, d.ID, marketplace.UpdateDonationMessage{Status: ptr("claimed")})
	require.ErrorIs(t, err, marketplace.ErrDonationUnavailable)
	assert.Equal(t, 409, auth.HTTPStatus(err))

	found, err := f.donations.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, ngo.ID, *found.ClaimedBy)
}

func TestService_ClaimRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	donor := actor(auth.RoleDonor)

	d, err := f.service.CreateDonation(ctx, donor, rice())
	require.NoError(t, err)

	recipient := actor(auth.RoleRecipient)

	tests := []struct {
		name  string
		actor marketplace.Actor
		msg   marketplace.UpdateDonationMessage
	}{
		{"donor cannot claim", actor(auth.RoleDonor), marketplace.UpdateDonationMessage{Status: ptr("claimed")}},
		{"claim for someone else", recipient, marketplace.UpdateDonationMessage{Status: ptr("claimed"), ClaimedBy: ptr(uuid.NewString())}},
		{"complete another donation", recipient, marketplace.UpdateDonationMessage{Status: ptr("completed")}},
		{"relabel quality", recipient, marketplace.UpdateDonationMessage{Status: ptr("claimed"), AIQuality: ptr("fresh")}},
		{"empty patch", recipient, marketplace.UpdateDonationMessage{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.UpdateDonation(ctx, tt.actor, d.ID, tt.msg)
			require.ErrorIs(t, err, marketplace.ErrForbidden)
			assert.Equal(t, 403, auth.HTTPStatus(err))
		})
	}

	found, err := f.donations.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.DonationAvailable, found.Status)
}

func TestService_ConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	d, err := f.service.CreateDonation(ctx, actor(auth.RoleDonor), rice())
	require.NoError(t, err)

	const claimers = 6
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		won    int
		missed int
	)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.UpdateDonation(ctx, actor(auth.RoleRecipient), d.ID, marketplace.UpdateDonationMessage{Status: ptr("claimed")})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case auth.HasTextCode(err, marketplace.TextCodeUnavailable):
				missed++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	assert.Equal(t, claimers-1, missed)
}

func TestService_Requests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ngo := actor(auth.RoleNGO)

	req, err := f.service.CreateRequest(ctx, ngo, marketplace.CreateRequestMessage{
		FoodNeeded:    "Dal and rice",
		Quantity:      "50 meals",
		Location:      "Hadapsar, Pune",
		Distance:      "5 km",
		RequesterName: "Food For All",
	})
	require.NoError(t, err)
	assert.Equal(t, marketplace.RequesterNGO, req.RequesterType, "derived from role")
	assert.Equal(t, marketplace.RequestOpen, req.Status)

	recipient := actor(auth.RoleRecipient)
	own, err := f.service.CreateRequest(ctx, recipient, marketplace.CreateRequestMessage{
		FoodNeeded:    "Bread",
		Quantity:      "2 loaves",
		Location:      "Aundh",
		RequesterType: "NGO",
	})
	require.NoError(t, err)
	assert.Equal(t, marketplace.RequesterNGO, own.RequesterType, "explicit type wins")

	_, err = f.service.CreateRequest(ctx, recipient, marketplace.CreateRequestMessage{
		FoodNeeded:    "Bread",
		Quantity:      "2",
		Location:      "Aundh",
		RequesterType: "company",
	})
	require.Error(t, err)
	assert.Equal(t, 400, auth.HTTPStatus(err))

	mine, err := f.service.MyRequests(ctx, ngo)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, req.ID, mine[0].ID)

	open, err := f.service.ListRequests(ctx, marketplace.ListOptions{Status: "open"})
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

func TestService_UpdateRequestRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := actor(auth.RoleRecipient)

	req, err := f.service.CreateRequest(ctx, owner, marketplace.CreateRequestMessage{
		FoodNeeded: "Milk",
		Quantity:   "10 litres",
		Location:   "Baner",
	})
	require.NoError(t, err)
	assert.Equal(t, marketplace.RequesterIndividual, req.RequesterType)

	donor := actor(auth.RoleDonor)

	_, err = f.service.UpdateRequest(ctx, donor, req.ID, marketplace.UpdateRequestMessage{Status: ptr("fulfilled")})
	require.ErrorIs(t, err, marketplace.ErrForbidden)

	accepted, err := f.service.UpdateRequest(ctx, donor, req.ID, marketplace.UpdateRequestMessage{Status: ptr("accepted")})
	require.NoError(t, err)
	assert.Equal(t, marketplace.RequestAccepted, accepted.Status)

	_, err = f.service.UpdateRequest(ctx, actor(auth.RoleDonor), req.ID, marketplace.UpdateRequestMessage{Status: ptr("accepted")})
	require.ErrorIs(t, err, marketplace.ErrRequestUnavailable, "only open requests can be accepted")
	assert.Equal(t, 409, auth.HTTPStatus(err))

	done, err := f.service.UpdateRequest(ctx, owner, req.ID, marketplace.UpdateRequestMessage{Status: ptr("fulfilled")})
	require.NoError(t, err)
	assert.Equal(t, marketplace.RequestFulfilled, done.Status)

	_, err = f.service.UpdateRequest(ctx, owner, req.ID, marketplace.UpdateRequestMessage{Status: ptr("closed")})
	require.Error(t, err)
	assert.Equal(t, 400, auth.HTTPStatus(err))

	_, err = f.service.UpdateRequest(ctx, owner, uuid.New(), marketplace.UpdateRequestMessage{Status: ptr("open")})
	assert.ErrorIs(t, err, marketplace.ErrRequestNotFound)
}

func TestService_ConcurrentAccepts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	req, err := f.service.CreateRequest(ctx, actor(auth.RoleNGO), marketplace.CreateRequestMessage{
		FoodNeeded: "Chapati",
		Quantity:   "100",
		Location:   "Kothrud",
	})
	require.NoError(t, err)

	const acceptors = 6
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		won    int
		missed int
	)
	for i := 0; i < acceptors; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.UpdateRequest(ctx, actor(auth.RoleDonor), req.ID, marketplace.UpdateRequestMessage{Status: ptr("accepted")})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case auth.HasTextCode(err, marketplace.TextCodeRequestTaken):
				missed++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	assert.Equal(t, acceptors-1, missed)

	found, err := f.requests.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.RequestAccepted, found.Status)
}

func TestListOptionsCapsLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	donor := actor(auth.RoleDonor)

	for i := 0; i < 3; i++ {
		_, err := f.service.CreateDonation(ctx, donor, rice())
		require.NoError(t, err)
	}

	for _, opts := range []marketplace.ListOptions{{Limit: -1}, {Limit: 1000}, {Offset: -5}} {
		out, err := f.service.ListDonations(ctx, opts)
		require.NoError(t, err)
		assert.Len(t, out, 3)
	}
}
