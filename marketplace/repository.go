package marketplace

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DonationsRepository is the bun implementation of Donations
type DonationsRepository struct {
	repository.Repository[*Donation]
	db  *bun.DB
	now func() time.Time
}

var _ Donations = (*DonationsRepository)(nil)

func NewDonationsRepository(db *bun.DB) *DonationsRepository {
	repo := repository.NewRepository[*Donation](db, repository.ModelHandlers[*Donation]{
		NewRecord: func() *Donation { return &Donation{} },
		GetID: func(record *Donation) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Donation, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})
	return &DonationsRepository{Repository: repo, db: db, now: time.Now}
}

func (r *DonationsRepository) WithClock(now func() time.Time) *DonationsRepository {
	if now != nil {
		r.now = now
	}
	return r
}

func (r *DonationsRepository) Create(ctx context.Context, record *Donation) (*Donation, error) {
	if record == nil {
		return nil, errors.New("donation must not be nil", errors.CategoryBadInput)
	}

	PrepareDonationDefaults(record, r.now())

	created, err := r.Repository.Create(ctx, record)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to insert donation")
	}
	return created, nil
}

func (r *DonationsRepository) FindByID(ctx context.Context, id uuid.UUID) (*Donation, error) {
	record, err := r.Repository.GetByID(ctx, id.String())
	if err != nil {
		return nil, readError(err, ErrDonationNotFound, "failed to find donation")
	}
	return record, nil
}

func (r *DonationsRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*Donation, error) {
	records := []*Donation{}
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.owner_id = ?", owner).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list donations")
	}
	return records, nil
}

func (r *DonationsRepository) List(ctx context.Context, opts ListOptions) ([]*Donation, error) {
	records := []*Donation{}
	q := r.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Limit(opts.limit()).
		Offset(opts.offset())

	if opts.Status != "" {
		q = q.Where("?TableAlias.status = ?", opts.Status)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list donations")
	}
	return records, nil
}

func (r *DonationsRepository) Update(ctx context.Context, id uuid.UUID, patch DonationPatch) (*Donation, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	record := &Donation{}
	q := r.db.NewUpdate().
		Model(record).
		Set("updated_at = ?", r.now())

	if patch.Status != nil {
		q = q.Set("status = ?", *patch.Status)
	}
	if patch.AIQuality != nil {
		q = q.Set("ai_quality = ?", *patch.AIQuality)
	}
	if patch.ClaimedBy != nil {
		q = q.Set("claimed_by = ?", *patch.ClaimedBy)
	}

	err := q.Where("id = ?", id).
		Returning("*").
		Scan(ctx)
	if err != nil {
		return nil, readError(err, ErrDonationNotFound, "failed to update donation")
	}
	return record, nil
}

func (r *DonationsRepository) Claim(ctx context.Context, id uuid.UUID, claimer uuid.UUID) (*Donation, error) {
	record := &Donation{}
	err := r.db.NewUpdate().
		Model(record).
		Set("status = ?", DonationClaimed).
		Set("claimed_by = ?", claimer).
		Set("updated_at = ?", r.now()).
		Where("id = ?", id).
		Where("status = ?", DonationAvailable).
		Returning("*").
		Scan(ctx)
	if err == nil {
		return record, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to claim donation")
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrDonationUnavailable
}

// RequestsRepository is the bun implementation of Requests
type RequestsRepository struct {
	repository.Repository[*Request]
	db  *bun.DB
	now func() time.Time
}

var _ Requests = (*RequestsRepository)(nil)

func NewRequestsRepository(db *bun.DB) *RequestsRepository {
	repo := repository.NewRepository[*Request](db, repository.ModelHandlers[*Request]{
		NewRecord: func() *Request { return &Request{} },
		GetID: func(record *Request) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Request, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})
	return &RequestsRepository{Repository: repo, db: db, now: time.Now}
}

func (r *RequestsRepository) WithClock(now func() time.Time) *RequestsRepository {
	if now != nil {
		r.now = now
	}
	return r
}

func (r *RequestsRepository) Create(ctx context.Context, record *Request) (*Request, error) {
	if record == nil {
		return nil, errors.New("request must not be nil", errors.CategoryBadInput)
	}

	PrepareRequestDefaults(record, r.now())

	created, err := r.Repository.Create(ctx, record)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to insert request")
	}
	return created, nil
}

func (r *RequestsRepository) FindByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	record, err := r.Repository.GetByID(ctx, id.String())
	if err != nil {
		return nil, readError(err, ErrRequestNotFound, "failed to find request")
	}
	return record, nil
}

func (r *RequestsRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*Request, error) {
	records := []*Request{}
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.owner_id = ?", owner).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list requests")
	}
	return records, nil
}

func (r *RequestsRepository) List(ctx context.Context, opts ListOptions) ([]*Request, error) {
	records := []*Request{}
	q := r.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Limit(opts.limit()).
		Offset(opts.offset())

	if opts.Status != "" {
		q = q.Where("?TableAlias.status = ?", opts.Status)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list requests")
	}
	return records, nil
}

func (r *RequestsRepository) Update(ctx context.Context, id uuid.UUID, patch RequestPatch) (*Request, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	record := &Request{}
	err := r.db.NewUpdate().
		Model(record).
		Set("updated_at = ?", r.now()).
		Set("status = ?", *patch.Status).
		Where("id = ?", id).
		Returning("*").
		Scan(ctx)
	if err != nil {
		return nil, readError(err, ErrRequestNotFound, "failed to update request")
	}
	return record, nil
}

func (r *RequestsRepository) Accept(ctx context.Context, id uuid.UUID) (*Request, error) {
	record := &Request{}
	err := r.db.NewUpdate().
		Model(record).
		Set("status = ?", RequestAccepted).
		Set("updated_at = ?", r.now()).
		Where("id = ?", id).
		Where("status = ?", RequestOpen).
		Returning("*").
		Scan(ctx)
	if err == nil {
		return record, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to accept request")
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrRequestUnavailable
}

// CreateTables creates the donations and requests tables. It is idempotent.
func CreateTables(ctx context.Context, db bun.IDB) error {
	models := []any{(*Donation)(nil), (*Request)(nil)}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}

	indexes := []struct {
		model  any
		name   string
		column string
	}{
		{(*Donation)(nil), "donations_owner_id_idx", "owner_id"},
		{(*Donation)(nil), "donations_status_idx", "status"},
		{(*Request)(nil), "requests_owner_id_idx", "owner_id"},
	}
	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			IfNotExists().
			Column(idx.column).
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func readError(err error, notFound error, msg string) error {
	if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, errors.CategoryInternal, msg)
}
