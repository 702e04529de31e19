package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"remedy/internal/domain"
	"remedy/internal/repository"
)

// Listings прайс-позиции аптек
type Listings struct{ store *Store }

func NewListings(store *Store) *Listings { return &Listings{store: store} }

var _ repository.ListingRepository = (*Listings)(nil)

const listingCols = `id, pharmacy_id, medicine_id, price, stock, active`

func (r *Listings) Create(ctx context.Context, l *domain.PharmacyListing) error {
	return r.store.q(ctx).QueryRow(ctx,
		`INSERT INTO pharmacy_listings (pharmacy_id, medicine_id, price, stock, active)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		l.PharmacyID, l.MedicineID, l.Price, l.Stock, l.Active).Scan(&l.ID)
}

func (r *Listings) GetByID(ctx context.Context, id int64) (*domain.PharmacyListing, error) {
	var l domain.PharmacyListing
	err := r.store.q(ctx).QueryRow(ctx,
		`SELECT `+listingCols+` FROM pharmacy_listings WHERE id = $1`, id).
		Scan(&l.ID, &l.PharmacyID, &l.MedicineID, &l.Price, &l.Stock, &l.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Listings) Update(ctx context.Context, l *domain.PharmacyListing) error {
	tag, err := r.store.q(ctx).Exec(ctx,
		`UPDATE pharmacy_listings SET price = $2, stock = $3, active = $4 WHERE id = $1`,
		l.ID, l.Price, l.Stock, l.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Listings) ListByPharmacy(ctx context.Context, pharmacyID int64) ([]domain.PharmacyListing, error) {
	rows, err := r.store.q(ctx).Query(ctx,
		`SELECT `+listingCols+` FROM pharmacy_listings WHERE pharmacy_id = $1 ORDER BY id`, pharmacyID)
	if err != nil {
		return nil, err
	}
	return scanListings(rows)
}

func (r *Listings) ListActive(ctx context.Context) ([]domain.PharmacyListing, error) {
	rows, err := r.store.q(ctx).Query(ctx,
		`SELECT `+listingCols+` FROM pharmacy_listings WHERE active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return scanListings(rows)
}

func scanListings(rows pgx.Rows) ([]domain.PharmacyListing, error) {
	defer rows.Close()
	out := make([]domain.PharmacyListing, 0)
	for rows.Next() {
		var l domain.PharmacyListing
		if err := rows.Scan(&l.ID, &l.PharmacyID, &l.MedicineID, &l.Price, &l.Stock, &l.Active); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
