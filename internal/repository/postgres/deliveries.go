package postgres

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"

	"remedy/internal/domain"
	"remedy/internal/repository"
)

// Deliveries доставки
type Deliveries struct{ store *Store }

func NewDeliveries(store *Store) *Deliveries { return &Deliveries{store: store} }

var _ repository.DeliveryRepository = (*Deliveries)(nil)

const deliveryCols = `id, order_id, rider_id, status, pickup_time, delivered_time,
	rider_fee, rating, client_notes, version, created_at, updated_at`

func (r *Deliveries) Create(ctx context.Context, d *domain.Delivery) error {
	d.Version = 1
	return r.store.q(ctx).QueryRow(ctx,
		`INSERT INTO deliveries (order_id, rider_id, status, rider_fee, client_notes)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`,
		d.OrderID, d.RiderID, d.Status, d.RiderFee, d.ClientNotes).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

func scanDelivery(row pgx.Row, d *domain.Delivery) error {
	return row.Scan(&d.ID, &d.OrderID, &d.RiderID, &d.Status, &d.PickupTime,
		&d.DeliveredTime, &d.RiderFee, &d.Rating, &d.ClientNotes, &d.Version,
		&d.CreatedAt, &d.UpdatedAt)
}

func (r *Deliveries) GetByID(ctx context.Context, id int64) (*domain.Delivery, error) {
	var d domain.Delivery
	err := scanDelivery(r.store.q(ctx).QueryRow(ctx,
		`SELECT `+deliveryCols+` FROM deliveries WHERE id = $1`, id), &d)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Deliveries) GetByOrderID(ctx context.Context, orderID int64) (*domain.Delivery, error) {
	var d domain.Delivery
	err := scanDelivery(r.store.q(ctx).QueryRow(ctx,
		`SELECT `+deliveryCols+` FROM deliveries WHERE order_id = $1`, orderID), &d)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Deliveries) Update(ctx context.Context, d *domain.Delivery) error {
	tag, err := r.store.q(ctx).Exec(ctx,
		`UPDATE deliveries SET rider_id = $3, status = $4, pickup_time = $5,
			delivered_time = $6, rating = $7, client_notes = $8,
			version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $2`,
		d.ID, d.Version, d.RiderID, d.Status, d.PickupTime, d.DeliveredTime,
		d.Rating, d.ClientNotes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.store.q(ctx).QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM deliveries WHERE id = $1)`, d.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}
	d.Version++
	return nil
}

func (r *Deliveries) List(ctx context.Context, f repository.DeliveryFilter) ([]domain.Delivery, error) {
	where := ``
	args := []any{}
	and := func() {
		if where == `` {
			where = ` WHERE `
		} else {
			where += ` AND `
		}
	}
	if f.RiderID != nil {
		args = append(args, *f.RiderID)
		and()
		where += `rider_id = $` + strconv.Itoa(len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		and()
		where += `status = $` + strconv.Itoa(len(args))
	}
	if f.Unassigned {
		and()
		where += `rider_id IS NULL`
	}
	rows, err := r.store.q(ctx).Query(ctx,
		`SELECT `+deliveryCols+` FROM deliveries`+where+` ORDER BY id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.Delivery, 0)
	for rows.Next() {
		var d domain.Delivery
		if err := scanDelivery(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
