package postgres

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"

	"remedy/internal/domain"
	"remedy/internal/repository"
)

// Orders заказы
type Orders struct{ store *Store }

func NewOrders(store *Store) *Orders { return &Orders{store: store} }

var _ repository.OrderRepository = (*Orders)(nil)

const orderCols = `id, client_id, pharmacy_id, delivery_address, subdivision, status,
	payment_status, payment_method, subtotal, delivery_fee, commission_amount,
	total_amount, rejection_reason, client_phone, notes, version, created_at, updated_at`

func (r *Orders) Create(ctx context.Context, o *domain.Order) error {
	o.Version = 1
	return r.store.q(ctx).QueryRow(ctx,
		`INSERT INTO orders (client_id, pharmacy_id, delivery_address, subdivision,
			status, payment_status, payment_method, subtotal, delivery_fee,
			commission_amount, total_amount, rejection_reason, client_phone, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id, created_at, updated_at`,
		o.ClientID, o.PharmacyID, o.DeliveryAddress, o.Subdivision,
		o.Status, o.PaymentStatus, o.PaymentMethod, o.Subtotal, o.DeliveryFee,
		o.CommissionAmount, o.TotalAmount, o.RejectionReason, o.ClientPhone, o.Notes).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

func scanOrder(row pgx.Row, o *domain.Order) error {
	return row.Scan(&o.ID, &o.ClientID, &o.PharmacyID, &o.DeliveryAddress, &o.Subdivision,
		&o.Status, &o.PaymentStatus, &o.PaymentMethod, &o.Subtotal, &o.DeliveryFee,
		&o.CommissionAmount, &o.TotalAmount, &o.RejectionReason, &o.ClientPhone,
		&o.Notes, &o.Version, &o.CreatedAt, &o.UpdatedAt)
}

func (r *Orders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	err := scanOrder(r.store.q(ctx).QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id = $1`, id), &o)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Orders) Update(ctx context.Context, o *domain.Order) error {
	tag, err := r.store.q(ctx).Exec(ctx,
		`UPDATE orders SET status = $3, payment_status = $4, rejection_reason = $5,
			notes = $6, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $2`,
		o.ID, o.Version, o.Status, o.PaymentStatus, o.RejectionReason, o.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.store.q(ctx).QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}
	o.Version++
	return nil
}

func (r *Orders) List(ctx context.Context, f repository.OrderFilter) ([]domain.Order, error) {
	where := ``
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		ph := `$` + strconv.Itoa(len(args))
		if where == `` {
			where = ` WHERE `
		} else {
			where += ` AND `
		}
		where += cond + ph
	}
	if f.ClientID != nil {
		add(`client_id = `, *f.ClientID)
	}
	if f.PharmacyID != nil {
		add(`pharmacy_id = `, *f.PharmacyID)
	}
	if f.Status != nil {
		add(`status = `, *f.Status)
	}
	rows, err := r.store.q(ctx).Query(ctx,
		`SELECT `+orderCols+` FROM orders`+where+` ORDER BY id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.Order, 0)
	for rows.Next() {
		var o domain.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// OrderItems строки заказов
type OrderItems struct{ store *Store }

func NewOrderItems(store *Store) *OrderItems { return &OrderItems{store: store} }

var _ repository.OrderItemRepository = (*OrderItems)(nil)

func (r *OrderItems) Create(ctx context.Context, it *domain.OrderItem) error {
	return r.store.q(ctx).QueryRow(ctx,
		`INSERT INTO order_items (order_id, listing_id, quantity, unit_price, subtotal)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		it.OrderID, it.ListingID, it.Quantity, it.UnitPrice, it.Subtotal).Scan(&it.ID)
}

func (r *OrderItems) ListByOrder(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := r.store.q(ctx).Query(ctx,
		`SELECT id, order_id, listing_id, quantity, unit_price, subtotal
		 FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.OrderItem, 0)
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ListingID, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
