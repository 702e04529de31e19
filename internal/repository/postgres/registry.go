package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"remedy/internal/domain"
	"remedy/internal/repository"
)

// Pharmacies справочник аптек
type Pharmacies struct{ store *Store }

func NewPharmacies(store *Store) *Pharmacies { return &Pharmacies{store: store} }

var _ repository.PharmacyRepository = (*Pharmacies)(nil)

func (r *Pharmacies) Create(ctx context.Context, p *domain.Pharmacy) error {
	return r.store.q(ctx).QueryRow(ctx,
		`INSERT INTO pharmacies (name, phone, address, verified, active)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		p.Name, p.Phone, p.Address, p.Verified, p.Active).Scan(&p.ID)
}

func (r *Pharmacies) GetByID(ctx context.Context, id int64) (*domain.Pharmacy, error) {
	var p domain.Pharmacy
	err := r.store.q(ctx).QueryRow(ctx,
		`SELECT id, name, phone, address, verified, active FROM pharmacies WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Phone, &p.Address, &p.Verified, &p.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Pharmacies) List(ctx context.Context) ([]domain.Pharmacy, error) {
	rows, err := r.store.q(ctx).Query(ctx,
		`SELECT id, name, phone, address, verified, active FROM pharmacies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.Pharmacy, 0)
	for rows.Next() {
		var p domain.Pharmacy
		if err := rows.Scan(&p.ID, &p.Name, &p.Phone, &p.Address, &p.Verified, &p.Active); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Medicines справочник препаратов
type Medicines struct{ store *Store }

func NewMedicines(store *Store) *Medicines { return &Medicines{store: store} }

var _ repository.MedicineRepository = (*Medicines)(nil)

func (r *Medicines) Create(ctx context.Context, m *domain.Medicine) error {
	return r.store.q(ctx).QueryRow(ctx,
		`INSERT INTO medicines (name, category, description)
		 VALUES ($1, $2, $3) RETURNING id`,
		m.Name, m.Category, m.Description).Scan(&m.ID)
}

func (r *Medicines) GetByID(ctx context.Context, id int64) (*domain.Medicine, error) {
	var m domain.Medicine
	err := r.store.q(ctx).QueryRow(ctx,
		`SELECT id, name, category, description FROM medicines WHERE id = $1`, id).
		Scan(&m.ID, &m.Name, &m.Category, &m.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Medicines) List(ctx context.Context, f repository.MedicineFilter) ([]domain.Medicine, error) {
	rows, err := r.store.q(ctx).Query(ctx,
		`SELECT id, name, category, description FROM medicines
		 WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		   AND ($2 = '' OR category = $2)
		 ORDER BY id`,
		f.Query, f.Category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]domain.Medicine, 0)
	for rows.Next() {
		var m domain.Medicine
		if err := rows.Scan(&m.ID, &m.Name, &m.Category, &m.Description); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Clients справочник покупателей
type Clients struct{ store *Store }

func NewClients(store *Store) *Clients { return &Clients{store: store} }

var _ repository.ClientRepository = (*Clients)(nil)

func (r *Clients) Create(ctx context.Context, c *domain.Client) error {
	return r.store.q(ctx).QueryRow(ctx,
		`INSERT INTO clients (name, phone) VALUES ($1, $2) RETURNING id`,
		c.Name, c.Phone).Scan(&c.ID)
}

func (r *Clients) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	var c domain.Client
	err := r.store.q(ctx).QueryRow(ctx,
		`SELECT id, name, phone FROM clients WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Riders справочник курьеров
type Riders struct{ store *Store }

func NewRiders(store *Store) *Riders { return &Riders{store: store} }

var _ repository.RiderRepository = (*Riders)(nil)

func (r *Riders) Create(ctx context.Context, rd *domain.Rider) error {
	return r.store.q(ctx).QueryRow(ctx,
		`INSERT INTO riders (name, phone) VALUES ($1, $2) RETURNING id`,
		rd.Name, rd.Phone).Scan(&rd.ID)
}

func (r *Riders) GetByID(ctx context.Context, id int64) (*domain.Rider, error) {
	var rd domain.Rider
	err := r.store.q(ctx).QueryRow(ctx,
		`SELECT id, name, phone FROM riders WHERE id = $1`, id).
		Scan(&rd.ID, &rd.Name, &rd.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rd, nil
}
