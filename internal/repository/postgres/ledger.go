package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"remedy/internal/domain"
	"remedy/internal/repository"
)

// Withdrawals заявки на вывод средств
type Withdrawals struct{ store *Store }

func NewWithdrawals(store *Store) *Withdrawals { return &Withdrawals{store: store} }

var _ repository.WithdrawalRepository = (*Withdrawals)(nil)

const withdrawalCols = `id, pharmacy_id, amount, method, account_number, account_name,
	bank_name, status, transaction_ref, rejection_reason, processed_at, version,
	created_at, updated_at`

func (r *Withdrawals) Create(ctx context.Context, w *domain.Withdrawal) error {
	w.Version = 1
	return r.store.q(ctx).QueryRow(ctx,
		`INSERT INTO withdrawals (pharmacy_id, amount, method, account_number,
			account_name, bank_name, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`,
		w.PharmacyID, w.Amount, w.Method, w.AccountNumber, w.AccountName,
		w.BankName, w.Status).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
}

func scanWithdrawal(row pgx.Row, w *domain.Withdrawal) error {
	return row.Scan(&w.ID, &w.PharmacyID, &w.Amount, &w.Method, &w.AccountNumber,
		&w.AccountName, &w.BankName, &w.Status, &w.TransactionRef,
		&w.RejectionReason, &w.ProcessedAt, &w.Version, &w.CreatedAt, &w.UpdatedAt)
}

func (r *Withdrawals) GetByID(ctx context.Context, id int64) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	err := scanWithdrawal(r.store.q(ctx).QueryRow(ctx,
		`SELECT `+withdrawalCols+` FROM withdrawals WHERE id = $1`, id), &w)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Withdrawals) Update(ctx context.Context, w *domain.Withdrawal) error {
	tag, err := r.store.q(ctx).Exec(ctx,
		`UPDATE withdrawals SET status = $3, transaction_ref = $4,
			rejection_reason = $5, processed_at = $6,
			version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $2`,
		w.ID, w.Version, w.Status, w.TransactionRef, w.RejectionReason, w.ProcessedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.store.q(ctx).QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM withdrawals WHERE id = $1)`, w.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}
	w.Version++
	return nil
}

func (r *Withdrawals) ListByPharmacy(ctx context.Context, pharmacyID int64) ([]domain.Withdrawal, error) {
	rows, err := r.store.q(ctx).Query(ctx,
		`SELECT `+withdrawalCols+` FROM withdrawals WHERE pharmacy_id = $1 ORDER BY id DESC`,
		pharmacyID)
	if err != nil {
		return nil, err
	}
	return scanWithdrawals(rows)
}

func (r *Withdrawals) ListOpen(ctx context.Context) ([]domain.Withdrawal, error) {
	rows, err := r.store.q(ctx).Query(ctx,
		`SELECT `+withdrawalCols+` FROM withdrawals
		 WHERE status IN ($1, $2) ORDER BY id`,
		domain.WithdrawalStatusPending, domain.WithdrawalStatusProcessing)
	if err != nil {
		return nil, err
	}
	return scanWithdrawals(rows)
}

func scanWithdrawals(rows pgx.Rows) ([]domain.Withdrawal, error) {
	defer rows.Close()
	out := make([]domain.Withdrawal, 0)
	for rows.Next() {
		var w domain.Withdrawal
		if err := scanWithdrawal(rows, &w); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Settings единственная строка настроек; комиссия хранится как NUMERIC и
// читается через текстовое представление
type Settings struct{ store *Store }

func NewSettings(store *Store) *Settings { return &Settings{store: store} }

var _ repository.SettingsRepository = (*Settings)(nil)

func (r *Settings) Get(ctx context.Context) (*domain.PlatformSettings, error) {
	var (
		s   domain.PlatformSettings
		pct string
	)
	err := r.store.q(ctx).QueryRow(ctx,
		`SELECT id, delivery_fee_near, delivery_fee_far,
			commission_percentage::text, updated_at
		 FROM platform_settings WHERE id = 1`).
		Scan(&s.ID, &s.DeliveryFeeNear, &s.DeliveryFeeFar, &pct, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.CommissionPercentage, err = decimal.NewFromString(pct)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Settings) Save(ctx context.Context, s *domain.PlatformSettings) error {
	s.ID = 1
	return r.store.q(ctx).QueryRow(ctx,
		`INSERT INTO platform_settings (id, delivery_fee_near, delivery_fee_far, commission_percentage)
		 VALUES (1, $1, $2, $3::numeric)
		 ON CONFLICT (id) DO UPDATE SET
			delivery_fee_near = EXCLUDED.delivery_fee_near,
			delivery_fee_far = EXCLUDED.delivery_fee_far,
			commission_percentage = EXCLUDED.commission_percentage,
			updated_at = now()
		 RETURNING updated_at`,
		s.DeliveryFeeNear, s.DeliveryFeeFar, s.CommissionPercentage.String()).
		Scan(&s.UpdatedAt)
}

func (r *Settings) Ensure(ctx context.Context, defaults domain.PlatformSettings) error {
	// upsert-on-conflict: две гонящихся инициализации безопасны
	_, err := r.store.q(ctx).Exec(ctx,
		`INSERT INTO platform_settings (id, delivery_fee_near, delivery_fee_far, commission_percentage)
		 VALUES (1, $1, $2, $3::numeric)
		 ON CONFLICT (id) DO NOTHING`,
		defaults.DeliveryFeeNear, defaults.DeliveryFeeFar, defaults.CommissionPercentage.String())
	return err
}
