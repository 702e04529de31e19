package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"remedy/internal/domain"
	"remedy/internal/metrics"
	"remedy/internal/notify"
	"remedy/internal/repository"
)

// MinWithdrawalAmount минимальная сумма вывода в минимальных единицах валюты
const MinWithdrawalAmount = 1000

// LedgerService баланс аптек и заявки на вывод средств. Баланс нигде не
// хранится — он всегда пересчитывается из вручённых заказов и заявок.
type LedgerService struct {
	orders      repository.OrderRepository
	withdrawals repository.WithdrawalRepository
	pharmacies  repository.PharmacyRepository
	tx          repository.TxManager
	events      notify.Publisher
}

func NewLedgerService(
	orders repository.OrderRepository,
	withdrawals repository.WithdrawalRepository,
	pharmacies repository.PharmacyRepository,
	tx repository.TxManager,
	events notify.Publisher,
) *LedgerService {
	return &LedgerService{
		orders:      orders,
		withdrawals: withdrawals,
		pharmacies:  pharmacies,
		tx:          tx,
		events:      events,
	}
}

// GetPharmacyEarnings возвращает сводку по заработку аптеки:
// заработано по вручённым заказам, выведено, зарезервировано открытыми
// заявками и доступный остаток
func (s *LedgerService) GetPharmacyEarnings(ctx context.Context, pharmacyID int64) (*domain.PharmacyEarnings, error) {
	if pharmacyID <= 0 {
		return nil, ErrInvalidInput
	}
	if _, err := s.pharmacies.GetByID(ctx, pharmacyID); err != nil {
		return nil, err
	}
	return s.computeEarnings(ctx, pharmacyID)
}

// computeEarnings пересчитывает баланс; вызывается и внутри транзакции
// RequestWithdrawal
func (s *LedgerService) computeEarnings(ctx context.Context, pharmacyID int64) (*domain.PharmacyEarnings, error) {
	delivered := domain.OrderStatusDelivered
	orders, err := s.orders.List(ctx, repository.OrderFilter{PharmacyID: &pharmacyID, Status: &delivered})
	if err != nil {
		return nil, err
	}
	e := &domain.PharmacyEarnings{TotalOrders: len(orders)}
	for _, o := range orders {
		e.TotalEarnings += o.TotalAmount
	}
	ws, err := s.withdrawals.ListByPharmacy(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	for _, w := range ws {
		switch {
		case w.Status == domain.WithdrawalStatusCompleted:
			e.TotalWithdrawn += w.Amount
		case w.Status.Open():
			e.PendingAmount += w.Amount
		}
	}
	e.AvailableBalance = e.TotalEarnings - e.TotalWithdrawn - e.PendingAmount
	return e, nil
}

// RequestWithdrawalInput параметры заявки на вывод
type RequestWithdrawalInput struct {
	PharmacyID    int64
	Amount        int64
	Method        domain.WithdrawalMethod
	AccountNumber string
	AccountName   string
	BankName      string
}

// RequestWithdrawal создаёт заявку на вывод в статусе pending. Баланс
// пересчитывается в той же транзакции, что и вставка заявки, поэтому две
// конкурентные заявки не могут увести баланс в минус.
func (s *LedgerService) RequestWithdrawal(ctx context.Context, in RequestWithdrawalInput) (*domain.Withdrawal, error) {
	if in.PharmacyID <= 0 {
		return nil, ErrInvalidInput
	}
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if !in.Method.Valid() {
		return nil, fmt.Errorf("%w: unknown withdrawal method %q", ErrInvalidInput, in.Method)
	}
	if in.AccountNumber == "" {
		return nil, fmt.Errorf("%w: account number is required", ErrInvalidInput)
	}
	if _, err := s.pharmacies.GetByID(ctx, in.PharmacyID); err != nil {
		return nil, err
	}

	var created *domain.Withdrawal
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		e, err := s.computeEarnings(ctx, in.PharmacyID)
		if err != nil {
			return err
		}
		if in.Amount > e.AvailableBalance {
			return fmt.Errorf("%w: available balance is %d", ErrInsufficientBalance, e.AvailableBalance)
		}
		if in.Amount < MinWithdrawalAmount {
			return fmt.Errorf("%w: minimum withdrawal is %d", ErrBelowMinimum, MinWithdrawalAmount)
		}
		w := domain.Withdrawal{
			PharmacyID:    in.PharmacyID,
			Amount:        in.Amount,
			Method:        in.Method,
			AccountNumber: in.AccountNumber,
			AccountName:   in.AccountName,
			BankName:      in.BankName,
			Status:        domain.WithdrawalStatusPending,
		}
		if err := s.withdrawals.Create(ctx, &w); err != nil {
			return err
		}
		created = &w
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.WithdrawalsRequested.Inc()
	s.events.Publish(ctx, notify.EventWithdrawalRequested, created)
	return created, nil
}

// ListPharmacyWithdrawals возвращает заявки аптеки, новые первыми
func (s *LedgerService) ListPharmacyWithdrawals(ctx context.Context, pharmacyID int64) ([]domain.Withdrawal, error) {
	if pharmacyID <= 0 {
		return nil, ErrInvalidInput
	}
	if _, err := s.pharmacies.GetByID(ctx, pharmacyID); err != nil {
		return nil, err
	}
	return s.withdrawals.ListByPharmacy(ctx, pharmacyID)
}

// ListPendingWithdrawals очередь администратора: открытые заявки по всей
// площадке, старые первыми, с присоединённой аптекой
func (s *LedgerService) ListPendingWithdrawals(ctx context.Context) ([]domain.Withdrawal, error) {
	list, err := s.withdrawals.ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	cache := make(map[int64]*domain.Pharmacy)
	for i := range list {
		p, ok := cache[list[i].PharmacyID]
		if !ok {
			p, err = s.pharmacies.GetByID(ctx, list[i].PharmacyID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			cache[list[i].PharmacyID] = p
		}
		list[i].Pharmacy = p
	}
	return list, nil
}

// UpdateWithdrawalStatus административный переход заявки; завершение
// проставляет processed_at и референс транзакции, отклонение — причину
func (s *LedgerService) UpdateWithdrawalStatus(ctx context.Context, id int64, newStatus domain.WithdrawalStatus, transactionRef, rejectionReason string) (*domain.Withdrawal, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown withdrawal status %q", ErrInvalidInput, newStatus)
	}
	w, err := s.withdrawals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !w.Status.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, w.Status, newStatus)
	}
	switch newStatus {
	case domain.WithdrawalStatusCompleted:
		now := time.Now().UTC()
		w.ProcessedAt = &now
		if transactionRef != "" {
			w.TransactionRef = transactionRef
		}
	case domain.WithdrawalStatusRejected:
		if rejectionReason != "" {
			w.RejectionReason = rejectionReason
		}
	}
	w.Status = newStatus
	if err := s.withdrawals.Update(ctx, w); err != nil {
		return nil, err
	}
	if !newStatus.Open() {
		s.events.Publish(ctx, notify.EventWithdrawalResolved, w)
	}
	return w, nil
}
