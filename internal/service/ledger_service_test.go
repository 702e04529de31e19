package service

import (
	"context"
	"errors"
	"testing"

	"remedy/internal/domain"
	"remedy/internal/repository"
)

// seedDelivered записывает вручённый заказ с заданной итоговой суммой
func seedDelivered(t *testing.T, e *env, pharmacyID, total int64) {
	t.Helper()
	o := domain.Order{
		ClientID:    1,
		PharmacyID:  pharmacyID,
		Status:      domain.OrderStatusDelivered,
		TotalAmount: total,
	}
	if err := e.ordersRepo.Create(context.Background(), &o); err != nil {
		t.Fatalf("seed delivered order: %v", err)
	}
}

func TestPharmacyEarnings(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.seedPharmacy(t)

	seedDelivered(t, e, p.ID, 3000)
	seedDelivered(t, e, p.ID, 2000)
	// заказ в пути в заработок не входит
	open := domain.Order{ClientID: 1, PharmacyID: p.ID, Status: domain.OrderStatusAccepted, TotalAmount: 9000}
	if err := e.ordersRepo.Create(ctx, &open); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	got, err := e.ledger.GetPharmacyEarnings(ctx, p.ID)
	if err != nil {
		t.Fatalf("earnings: %v", err)
	}
	if got.TotalEarnings != 5000 {
		t.Fatalf("expected 5000 earned, got %d", got.TotalEarnings)
	}
	if got.TotalOrders != 2 {
		t.Fatalf("expected 2 orders, got %d", got.TotalOrders)
	}
	if got.AvailableBalance != 5000 {
		t.Fatalf("expected 5000 available, got %d", got.AvailableBalance)
	}

	// reads are idempotent
	again, err := e.ledger.GetPharmacyEarnings(ctx, p.ID)
	if err != nil {
		t.Fatalf("earnings again: %v", err)
	}
	if *again != *got {
		t.Fatalf("earnings changed between reads: %+v vs %+v", again, got)
	}

	if _, err := e.ledger.GetPharmacyEarnings(ctx, 999); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRequestWithdrawal_Validation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.seedPharmacy(t)
	seedDelivered(t, e, p.ID, 5000)

	// insufficient balance is checked before the minimum
	_, err := e.ledger.RequestWithdrawal(ctx, RequestWithdrawalInput{
		PharmacyID: p.ID, Amount: 5001, Method: domain.WithdrawalMethodBank, AccountNumber: "001",
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	_, err = e.ledger.RequestWithdrawal(ctx, RequestWithdrawalInput{
		PharmacyID: p.ID, Amount: 999, Method: domain.WithdrawalMethodBank, AccountNumber: "001",
	})
	if !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}

	for i, in := range []RequestWithdrawalInput{
		{PharmacyID: p.ID, Amount: 0, Method: domain.WithdrawalMethodBank, AccountNumber: "001"},
		{PharmacyID: p.ID, Amount: -100, Method: domain.WithdrawalMethodBank, AccountNumber: "001"},
		{PharmacyID: p.ID, Amount: 2000, Method: "cheque", AccountNumber: "001"},
		{PharmacyID: p.ID, Amount: 2000, Method: domain.WithdrawalMethodBank},
	} {
		if _, err := e.ledger.RequestWithdrawal(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}

	// failed requests must not reserve anything
	got, err := e.ledger.GetPharmacyEarnings(ctx, p.ID)
	if err != nil {
		t.Fatalf("earnings: %v", err)
	}
	if got.AvailableBalance != 5000 || got.PendingAmount != 0 {
		t.Fatalf("balance changed by failed requests: %+v", got)
	}
}

func TestWithdrawalLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.seedPharmacy(t)
	seedDelivered(t, e, p.ID, 5000)

	w, err := e.ledger.RequestWithdrawal(ctx, RequestWithdrawalInput{
		PharmacyID: p.ID, Amount: 2000, Method: domain.WithdrawalMethodMobileMoney, AccountNumber: "070",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if w.Status != domain.WithdrawalStatusPending {
		t.Fatalf("expected pending, got %s", w.Status)
	}

	// открытая заявка резервирует сумму
	got, err := e.ledger.GetPharmacyEarnings(ctx, p.ID)
	if err != nil {
		t.Fatalf("earnings: %v", err)
	}
	if got.PendingAmount != 2000 || got.AvailableBalance != 3000 {
		t.Fatalf("pending not reserved: %+v", got)
	}

	// pending -> completed without processing is illegal
	if _, err := e.ledger.UpdateWithdrawalStatus(ctx, w.ID, domain.WithdrawalStatusCompleted, "TX1", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if _, err := e.ledger.UpdateWithdrawalStatus(ctx, w.ID, domain.WithdrawalStatusProcessing, "", ""); err != nil {
		t.Fatalf("processing: %v", err)
	}
	done, err := e.ledger.UpdateWithdrawalStatus(ctx, w.ID, domain.WithdrawalStatusCompleted, "TX1", "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.ProcessedAt == nil || done.TransactionRef != "TX1" {
		t.Fatalf("completion not recorded: %+v", done)
	}

	// резерв стал выводом, доступный остаток не изменился
	got, err = e.ledger.GetPharmacyEarnings(ctx, p.ID)
	if err != nil {
		t.Fatalf("earnings: %v", err)
	}
	if got.TotalWithdrawn != 2000 || got.PendingAmount != 0 || got.AvailableBalance != 3000 {
		t.Fatalf("ledger wrong after completion: %+v", got)
	}

	// terminal
	if _, err := e.ledger.UpdateWithdrawalStatus(ctx, w.ID, domain.WithdrawalStatusPending, "", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestWithdrawalRejection_ReleasesReserve(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.seedPharmacy(t)
	seedDelivered(t, e, p.ID, 5000)

	w, err := e.ledger.RequestWithdrawal(ctx, RequestWithdrawalInput{
		PharmacyID: p.ID, Amount: 2000, Method: domain.WithdrawalMethodBank, AccountNumber: "001",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	rej, err := e.ledger.UpdateWithdrawalStatus(ctx, w.ID, domain.WithdrawalStatusRejected, "", "account mismatch")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rej.RejectionReason != "account mismatch" {
		t.Fatalf("reason lost: %+v", rej)
	}

	got, err := e.ledger.GetPharmacyEarnings(ctx, p.ID)
	if err != nil {
		t.Fatalf("earnings: %v", err)
	}
	if got.AvailableBalance != 5000 || got.PendingAmount != 0 {
		t.Fatalf("rejected withdrawal still reserved: %+v", got)
	}
}

func TestWithdrawals_ReserveBlocksSecondRequest(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.seedPharmacy(t)
	seedDelivered(t, e, p.ID, 5000)

	if _, err := e.ledger.RequestWithdrawal(ctx, RequestWithdrawalInput{
		PharmacyID: p.ID, Amount: 4000, Method: domain.WithdrawalMethodBank, AccountNumber: "001",
	}); err != nil {
		t.Fatalf("first request: %v", err)
	}
	// остаток 1000, вторая заявка на 2000 не проходит
	if _, err := e.ledger.RequestWithdrawal(ctx, RequestWithdrawalInput{
		PharmacyID: p.ID, Amount: 2000, Method: domain.WithdrawalMethodBank, AccountNumber: "001",
	}); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestListPendingWithdrawals(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.seedPharmacy(t)
	seedDelivered(t, e, p.ID, 10000)

	first, err := e.ledger.RequestWithdrawal(ctx, RequestWithdrawalInput{
		PharmacyID: p.ID, Amount: 2000, Method: domain.WithdrawalMethodBank, AccountNumber: "001",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	second, err := e.ledger.RequestWithdrawal(ctx, RequestWithdrawalInput{
		PharmacyID: p.ID, Amount: 3000, Method: domain.WithdrawalMethodBank, AccountNumber: "001",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	queue, err := e.ledger.ListPendingWithdrawals(ctx)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(queue) != 2 || queue[0].ID != first.ID || queue[1].ID != second.ID {
		t.Fatalf("expected FIFO queue, got %+v", queue)
	}
	if queue[0].Pharmacy == nil || queue[0].Pharmacy.ID != p.ID {
		t.Fatalf("pharmacy not joined: %+v", queue[0])
	}
}
