package service

import (
	"context"
	"errors"
	"testing"

	"remedy/internal/domain"
	"remedy/internal/repository"
)

// prepareOrderForPickup оформляет заказ и доводит его до prepared, когда
// назначение курьера становится допустимым
func prepareOrderForPickup(t *testing.T, e *env, pharmacyID, clientID, listingID int64) (*domain.Order, *domain.Delivery) {
	t.Helper()
	ctx := context.Background()
	o, err := e.orders.CreateOrder(ctx, CreateOrderInput{
		ClientID: clientID, PharmacyID: pharmacyID, DeliveryAddress: "12 Market Rd",
		PaymentMethod: domain.PaymentMethodCashOnDelivery,
		Items:         []OrderItemInput{{ListingID: listingID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := e.orders.UpdateStatus(ctx, o.ID, domain.OrderStatusAccepted, ""); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := e.orders.UpdateStatus(ctx, o.ID, domain.OrderStatusPrepared, ""); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	d, err := e.delivRepo.GetByOrderID(ctx, o.ID)
	if err != nil {
		t.Fatalf("find delivery: %v", err)
	}
	return o, d
}

func TestAssignRider(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.seedPharmacy(t)
	c := e.seedClient(t)
	r := e.seedRider(t)
	l := e.seedListing(t, p.ID, 1000, 10)
	o, d := prepareOrderForPickup(t, e, p.ID, c.ID, l.ID)

	got, err := e.deliveries.AssignRider(ctx, d.ID, r.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.RiderID == nil || *got.RiderID != r.ID {
		t.Fatalf("rider not set: %+v", got)
	}
	if got.Status != domain.DeliveryStatusOnTheWayToPharmacy {
		t.Fatalf("expected on_the_way_to_pharmacy, got %s", got.Status)
	}

	// заказ зеркалирует назначение
	after, err := e.ordersRepo.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if after.Status != domain.OrderStatusAssignedToRider {
		t.Fatalf("expected assigned_to_rider, got %s", after.Status)
	}

	// second assignment must be rejected
	if _, err := e.deliveries.AssignRider(ctx, d.ID, r.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestAssignRider_OrderNotReady(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.seedPharmacy(t)
	c := e.seedClient(t)
	r := e.seedRider(t)
	l := e.seedListing(t, p.ID, 1000, 10)

	o, err := e.orders.CreateOrder(ctx, CreateOrderInput{
		ClientID: c.ID, PharmacyID: p.ID, DeliveryAddress: "a",
		PaymentMethod: domain.PaymentMethodCashOnDelivery,
		Items:         []OrderItemInput{{ListingID: l.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	d, err := e.delivRepo.GetByOrderID(ctx, o.ID)
	if err != nil {
		t.Fatalf("find delivery: %v", err)
	}

	// order is still pending confirmation, assignment is premature
	if _, err := e.deliveries.AssignRider(ctx, d.ID, r.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	// and nothing changed on either record
	dAfter, _ := e.delivRepo.GetByID(ctx, d.ID)
	if dAfter.Status != domain.DeliveryStatusPending || dAfter.RiderID != nil {
		t.Fatalf("delivery modified by failed assign: %+v", dAfter)
	}
}

func TestAssignRider_UnknownRider(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.seedPharmacy(t)
	c := e.seedClient(t)
	l := e.seedListing(t, p.ID, 1000, 10)
	_, d := prepareOrderForPickup(t, e, p.ID, c.ID, l.ID)

	if _, err := e.deliveries.AssignRider(ctx, d.ID, 999); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDeliveryFlow_MirrorsOrder(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.seedPharmacy(t)
	c := e.seedClient(t)
	r := e.seedRider(t)
	l := e.seedListing(t, p.ID, 1000, 10)
	o, d := prepareOrderForPickup(t, e, p.ID, c.ID, l.ID)

	if _, err := e.deliveries.AssignRider(ctx, d.ID, r.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	got, err := e.deliveries.UpdateStatus(ctx, d.ID, domain.DeliveryStatusPickedUp)
	if err != nil {
		t.Fatalf("picked up: %v", err)
	}
	if got.PickupTime == nil {
		t.Fatalf("pickup time not stamped")
	}

	if _, err := e.deliveries.UpdateStatus(ctx, d.ID, domain.DeliveryStatusOnTheWayToClient); err != nil {
		t.Fatalf("on the way: %v", err)
	}
	after, _ := e.ordersRepo.GetByID(ctx, o.ID)
	if after.Status != domain.OrderStatusOutForDelivery {
		t.Fatalf("expected out_for_delivery, got %s", after.Status)
	}

	got, err = e.deliveries.UpdateStatus(ctx, d.ID, domain.DeliveryStatusDelivered)
	if err != nil {
		t.Fatalf("delivered: %v", err)
	}
	if got.DeliveredTime == nil {
		t.Fatalf("delivered time not stamped")
	}
	after, _ = e.ordersRepo.GetByID(ctx, o.ID)
	if after.Status != domain.OrderStatusDelivered {
		t.Fatalf("expected delivered, got %s", after.Status)
	}

	// terminal: no further moves
	if _, err := e.deliveries.UpdateStatus(ctx, d.ID, domain.DeliveryStatusPending); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestDeliveryFlow_NoSkipping(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.seedPharmacy(t)
	c := e.seedClient(t)
	r := e.seedRider(t)
	l := e.seedListing(t, p.ID, 1000, 10)
	_, d := prepareOrderForPickup(t, e, p.ID, c.ID, l.ID)

	if _, err := e.deliveries.AssignRider(ctx, d.ID, r.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	// picked_up -> delivered without on_the_way_to_client is illegal
	if _, err := e.deliveries.UpdateStatus(ctx, d.ID, domain.DeliveryStatusDelivered); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestFindPending(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.seedPharmacy(t)
	c := e.seedClient(t)
	r := e.seedRider(t)
	l := e.seedListing(t, p.ID, 1000, 10)
	_, d := prepareOrderForPickup(t, e, p.ID, c.ID, l.ID)

	pending, err := e.deliveries.FindPending(ctx)
	if err != nil {
		t.Fatalf("find pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != d.ID {
		t.Fatalf("expected 1 pending delivery, got %+v", pending)
	}

	if _, err := e.deliveries.AssignRider(ctx, d.ID, r.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	pending, err = e.deliveries.FindPending(ctx)
	if err != nil {
		t.Fatalf("find pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("assigned delivery still in queue: %+v", pending)
	}
}

func TestRateDelivery(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.seedPharmacy(t)
	c := e.seedClient(t)
	l := e.seedListing(t, p.ID, 1000, 10)
	_, d := prepareOrderForPickup(t, e, p.ID, c.ID, l.ID)

	for _, bad := range []int{0, 6, -1} {
		if _, err := e.deliveries.RateDelivery(ctx, d.ID, bad); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("rating %d: expected ErrInvalidInput, got %v", bad, err)
		}
	}
	got, err := e.deliveries.RateDelivery(ctx, d.ID, 5)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if got.Rating == nil || *got.Rating != 5 {
		t.Fatalf("rating not saved: %+v", got)
	}
}

func TestRiderEarnings(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	r := e.seedRider(t)

	// завершённые доставки c разными тарифами
	for _, fee := range []int64{500, 500, 700} {
		d := domain.Delivery{OrderID: 1, RiderID: &r.ID, Status: domain.DeliveryStatusDelivered, RiderFee: fee}
		if err := e.delivRepo.Create(ctx, &d); err != nil {
			t.Fatalf("seed delivery: %v", err)
		}
	}
	// доставка в пути не учитывается
	inFlight := domain.Delivery{OrderID: 2, RiderID: &r.ID, Status: domain.DeliveryStatusPickedUp, RiderFee: 900}
	if err := e.delivRepo.Create(ctx, &inFlight); err != nil {
		t.Fatalf("seed delivery: %v", err)
	}

	got, err := e.deliveries.GetRiderEarnings(ctx, r.ID)
	if err != nil {
		t.Fatalf("earnings: %v", err)
	}
	if got.TotalEarnings != 1700 {
		t.Fatalf("expected 1700, got %d", got.TotalEarnings)
	}
	if got.TotalDeliveries != 3 {
		t.Fatalf("expected 3 deliveries, got %d", got.TotalDeliveries)
	}

	if _, err := e.deliveries.GetRiderEarnings(ctx, 999); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
