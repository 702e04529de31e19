package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"remedy/internal/domain"
)

func TestSettings_Defaults(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	set, err := e.settings.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if set.DeliveryFeeNear != domain.DefaultDeliveryFeeNear || set.DeliveryFeeFar != domain.DefaultDeliveryFeeFar {
		t.Fatalf("default fees wrong: %+v", set)
	}
	if !set.CommissionPercentage.Equal(domain.DefaultCommissionPercentage()) {
		t.Fatalf("default commission wrong: %s", set.CommissionPercentage)
	}
}

func TestSettings_PartialUpdate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	near := int64(1000)
	set, err := e.settings.Update(ctx, UpdateSettingsInput{DeliveryFeeNear: &near})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if set.DeliveryFeeNear != 1000 {
		t.Fatalf("near fee not updated: %+v", set)
	}
	// незаполненные поля не трогаем
	if set.DeliveryFeeFar != domain.DefaultDeliveryFeeFar {
		t.Fatalf("far fee changed unexpectedly: %+v", set)
	}
	if !set.CommissionPercentage.Equal(domain.DefaultCommissionPercentage()) {
		t.Fatalf("commission changed unexpectedly: %s", set.CommissionPercentage)
	}

	pct := decimal.NewFromFloat(2.5)
	set, err = e.settings.Update(ctx, UpdateSettingsInput{CommissionPercentage: &pct})
	if err != nil {
		t.Fatalf("update commission: %v", err)
	}
	if !set.CommissionPercentage.Equal(pct) {
		t.Fatalf("commission not updated: %s", set.CommissionPercentage)
	}

	bad := int64(-1)
	if _, err := e.settings.Update(ctx, UpdateSettingsInput{DeliveryFeeFar: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	negPct := decimal.NewFromFloat(-0.5)
	if _, err := e.settings.Update(ctx, UpdateSettingsInput{CommissionPercentage: &negPct}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSettings_CommissionAffectsNewOrders(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	p := e.seedPharmacy(t)
	c := e.seedClient(t)
	l := e.seedListing(t, p.ID, 1000, 10)

	pct := decimal.NewFromInt(10)
	if _, err := e.settings.Update(ctx, UpdateSettingsInput{CommissionPercentage: &pct}); err != nil {
		t.Fatalf("update: %v", err)
	}

	o, err := e.orders.CreateOrder(ctx, CreateOrderInput{
		ClientID: c.ID, PharmacyID: p.ID, DeliveryAddress: "a",
		PaymentMethod: domain.PaymentMethodCard,
		Items:         []OrderItemInput{{ListingID: l.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if o.CommissionAmount != 100 {
		t.Fatalf("expected commission 100, got %d", o.CommissionAmount)
	}
}
