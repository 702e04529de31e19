package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"remedy/internal/domain"
	"remedy/internal/metrics"
	"remedy/internal/notify"
	"remedy/internal/repository"
)

// OrderService владеет жизненным циклом заказа: оформление корзины,
// расчёт сумм и комиссии, статусная машина заказа
type OrderService struct {
	orders     repository.OrderRepository
	items      repository.OrderItemRepository
	deliveries repository.DeliveryRepository
	listings   repository.ListingRepository
	medicines  repository.MedicineRepository
	settings   repository.SettingsRepository
	clients    repository.ClientRepository
	pharmacies repository.PharmacyRepository
	tx         repository.TxManager
	events     notify.Publisher
}

func NewOrderService(
	orders repository.OrderRepository,
	items repository.OrderItemRepository,
	deliveries repository.DeliveryRepository,
	listings repository.ListingRepository,
	medicines repository.MedicineRepository,
	settings repository.SettingsRepository,
	clients repository.ClientRepository,
	pharmacies repository.PharmacyRepository,
	tx repository.TxManager,
	events notify.Publisher,
) *OrderService {
	return &OrderService{
		orders:     orders,
		items:      items,
		deliveries: deliveries,
		listings:   listings,
		medicines:  medicines,
		settings:   settings,
		clients:    clients,
		pharmacies: pharmacies,
		tx:         tx,
		events:     events,
	}
}

// OrderItemInput строка корзины
type OrderItemInput struct {
	ListingID int64 `json:"listing_id"`
	Quantity  int64 `json:"quantity"`
}

// CreateOrderInput параметры оформления заказа
type CreateOrderInput struct {
	ClientID        int64
	PharmacyID      int64
	DeliveryAddress string
	Subdivision     string
	PaymentMethod   domain.PaymentMethod
	Items           []OrderItemInput
	ClientPhone     string
	Notes           string
}

// CreateOrder оформляет корзину в заказ: фиксирует цены позиций, считает
// подытог, комиссию и итог, атомарно создаёт заказ, его строки и одну
// доставку в статусе pending. Любая неизвестная позиция отменяет всю операцию.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if in.ClientID <= 0 || in.PharmacyID <= 0 || in.DeliveryAddress == "" {
		return nil, ErrInvalidInput
	}
	if !in.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, in.PaymentMethod)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", ErrInvalidInput)
	}
	for _, it := range in.Items {
		if it.ListingID <= 0 || it.Quantity < 1 {
			return nil, fmt.Errorf("%w: bad quantity for listing %d", ErrInvalidInput, it.ListingID)
		}
	}
	if _, err := s.clients.GetByID(ctx, in.ClientID); err != nil {
		return nil, err
	}
	if _, err := s.pharmacies.GetByID(ctx, in.PharmacyID); err != nil {
		return nil, err
	}

	var created *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		set, err := s.settings.Get(ctx)
		if err != nil {
			return err
		}

		// resolve listings and snapshot prices; no writes until the whole
		// cart has been validated
		orderItems := make([]domain.OrderItem, 0, len(in.Items))
		var subtotal int64
		for _, it := range in.Items {
			l, err := s.listings.GetByID(ctx, it.ListingID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("%w: unknown listing %d", ErrInvalidInput, it.ListingID)
				}
				return err
			}
			if l.PharmacyID != in.PharmacyID {
				return fmt.Errorf("%w: listing %d does not belong to pharmacy %d", ErrInvalidInput, it.ListingID, in.PharmacyID)
			}
			lineSubtotal := l.Price * it.Quantity
			subtotal += lineSubtotal
			orderItems = append(orderItems, domain.OrderItem{
				ListingID: l.ID,
				Quantity:  it.Quantity,
				UnitPrice: l.Price,
				Subtotal:  lineSubtotal,
			})
		}

		// Зональная дифференциация тарифа пока не применяется: для всех
		// заказов берётся ближний тариф.
		deliveryFee := set.DeliveryFeeNear
		commission := commissionAmount(subtotal, set.CommissionPercentage)

		o := domain.Order{
			ClientID:         in.ClientID,
			PharmacyID:       in.PharmacyID,
			DeliveryAddress:  in.DeliveryAddress,
			Subdivision:      in.Subdivision,
			Status:           domain.OrderStatusPendingConfirmation,
			PaymentStatus:    domain.PaymentStatusPending,
			PaymentMethod:    in.PaymentMethod,
			Subtotal:         subtotal,
			DeliveryFee:      deliveryFee,
			CommissionAmount: commission,
			TotalAmount:      subtotal + deliveryFee,
			ClientPhone:      in.ClientPhone,
			Notes:            in.Notes,
		}
		if err := s.orders.Create(ctx, &o); err != nil {
			return err
		}
		for i := range orderItems {
			orderItems[i].OrderID = o.ID
			if err := s.items.Create(ctx, &orderItems[i]); err != nil {
				return err
			}
		}
		d := domain.Delivery{
			OrderID:  o.ID,
			Status:   domain.DeliveryStatusPending,
			RiderFee: deliveryFee,
		}
		if err := s.deliveries.Create(ctx, &d); err != nil {
			return err
		}
		created = &o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.attachRefs(ctx, created); err != nil {
		return nil, err
	}
	metrics.OrdersCreated.Inc()
	s.events.Publish(ctx, notify.EventOrderCreated, created)
	return created, nil
}

// commissionAmount округляет subtotal×pct/100 до минимальной единицы валюты
// по правилу half-up
func commissionAmount(subtotal int64, pct decimal.Decimal) int64 {
	return decimal.NewFromInt(subtotal).
		Mul(pct).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// GetOrder возвращает заказ с присоединёнными аптекой и клиентом
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachRefs(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders возвращает заказы по фильтру, новые первыми
func (s *OrderService) ListOrders(ctx context.Context, f repository.OrderFilter) ([]domain.Order, error) {
	return s.orders.List(ctx, f)
}

// ListOrderItems возвращает строки заказа с прайс-позицией и препаратом
func (s *OrderService) ListOrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	if orderID <= 0 {
		return nil, ErrInvalidInput
	}
	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	items, err := s.items.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		l, err := s.listings.GetByID(ctx, items[i].ListingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		items[i].Listing = l
		m, err := s.medicines.GetByID(ctx, l.MedicineID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		items[i].Medicine = m
	}
	return items, nil
}

// UpdateStatus выполняет переход статусной машины заказа; недопустимый
// переход отклоняется, запись защищена проверкой версии
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, newStatus domain.OrderStatus, rejectionReason string) (*domain.Order, error) {
	if orderID <= 0 {
		return nil, ErrInvalidInput
	}
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, newStatus)
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, newStatus)
	}
	o.Status = newStatus
	if newStatus == domain.OrderStatusRejected && rejectionReason != "" {
		o.RejectionReason = rejectionReason
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	if err := s.attachRefs(ctx, o); err != nil {
		return nil, err
	}
	s.events.Publish(ctx, notify.EventOrderStatusChanged, o)
	return o, nil
}

// UpdatePaymentStatus меняет статус оплаты; на статус заказа не влияет
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, orderID int64, ps domain.PaymentStatus) (*domain.Order, error) {
	if orderID <= 0 {
		return nil, ErrInvalidInput
	}
	if !ps.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, ps)
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	o.PaymentStatus = ps
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, err
	}
	if err := s.attachRefs(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OrderService) attachRefs(ctx context.Context, o *domain.Order) error {
	p, err := s.pharmacies.GetByID(ctx, o.PharmacyID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	o.Pharmacy = p
	c, err := s.clients.GetByID(ctx, o.ClientID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	o.Client = c
	return nil
}
