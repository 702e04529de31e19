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

// DeliveryService координация доставки: назначение курьера, продвижение
// статуса доставки и зеркалирование его на родительский заказ
type DeliveryService struct {
	deliveries repository.DeliveryRepository
	orders     repository.OrderRepository
	riders     repository.RiderRepository
	pharmacies repository.PharmacyRepository
	clients    repository.ClientRepository
	tx         repository.TxManager
	events     notify.Publisher
}

func NewDeliveryService(
	deliveries repository.DeliveryRepository,
	orders repository.OrderRepository,
	riders repository.RiderRepository,
	pharmacies repository.PharmacyRepository,
	clients repository.ClientRepository,
	tx repository.TxManager,
	events notify.Publisher,
) *DeliveryService {
	return &DeliveryService{
		deliveries: deliveries,
		orders:     orders,
		riders:     riders,
		pharmacies: pharmacies,
		clients:    clients,
		tx:         tx,
		events:     events,
	}
}

// AssignRider назначает курьера на доставку и переводит её в
// on_the_way_to_pharmacy, а родительский заказ — в assigned_to_rider.
// Обе записи выполняются в одной транзакции.
func (s *DeliveryService) AssignRider(ctx context.Context, deliveryID, riderID int64) (*domain.Delivery, error) {
	if deliveryID <= 0 || riderID <= 0 {
		return nil, ErrInvalidInput
	}
	var updated *domain.Delivery
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		d, err := s.deliveries.GetByID(ctx, deliveryID)
		if err != nil {
			return err
		}
		if _, err := s.riders.GetByID(ctx, riderID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: unknown rider %d", ErrInvalidInput, riderID)
			}
			return err
		}
		if !d.Status.CanTransitionTo(domain.DeliveryStatusOnTheWayToPharmacy) {
			return fmt.Errorf("%w: delivery %s -> %s", ErrInvalidTransition, d.Status, domain.DeliveryStatusOnTheWayToPharmacy)
		}
		o, err := s.orders.GetByID(ctx, d.OrderID)
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(domain.OrderStatusAssignedToRider) {
			return fmt.Errorf("%w: order %s -> %s", ErrInvalidTransition, o.Status, domain.OrderStatusAssignedToRider)
		}
		// both transitions validated, now write
		d.RiderID = &riderID
		d.Status = domain.DeliveryStatusOnTheWayToPharmacy
		if err := s.deliveries.Update(ctx, d); err != nil {
			return err
		}
		o.Status = domain.OrderStatusAssignedToRider
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.attachRefs(ctx, updated); err != nil {
		return nil, err
	}
	s.events.Publish(ctx, notify.EventDeliveryAssigned, updated)
	return updated, nil
}

// mirroredOrderStatus сообщает, какой статус заказа соответствует новому
// статусу доставки; false — заказ не меняется
func mirroredOrderStatus(ds domain.DeliveryStatus) (domain.OrderStatus, bool) {
	switch ds {
	case domain.DeliveryStatusOnTheWayToClient:
		return domain.OrderStatusOutForDelivery, true
	case domain.DeliveryStatusDelivered:
		return domain.OrderStatusDelivered, true
	}
	return "", false
}

// UpdateStatus продвигает статус доставки, проставляет отметки времени
// забора и вручения и зеркалирует переход на родительский заказ
func (s *DeliveryService) UpdateStatus(ctx context.Context, deliveryID int64, newStatus domain.DeliveryStatus) (*domain.Delivery, error) {
	if deliveryID <= 0 {
		return nil, ErrInvalidInput
	}
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown delivery status %q", ErrInvalidInput, newStatus)
	}
	var updated *domain.Delivery
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		d, err := s.deliveries.GetByID(ctx, deliveryID)
		if err != nil {
			return err
		}
		if !d.Status.CanTransitionTo(newStatus) {
			return fmt.Errorf("%w: delivery %s -> %s", ErrInvalidTransition, d.Status, newStatus)
		}
		var o *domain.Order
		orderNext, mirror := mirroredOrderStatus(newStatus)
		if mirror {
			o, err = s.orders.GetByID(ctx, d.OrderID)
			if err != nil {
				return err
			}
			if !o.Status.CanTransitionTo(orderNext) {
				return fmt.Errorf("%w: order %s -> %s", ErrInvalidTransition, o.Status, orderNext)
			}
		}
		now := time.Now().UTC()
		switch newStatus {
		case domain.DeliveryStatusPickedUp:
			d.PickupTime = &now
		case domain.DeliveryStatusDelivered:
			d.DeliveredTime = &now
		}
		d.Status = newStatus
		if err := s.deliveries.Update(ctx, d); err != nil {
			return err
		}
		if mirror {
			o.Status = orderNext
			if err := s.orders.Update(ctx, o); err != nil {
				return err
			}
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	if newStatus == domain.DeliveryStatusDelivered {
		metrics.DeliveriesCompleted.Inc()
	}
	if err := s.attachRefs(ctx, updated); err != nil {
		return nil, err
	}
	s.events.Publish(ctx, notify.EventDeliveryStatusMoved, updated)
	return updated, nil
}

// FindPending возвращает очередь работ для курьеров: доставки в статусе
// pending без назначенного курьера
func (s *DeliveryService) FindPending(ctx context.Context) ([]domain.Delivery, error) {
	pending := domain.DeliveryStatusPending
	return s.deliveries.List(ctx, repository.DeliveryFilter{Status: &pending, Unassigned: true})
}

// ListDeliveries возвращает доставки (опционально одного курьера) с
// присоединёнными заказом, аптекой, клиентом и курьером
func (s *DeliveryService) ListDeliveries(ctx context.Context, riderID *int64) ([]domain.Delivery, error) {
	list, err := s.deliveries.List(ctx, repository.DeliveryFilter{RiderID: riderID})
	if err != nil {
		return nil, err
	}
	for i := range list {
		if err := s.attachRefs(ctx, &list[i]); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// RateDelivery сохраняет оценку курьера клиентом (1–5); оценка не влияет
// на статусы
func (s *DeliveryService) RateDelivery(ctx context.Context, deliveryID int64, rating int) (*domain.Delivery, error) {
	if deliveryID <= 0 {
		return nil, ErrInvalidInput
	}
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	d, err := s.deliveries.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	d.Rating = &rating
	if err := s.deliveries.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// GetRiderEarnings суммирует rider_fee по всем вручённым доставкам курьера
func (s *DeliveryService) GetRiderEarnings(ctx context.Context, riderID int64) (*domain.RiderEarnings, error) {
	if riderID <= 0 {
		return nil, ErrInvalidInput
	}
	if _, err := s.riders.GetByID(ctx, riderID); err != nil {
		return nil, err
	}
	delivered := domain.DeliveryStatusDelivered
	list, err := s.deliveries.List(ctx, repository.DeliveryFilter{RiderID: &riderID, Status: &delivered})
	if err != nil {
		return nil, err
	}
	var total int64
	for _, d := range list {
		total += d.RiderFee
	}
	return &domain.RiderEarnings{
		TotalEarnings:   total,
		TotalDeliveries: len(list),
		Deliveries:      list,
	}, nil
}

func (s *DeliveryService) attachRefs(ctx context.Context, d *domain.Delivery) error {
	o, err := s.orders.GetByID(ctx, d.OrderID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if o != nil {
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
	}
	d.Order = o
	if d.RiderID != nil {
		r, err := s.riders.GetByID(ctx, *d.RiderID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		d.Rider = r
	}
	return nil
}
