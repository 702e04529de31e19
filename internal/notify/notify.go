package notify

import "context"

// Publisher публикует доменные события о смене статусов. Публикация
// выполняется по принципу fire-and-forget: ошибки логируются, но не
// останавливают бизнес-операцию.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any)
}

// Имена событий (routing keys)
const (
	EventOrderCreated        = "order.created"
	EventOrderStatusChanged  = "order.status_changed"
	EventDeliveryAssigned    = "delivery.assigned"
	EventDeliveryStatusMoved = "delivery.status_changed"
	EventWithdrawalRequested = "withdrawal.requested"
	EventWithdrawalResolved  = "withdrawal.resolved"
)

// Noop используется, когда брокер не сконфигурирован
type Noop struct{}

func (Noop) Publish(context.Context, string, any) {}
