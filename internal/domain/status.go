package domain

// OrderStatus статус заказа
type OrderStatus string

const (
	OrderStatusPendingConfirmation OrderStatus = "pending_pharmacy_confirmation"
	OrderStatusAccepted            OrderStatus = "accepted"
	OrderStatusRejected            OrderStatus = "rejected"
	OrderStatusPrepared            OrderStatus = "prepared"
	OrderStatusAssignedToRider     OrderStatus = "assigned_to_rider"
	OrderStatusOutForDelivery      OrderStatus = "out_for_delivery"
	OrderStatusDelivered           OrderStatus = "delivered"
	OrderStatusCancelled           OrderStatus = "cancelled"
)

// Таблица допустимых переходов статусов заказа. Отмена разрешена из любого
// нетерминального статуса и обрабатывается в CanTransitionTo отдельно.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingConfirmation: {OrderStatusAccepted, OrderStatusRejected},
	OrderStatusAccepted:            {OrderStatusPrepared},
	OrderStatusPrepared:            {OrderStatusAssignedToRider},
	OrderStatusAssignedToRider:     {OrderStatusOutForDelivery},
	OrderStatusOutForDelivery:      {OrderStatusDelivered},
}

// Terminal сообщает, является ли статус конечным
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusRejected || s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Valid проверяет, что значение входит в закрытое множество статусов
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPendingConfirmation, OrderStatusAccepted, OrderStatusRejected,
		OrderStatusPrepared, OrderStatusAssignedToRider, OrderStatusOutForDelivery,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo проверяет переход по таблице переходов
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if next == OrderStatusCancelled {
		return !s.Terminal()
	}
	for _, t := range orderTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// PaymentStatus статус оплаты; фиксируется, но не обрабатывается платёжным шлюзом
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusRefunded:
		return true
	}
	return false
}

// PaymentMethod способ оплаты
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodMobileMoney    PaymentMethod = "mobile_money"
	PaymentMethodCard           PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCashOnDelivery, PaymentMethodMobileMoney, PaymentMethodCard:
		return true
	}
	return false
}

// DeliveryStatus статус доставки
type DeliveryStatus string

const (
	DeliveryStatusPending            DeliveryStatus = "pending"
	DeliveryStatusOnTheWayToPharmacy DeliveryStatus = "on_the_way_to_pharmacy"
	DeliveryStatusPickedUp           DeliveryStatus = "picked_up"
	DeliveryStatusOnTheWayToClient   DeliveryStatus = "on_the_way_to_client"
	DeliveryStatusDelivered          DeliveryStatus = "delivered"
)

var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryStatusPending:            {DeliveryStatusOnTheWayToPharmacy},
	DeliveryStatusOnTheWayToPharmacy: {DeliveryStatusPickedUp},
	DeliveryStatusPickedUp:           {DeliveryStatusOnTheWayToClient},
	DeliveryStatusOnTheWayToClient:   {DeliveryStatusDelivered},
}

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusOnTheWayToPharmacy, DeliveryStatusPickedUp,
		DeliveryStatusOnTheWayToClient, DeliveryStatusDelivered:
		return true
	}
	return false
}

func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	for _, t := range deliveryTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// WithdrawalStatus статус заявки на вывод
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusRejected   WithdrawalStatus = "rejected"
)

var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalStatusPending:    {WithdrawalStatusProcessing, WithdrawalStatusRejected},
	WithdrawalStatusProcessing: {WithdrawalStatusCompleted, WithdrawalStatusRejected},
}

func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalStatusPending, WithdrawalStatusProcessing,
		WithdrawalStatusCompleted, WithdrawalStatusRejected:
		return true
	}
	return false
}

func (s WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	for _, t := range withdrawalTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Open сообщает, учитывается ли заявка как "в обработке" при расчёте баланса
func (s WithdrawalStatus) Open() bool {
	return s == WithdrawalStatusPending || s == WithdrawalStatusProcessing
}

// WithdrawalMethod способ выплаты
type WithdrawalMethod string

const (
	WithdrawalMethodMobileMoney WithdrawalMethod = "mobile_money"
	WithdrawalMethodBank        WithdrawalMethod = "bank"
)

func (m WithdrawalMethod) Valid() bool {
	return m == WithdrawalMethodMobileMoney || m == WithdrawalMethodBank
}
