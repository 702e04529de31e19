package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Все денежные суммы хранятся в минимальных единицах валюты (int64).

// Pharmacy аптека-продавец на площадке
type Pharmacy struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Verified bool   `json:"verified"`
	Active   bool   `json:"active"`
}

// Medicine препарат в каталоге площадки
type Medicine struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
}

// Client покупатель
type Client struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Rider курьер
type Rider struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// PharmacyListing позиция аптечного прайса: препарат + цена + остаток
type PharmacyListing struct {
	ID         int64 `json:"id"`
	PharmacyID int64 `json:"pharmacy_id"`
	MedicineID int64 `json:"medicine_id"`
	Price      int64 `json:"price"`
	Stock      int64 `json:"stock"`
	Active     bool  `json:"active"`
}

// MedicineOffer результат поиска по каталогу: препарат с минимальной ценой
// среди предлагающих его аптек
type MedicineOffer struct {
	Medicine      Medicine `json:"medicine"`
	MinPrice      int64    `json:"min_price"`
	PharmacyCount int      `json:"pharmacy_count"`
}

// Order заказ клиента у одной аптеки
type Order struct {
	ID               int64         `json:"id"`
	ClientID         int64         `json:"client_id"`
	PharmacyID       int64         `json:"pharmacy_id"`
	DeliveryAddress  string        `json:"delivery_address"`
	Subdivision      string        `json:"subdivision"`
	Status           OrderStatus   `json:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	Subtotal         int64         `json:"subtotal"`
	DeliveryFee      int64         `json:"delivery_fee"`
	CommissionAmount int64         `json:"commission_amount"`
	TotalAmount      int64         `json:"total_amount"`
	RejectionReason  string        `json:"rejection_reason,omitempty"`
	ClientPhone      string        `json:"client_phone,omitempty"`
	Notes            string        `json:"notes,omitempty"`
	Version          int64         `json:"version"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`

	// joined
	Pharmacy *Pharmacy `json:"pharmacy,omitempty"`
	Client   *Client   `json:"client,omitempty"`
}

// OrderItem строка заказа; цена фиксируется на момент оформления
// и больше не меняется
type OrderItem struct {
	ID        int64 `json:"id"`
	OrderID   int64 `json:"order_id"`
	ListingID int64 `json:"listing_id"`
	Quantity  int64 `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
	Subtotal  int64 `json:"subtotal"`

	// joined
	Listing  *PharmacyListing `json:"listing,omitempty"`
	Medicine *Medicine        `json:"medicine,omitempty"`
}

// Delivery доставка заказа, ровно одна на заказ
type Delivery struct {
	ID            int64          `json:"id"`
	OrderID       int64          `json:"order_id"`
	RiderID       *int64         `json:"rider_id,omitempty"`
	Status        DeliveryStatus `json:"status"`
	PickupTime    *time.Time     `json:"pickup_time,omitempty"`
	DeliveredTime *time.Time     `json:"delivered_time,omitempty"`
	RiderFee      int64          `json:"rider_fee"`
	Rating        *int           `json:"rating,omitempty"`
	ClientNotes   string         `json:"client_notes,omitempty"`
	Version       int64          `json:"version"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`

	// joined
	Order *Order `json:"order,omitempty"`
	Rider *Rider `json:"rider,omitempty"`
}

// Withdrawal заявка аптеки на вывод накопленных средств
type Withdrawal struct {
	ID              int64            `json:"id"`
	PharmacyID      int64            `json:"pharmacy_id"`
	Amount          int64            `json:"amount"`
	Method          WithdrawalMethod `json:"method"`
	AccountNumber   string           `json:"account_number"`
	AccountName     string           `json:"account_name,omitempty"`
	BankName        string           `json:"bank_name,omitempty"`
	Status          WithdrawalStatus `json:"status"`
	TransactionRef  string           `json:"transaction_ref,omitempty"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	ProcessedAt     *time.Time       `json:"processed_at,omitempty"`
	Version         int64            `json:"version"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`

	// joined
	Pharmacy *Pharmacy `json:"pharmacy,omitempty"`
}

// PlatformSettings единственная строка глобальных настроек площадки
type PlatformSettings struct {
	ID                   int64           `json:"id"`
	DeliveryFeeNear      int64           `json:"delivery_fee_near"`
	DeliveryFeeFar       int64           `json:"delivery_fee_far"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Значения по умолчанию для первой инициализации настроек
const (
	DefaultDeliveryFeeNear = 800
	DefaultDeliveryFeeFar  = 1200
)

// DefaultCommissionPercentage комиссия площадки по умолчанию, 2%
func DefaultCommissionPercentage() decimal.Decimal {
	return decimal.NewFromFloat(2.00)
}

// PharmacyEarnings сводка по заработку аптеки
type PharmacyEarnings struct {
	TotalEarnings    int64 `json:"total_earnings"`
	TotalWithdrawn   int64 `json:"total_withdrawn"`
	PendingAmount    int64 `json:"pending_amount"`
	AvailableBalance int64 `json:"available_balance"`
	TotalOrders      int   `json:"total_orders"`
}

// RiderEarnings сводка по заработку курьера
type RiderEarnings struct {
	TotalEarnings   int64      `json:"total_earnings"`
	TotalDeliveries int        `json:"total_deliveries"`
	Deliveries      []Delivery `json:"deliveries"`
}
