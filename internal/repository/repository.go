package repository

import (
	"context"
	"errors"
	"strings"

	"remedy/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена
var ErrNotFound = errors.New("not found")

// ErrConflict возвращается при несовпадении версии записи (конкурентное изменение)
var ErrConflict = errors.New("version conflict")

// OrderFilter параметры фильтрации списка заказов
type OrderFilter struct {
	ClientID   *int64
	PharmacyID *int64
	Status     *domain.OrderStatus
}

// DeliveryFilter параметры фильтрации списка доставок
type DeliveryFilter struct {
	RiderID *int64
	Status  *domain.DeliveryStatus
	// Unassigned оставляет только доставки без назначенного курьера
	Unassigned bool
}

// MedicineFilter параметры поиска по каталогу препаратов
type MedicineFilter struct {
	Query    string
	Category string
}

// PharmacyRepository справочник аптек
type PharmacyRepository interface {
	Create(ctx context.Context, p *domain.Pharmacy) error
	GetByID(ctx context.Context, id int64) (*domain.Pharmacy, error)
	List(ctx context.Context) ([]domain.Pharmacy, error)
}

// MedicineRepository справочник препаратов
type MedicineRepository interface {
	Create(ctx context.Context, m *domain.Medicine) error
	GetByID(ctx context.Context, id int64) (*domain.Medicine, error)
	List(ctx context.Context, f MedicineFilter) ([]domain.Medicine, error)
}

// ClientRepository справочник покупателей
type ClientRepository interface {
	Create(ctx context.Context, c *domain.Client) error
	GetByID(ctx context.Context, id int64) (*domain.Client, error)
}

// RiderRepository справочник курьеров
type RiderRepository interface {
	Create(ctx context.Context, r *domain.Rider) error
	GetByID(ctx context.Context, id int64) (*domain.Rider, error)
}

// ListingRepository прайс-позиции аптек
type ListingRepository interface {
	Create(ctx context.Context, l *domain.PharmacyListing) error
	GetByID(ctx context.Context, id int64) (*domain.PharmacyListing, error)
	Update(ctx context.Context, l *domain.PharmacyListing) error
	ListByPharmacy(ctx context.Context, pharmacyID int64) ([]domain.PharmacyListing, error)
	ListActive(ctx context.Context) ([]domain.PharmacyListing, error)
}

// OrderRepository заказы. Update проверяет версию записи и при несовпадении
// возвращает ErrConflict.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	// List возвращает заказы по фильтру, новые первыми
	List(ctx context.Context, f OrderFilter) ([]domain.Order, error)
}

// OrderItemRepository строки заказов; создаются один раз вместе с заказом
type OrderItemRepository interface {
	Create(ctx context.Context, it *domain.OrderItem) error
	ListByOrder(ctx context.Context, orderID int64) ([]domain.OrderItem, error)
}

// DeliveryRepository доставки. Update проверяет версию записи.
type DeliveryRepository interface {
	Create(ctx context.Context, d *domain.Delivery) error
	GetByID(ctx context.Context, id int64) (*domain.Delivery, error)
	GetByOrderID(ctx context.Context, orderID int64) (*domain.Delivery, error)
	Update(ctx context.Context, d *domain.Delivery) error
	// List возвращает доставки по фильтру, новые первыми
	List(ctx context.Context, f DeliveryFilter) ([]domain.Delivery, error)
}

// WithdrawalRepository заявки на вывод средств
type WithdrawalRepository interface {
	Create(ctx context.Context, w *domain.Withdrawal) error
	GetByID(ctx context.Context, id int64) (*domain.Withdrawal, error)
	Update(ctx context.Context, w *domain.Withdrawal) error
	// ListByPharmacy возвращает все заявки аптеки, новые первыми
	ListByPharmacy(ctx context.Context, pharmacyID int64) ([]domain.Withdrawal, error)
	// ListOpen возвращает заявки в статусах pending/processing по всей
	// площадке, старые первыми (очередь администратора)
	ListOpen(ctx context.Context) ([]domain.Withdrawal, error)
}

// SettingsRepository единственная строка настроек площадки
type SettingsRepository interface {
	Get(ctx context.Context) (*domain.PlatformSettings, error)
	Save(ctx context.Context, s *domain.PlatformSettings) error
	// Ensure создаёт строку настроек со значениями по умолчанию, если её ещё
	// нет; повторный вызов ничего не меняет
	Ensure(ctx context.Context, defaults domain.PlatformSettings) error
}

// TxManager абстракция транзакции. Для in-memory — глобальная блокировка записи.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
