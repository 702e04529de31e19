package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"remedy/internal/domain"
)

// MemoryStore объединённое in-memory хранилище и простой генератор ID
type MemoryStore struct {
	mu sync.RWMutex

	nextPharmacyID   int64
	nextMedicineID   int64
	nextClientID     int64
	nextRiderID      int64
	nextListingID    int64
	nextOrderID      int64
	nextItemID       int64
	nextDeliveryID   int64
	nextWithdrawalID int64

	pharmaciesByID  map[int64]domain.Pharmacy
	medicinesByID   map[int64]domain.Medicine
	clientsByID     map[int64]domain.Client
	ridersByID      map[int64]domain.Rider
	listingsByID    map[int64]domain.PharmacyListing
	ordersByID      map[int64]domain.Order
	itemsByID       map[int64]domain.OrderItem
	deliveriesByID  map[int64]domain.Delivery
	withdrawalsByID map[int64]domain.Withdrawal
	settings        *domain.PlatformSettings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextPharmacyID:   1,
		nextMedicineID:   1,
		nextClientID:     1,
		nextRiderID:      1,
		nextListingID:    1,
		nextOrderID:      1,
		nextItemID:       1,
		nextDeliveryID:   1,
		nextWithdrawalID: 1,
		pharmaciesByID:   make(map[int64]domain.Pharmacy),
		medicinesByID:    make(map[int64]domain.Medicine),
		clientsByID:      make(map[int64]domain.Client),
		ridersByID:       make(map[int64]domain.Rider),
		listingsByID:     make(map[int64]domain.PharmacyListing),
		ordersByID:       make(map[int64]domain.Order),
		itemsByID:        make(map[int64]domain.OrderItem),
		deliveriesByID:   make(map[int64]domain.Delivery),
		withdrawalsByID:  make(map[int64]domain.Withdrawal),
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// Для in-memory используем блокировку записи и помечаем контекст, чтобы репозитории пропускали внутренние локи.
	// Откат при ошибке невозможен, поэтому fn обязана писать только после всех проверок.
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, true)
	return fn(ctx)
}

var _ TxManager = (*MemoryTx)(nil)

// MemoryPharmacies справочник аптек
type MemoryPharmacies struct{ store *MemoryStore }

func NewMemoryPharmacies(store *MemoryStore) *MemoryPharmacies { return &MemoryPharmacies{store: store} }

var _ PharmacyRepository = (*MemoryPharmacies)(nil)

func (r *MemoryPharmacies) Create(ctx context.Context, p *domain.Pharmacy) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	p.ID = r.store.nextPharmacyID
	r.store.nextPharmacyID++
	r.store.pharmaciesByID[p.ID] = *p
	return nil
}

func (r *MemoryPharmacies) GetByID(ctx context.Context, id int64) (*domain.Pharmacy, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	p, ok := r.store.pharmaciesByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (r *MemoryPharmacies) List(ctx context.Context) ([]domain.Pharmacy, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]domain.Pharmacy, 0, len(r.store.pharmaciesByID))
	for _, p := range r.store.pharmaciesByID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MemoryMedicines справочник препаратов
type MemoryMedicines struct{ store *MemoryStore }

func NewMemoryMedicines(store *MemoryStore) *MemoryMedicines { return &MemoryMedicines{store: store} }

var _ MedicineRepository = (*MemoryMedicines)(nil)

func (r *MemoryMedicines) Create(ctx context.Context, m *domain.Medicine) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	m.ID = r.store.nextMedicineID
	r.store.nextMedicineID++
	r.store.medicinesByID[m.ID] = *m
	return nil
}

func (r *MemoryMedicines) GetByID(ctx context.Context, id int64) (*domain.Medicine, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	m, ok := r.store.medicinesByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := m
	return &cp, nil
}

func (r *MemoryMedicines) List(ctx context.Context, f MedicineFilter) ([]domain.Medicine, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]domain.Medicine, 0)
	for _, m := range r.store.medicinesByID {
		if !containsIgnoreCase(m.Name, f.Query) {
			continue
		}
		if f.Category != "" && m.Category != f.Category {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MemoryClients справочник покупателей
type MemoryClients struct{ store *MemoryStore }

func NewMemoryClients(store *MemoryStore) *MemoryClients { return &MemoryClients{store: store} }

var _ ClientRepository = (*MemoryClients)(nil)

func (r *MemoryClients) Create(ctx context.Context, c *domain.Client) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	c.ID = r.store.nextClientID
	r.store.nextClientID++
	r.store.clientsByID[c.ID] = *c
	return nil
}

func (r *MemoryClients) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	c, ok := r.store.clientsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := c
	return &cp, nil
}

// MemoryRiders справочник курьеров
type MemoryRiders struct{ store *MemoryStore }

func NewMemoryRiders(store *MemoryStore) *MemoryRiders { return &MemoryRiders{store: store} }

var _ RiderRepository = (*MemoryRiders)(nil)

func (r *MemoryRiders) Create(ctx context.Context, rd *domain.Rider) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	rd.ID = r.store.nextRiderID
	r.store.nextRiderID++
	r.store.ridersByID[rd.ID] = *rd
	return nil
}

func (r *MemoryRiders) GetByID(ctx context.Context, id int64) (*domain.Rider, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	rd, ok := r.store.ridersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := rd
	return &cp, nil
}

// MemoryListings прайс-позиции аптек
type MemoryListings struct{ store *MemoryStore }

func NewMemoryListings(store *MemoryStore) *MemoryListings { return &MemoryListings{store: store} }

var _ ListingRepository = (*MemoryListings)(nil)

func (r *MemoryListings) Create(ctx context.Context, l *domain.PharmacyListing) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	l.ID = r.store.nextListingID
	r.store.nextListingID++
	r.store.listingsByID[l.ID] = *l
	return nil
}

func (r *MemoryListings) GetByID(ctx context.Context, id int64) (*domain.PharmacyListing, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	l, ok := r.store.listingsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := l
	return &cp, nil
}

func (r *MemoryListings) Update(ctx context.Context, l *domain.PharmacyListing) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if _, ok := r.store.listingsByID[l.ID]; !ok {
		return ErrNotFound
	}
	r.store.listingsByID[l.ID] = *l
	return nil
}

func (r *MemoryListings) ListByPharmacy(ctx context.Context, pharmacyID int64) ([]domain.PharmacyListing, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]domain.PharmacyListing, 0)
	for _, l := range r.store.listingsByID {
		if l.PharmacyID == pharmacyID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryListings) ListActive(ctx context.Context) ([]domain.PharmacyListing, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]domain.PharmacyListing, 0)
	for _, l := range r.store.listingsByID {
		if l.Active {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MemoryOrders заказы
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (r *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	o.ID = r.store.nextOrderID
	r.store.nextOrderID++
	o.Version = 1
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	stored := *o
	stored.Pharmacy = nil
	stored.Client = nil
	r.store.ordersByID[o.ID] = stored
	return nil
}

func (r *MemoryOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	o, ok := r.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := o
	return &cp, nil
}

func (r *MemoryOrders) Update(ctx context.Context, o *domain.Order) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	cur, ok := r.store.ordersByID[o.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != o.Version {
		return ErrConflict
	}
	o.Version++
	o.UpdatedAt = time.Now().UTC()
	stored := *o
	stored.Pharmacy = nil
	stored.Client = nil
	r.store.ordersByID[o.ID] = stored
	return nil
}

func (r *MemoryOrders) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]domain.Order, 0)
	for _, o := range r.store.ordersByID {
		if f.ClientID != nil && o.ClientID != *f.ClientID {
			continue
		}
		if f.PharmacyID != nil && o.PharmacyID != *f.PharmacyID {
			continue
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		out = append(out, o)
	}
	// newest first
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// MemoryOrderItems строки заказов
type MemoryOrderItems struct{ store *MemoryStore }

func NewMemoryOrderItems(store *MemoryStore) *MemoryOrderItems { return &MemoryOrderItems{store: store} }

var _ OrderItemRepository = (*MemoryOrderItems)(nil)

func (r *MemoryOrderItems) Create(ctx context.Context, it *domain.OrderItem) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	it.ID = r.store.nextItemID
	r.store.nextItemID++
	stored := *it
	stored.Listing = nil
	stored.Medicine = nil
	r.store.itemsByID[it.ID] = stored
	return nil
}

func (r *MemoryOrderItems) ListByOrder(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]domain.OrderItem, 0)
	for _, it := range r.store.itemsByID {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MemoryDeliveries доставки
type MemoryDeliveries struct{ store *MemoryStore }

func NewMemoryDeliveries(store *MemoryStore) *MemoryDeliveries { return &MemoryDeliveries{store: store} }

var _ DeliveryRepository = (*MemoryDeliveries)(nil)

func (r *MemoryDeliveries) Create(ctx context.Context, d *domain.Delivery) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	d.ID = r.store.nextDeliveryID
	r.store.nextDeliveryID++
	d.Version = 1
	d.CreatedAt = time.Now().UTC()
	d.UpdatedAt = d.CreatedAt
	stored := *d
	stored.Order = nil
	stored.Rider = nil
	r.store.deliveriesByID[d.ID] = stored
	return nil
}

func (r *MemoryDeliveries) GetByID(ctx context.Context, id int64) (*domain.Delivery, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	d, ok := r.store.deliveriesByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := d
	return &cp, nil
}

func (r *MemoryDeliveries) GetByOrderID(ctx context.Context, orderID int64) (*domain.Delivery, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	for _, d := range r.store.deliveriesByID {
		if d.OrderID == orderID {
			cp := d
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryDeliveries) Update(ctx context.Context, d *domain.Delivery) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	cur, ok := r.store.deliveriesByID[d.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != d.Version {
		return ErrConflict
	}
	d.Version++
	d.UpdatedAt = time.Now().UTC()
	stored := *d
	stored.Order = nil
	stored.Rider = nil
	r.store.deliveriesByID[d.ID] = stored
	return nil
}

func (r *MemoryDeliveries) List(ctx context.Context, f DeliveryFilter) ([]domain.Delivery, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]domain.Delivery, 0)
	for _, d := range r.store.deliveriesByID {
		if f.RiderID != nil && (d.RiderID == nil || *d.RiderID != *f.RiderID) {
			continue
		}
		if f.Status != nil && d.Status != *f.Status {
			continue
		}
		if f.Unassigned && d.RiderID != nil {
			continue
		}
		out = append(out, d)
	}
	// newest first
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// MemoryWithdrawals заявки на вывод
type MemoryWithdrawals struct{ store *MemoryStore }

func NewMemoryWithdrawals(store *MemoryStore) *MemoryWithdrawals {
	return &MemoryWithdrawals{store: store}
}

var _ WithdrawalRepository = (*MemoryWithdrawals)(nil)

func (r *MemoryWithdrawals) Create(ctx context.Context, w *domain.Withdrawal) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	w.ID = r.store.nextWithdrawalID
	r.store.nextWithdrawalID++
	w.Version = 1
	w.CreatedAt = time.Now().UTC()
	w.UpdatedAt = w.CreatedAt
	stored := *w
	stored.Pharmacy = nil
	r.store.withdrawalsByID[w.ID] = stored
	return nil
}

func (r *MemoryWithdrawals) GetByID(ctx context.Context, id int64) (*domain.Withdrawal, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	w, ok := r.store.withdrawalsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := w
	return &cp, nil
}

func (r *MemoryWithdrawals) Update(ctx context.Context, w *domain.Withdrawal) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	cur, ok := r.store.withdrawalsByID[w.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != w.Version {
		return ErrConflict
	}
	w.Version++
	w.UpdatedAt = time.Now().UTC()
	stored := *w
	stored.Pharmacy = nil
	r.store.withdrawalsByID[w.ID] = stored
	return nil
}

func (r *MemoryWithdrawals) ListByPharmacy(ctx context.Context, pharmacyID int64) ([]domain.Withdrawal, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]domain.Withdrawal, 0)
	for _, w := range r.store.withdrawalsByID {
		if w.PharmacyID == pharmacyID {
			out = append(out, w)
		}
	}
	// newest first
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *MemoryWithdrawals) ListOpen(ctx context.Context) ([]domain.Withdrawal, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]domain.Withdrawal, 0)
	for _, w := range r.store.withdrawalsByID {
		if w.Status.Open() {
			out = append(out, w)
		}
	}
	// oldest first: FIFO queue for the administrator
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MemorySettings единственная строка настроек
type MemorySettings struct{ store *MemoryStore }

func NewMemorySettings(store *MemoryStore) *MemorySettings { return &MemorySettings{store: store} }

var _ SettingsRepository = (*MemorySettings)(nil)

func (r *MemorySettings) Get(ctx context.Context) (*domain.PlatformSettings, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	if r.store.settings == nil {
		return nil, ErrNotFound
	}
	cp := *r.store.settings
	return &cp, nil
}

func (r *MemorySettings) Save(ctx context.Context, s *domain.PlatformSettings) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	s.ID = 1
	s.UpdatedAt = time.Now().UTC()
	cp := *s
	r.store.settings = &cp
	return nil
}

func (r *MemorySettings) Ensure(ctx context.Context, defaults domain.PlatformSettings) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if r.store.settings != nil {
		return nil
	}
	defaults.ID = 1
	defaults.UpdatedAt = time.Now().UTC()
	cp := defaults
	r.store.settings = &cp
	return nil
}
