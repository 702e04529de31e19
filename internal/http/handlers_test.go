package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"remedy/internal/notify"
	"remedy/internal/repository"
	"remedy/internal/service"
)

func setupServer(t *testing.T) *Server {
	t.Helper()
	store := repository.NewMemoryStore()
	pharmacies := repository.NewMemoryPharmacies(store)
	medicines := repository.NewMemoryMedicines(store)
	clients := repository.NewMemoryClients(store)
	riders := repository.NewMemoryRiders(store)
	listings := repository.NewMemoryListings(store)
	orders := repository.NewMemoryOrders(store)
	items := repository.NewMemoryOrderItems(store)
	deliveries := repository.NewMemoryDeliveries(store)
	withdrawals := repository.NewMemoryWithdrawals(store)
	settings := repository.NewMemorySettings(store)
	tx := repository.NewMemoryTx(store)

	settingsSvc := service.NewSettingsService(settings)
	if err := settingsSvc.EnsureDefaults(context.Background()); err != nil {
		t.Fatalf("ensure settings: %v", err)
	}

	events := notify.Noop{}
	registrySvc := service.NewRegistryService(pharmacies, clients, riders)
	catalogSvc := service.NewCatalogService(listings, medicines, pharmacies)
	orderSvc := service.NewOrderService(orders, items, deliveries, listings, medicines, settings, clients, pharmacies, tx, events)
	deliverySvc := service.NewDeliveryService(deliveries, orders, riders, pharmacies, clients, tx, events)
	ledgerSvc := service.NewLedgerService(orders, withdrawals, pharmacies, tx, events)

	return NewServer(zap.NewNop(), registrySvc, catalogSvc, orderSvc, deliverySvc, ledgerSvc, settingsSvc)
}

type actor struct {
	id   string
	role string
}

var (
	admin  = actor{id: "1", role: RoleAdmin}
	nobody = actor{}
)

func doJSON(t *testing.T, s *Server, method, path string, who actor, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if who.id != "" {
		req.Header.Set("X-Actor-ID", who.id)
	}
	if who.role != "" {
		req.Header.Set("X-Actor-Role", who.role)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

// seedMarket регистрирует аптеку, препарат, позицию, клиента и курьера
func seedMarket(t *testing.T, s *Server) {
	t.Helper()
	steps := []struct {
		path string
		body map[string]any
	}{
		{"/api/v1/pharmacies", map[string]any{"name": "Central", "verified": true, "active": true}},
		{"/api/v1/medicines", map[string]any{"name": "Paracetamol", "category": "painkiller"}},
		{"/api/v1/listings", map[string]any{"pharmacy_id": 1, "medicine_id": 1, "price": 1500, "stock": 10, "active": true}},
		{"/api/v1/clients", map[string]any{"name": "Amina"}},
		{"/api/v1/riders", map[string]any{"name": "Musa"}},
	}
	for _, st := range steps {
		if w := doJSON(t, s, http.MethodPost, st.path, admin, st.body); w.Code != http.StatusCreated {
			t.Fatalf("seed %s: code %v body %s", st.path, w.Code, w.Body.String())
		}
	}
}

func TestRoleEnforcement(t *testing.T) {
	s := setupServer(t)

	// без роли и с чужой ролью — 403
	if w := doJSON(t, s, http.MethodPost, "/api/v1/pharmacies", nobody, map[string]any{"name": "X"}); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", w.Code)
	}
	if w := doJSON(t, s, http.MethodPost, "/api/v1/pharmacies", actor{id: "1", role: RoleClient}, map[string]any{"name": "X"}); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", w.Code)
	}
	if w := doJSON(t, s, http.MethodGet, "/api/v1/settings", actor{id: "1", role: RolePharmacy}, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for settings, got %v", w.Code)
	}
	if w := doJSON(t, s, http.MethodGet, "/api/v1/withdrawals/pending", actor{id: "1", role: RolePharmacy}, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin queue, got %v", w.Code)
	}

	// публичные чтения доступны без роли
	if w := doJSON(t, s, http.MethodGet, "/api/v1/pharmacies", nobody, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %v", w.Code)
	}
	if w := doJSON(t, s, http.MethodGet, "/api/v1/medicines?q=asp", nobody, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %v", w.Code)
	}
}

func TestOrderAndDeliveryFlow(t *testing.T) {
	s := setupServer(t)
	seedMarket(t, s)
	client := actor{id: "1", role: RoleClient}
	pharmacy := actor{id: "1", role: RolePharmacy}
	rider := actor{id: "1", role: RoleRider}

	// клиент оформляет заказ; client_id берётся из заголовка актора
	w := doJSON(t, s, http.MethodPost, "/api/v1/orders", client, map[string]any{
		"pharmacy_id":      1,
		"delivery_address": "12 Market Rd",
		"payment_method":   "cash_on_delivery",
		"items":            []map[string]any{{"listing_id": 1, "quantity": 2}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create order: code %v body %s", w.Code, w.Body.String())
	}
	var order struct {
		ID          int64 `json:"id"`
		Subtotal    int64 `json:"subtotal"`
		TotalAmount int64 `json:"total_amount"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.Subtotal != 3000 || order.TotalAmount != 3800 {
		t.Fatalf("order totals wrong: %+v", order)
	}

	// аптека подтверждает и готовит
	for _, status := range []string{"accepted", "prepared"} {
		w = doJSON(t, s, http.MethodPatch, "/api/v1/orders/1/status", pharmacy, map[string]any{"status": status})
		if w.Code != http.StatusOK {
			t.Fatalf("status %s: code %v body %s", status, w.Code, w.Body.String())
		}
	}

	// курьер видит очередь и забирает доставку себе
	w = doJSON(t, s, http.MethodGet, "/api/v1/deliveries/pending", rider, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pending: code %v", w.Code)
	}
	w = doJSON(t, s, http.MethodPost, "/api/v1/deliveries/1/assign", rider, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("assign: code %v body %s", w.Code, w.Body.String())
	}

	for _, status := range []string{"picked_up", "on_the_way_to_client", "delivered"} {
		w = doJSON(t, s, http.MethodPatch, "/api/v1/deliveries/1/status", rider, map[string]any{"status": status})
		if w.Code != http.StatusOK {
			t.Fatalf("delivery %s: code %v body %s", status, w.Code, w.Body.String())
		}
	}

	// заказ вручён, клиент ставит оценку
	w = doJSON(t, s, http.MethodGet, "/api/v1/orders/1", nobody, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get order: code %v", w.Code)
	}
	var after struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &after); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if after.Status != "delivered" {
		t.Fatalf("expected delivered, got %s", after.Status)
	}
	w = doJSON(t, s, http.MethodPost, "/api/v1/deliveries/1/rating", client, map[string]any{"rating": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("rating: code %v body %s", w.Code, w.Body.String())
	}

	// заработок курьера
	w = doJSON(t, s, http.MethodGet, "/api/v1/riders/me/earnings", rider, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("rider earnings: code %v", w.Code)
	}
	var earnings struct {
		TotalEarnings   int64 `json:"total_earnings"`
		TotalDeliveries int   `json:"total_deliveries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &earnings); err != nil {
		t.Fatalf("decode earnings: %v", err)
	}
	if earnings.TotalEarnings != 800 || earnings.TotalDeliveries != 1 {
		t.Fatalf("earnings wrong: %+v", earnings)
	}
}

func TestWithdrawalFlow(t *testing.T) {
	s := setupServer(t)
	seedMarket(t, s)
	client := actor{id: "1", role: RoleClient}
	pharmacy := actor{id: "1", role: RolePharmacy}
	rider := actor{id: "1", role: RoleRider}

	// довести заказ до delivered, чтобы появился заработок
	w := doJSON(t, s, http.MethodPost, "/api/v1/orders", client, map[string]any{
		"pharmacy_id":      1,
		"delivery_address": "12 Market Rd",
		"payment_method":   "card",
		"items":            []map[string]any{{"listing_id": 1, "quantity": 2}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create order: %v", w.Code)
	}
	for _, status := range []string{"accepted", "prepared"} {
		doJSON(t, s, http.MethodPatch, "/api/v1/orders/1/status", pharmacy, map[string]any{"status": status})
	}
	doJSON(t, s, http.MethodPost, "/api/v1/deliveries/1/assign", rider, nil)
	for _, status := range []string{"picked_up", "on_the_way_to_client", "delivered"} {
		doJSON(t, s, http.MethodPatch, "/api/v1/deliveries/1/status", rider, map[string]any{"status": status})
	}

	// сводка по заработку: 3000 + доставка 800
	w = doJSON(t, s, http.MethodGet, "/api/v1/pharmacies/1/earnings", pharmacy, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("earnings: code %v body %s", w.Code, w.Body.String())
	}
	var e struct {
		AvailableBalance int64 `json:"available_balance"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.AvailableBalance != 3800 {
		t.Fatalf("expected 3800 available, got %d", e.AvailableBalance)
	}

	// ниже минимума — 400
	w = doJSON(t, s, http.MethodPost, "/api/v1/withdrawals", pharmacy, map[string]any{
		"amount": 999, "method": "bank", "account_number": "001",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/withdrawals", pharmacy, map[string]any{
		"amount": 2000, "method": "bank", "account_number": "001",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("request withdrawal: code %v body %s", w.Code, w.Body.String())
	}

	// админ видит очередь и проводит заявку
	w = doJSON(t, s, http.MethodGet, "/api/v1/withdrawals/pending", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("queue: code %v", w.Code)
	}
	w = doJSON(t, s, http.MethodPatch, "/api/v1/withdrawals/1/status", admin, map[string]any{"status": "processing"})
	if w.Code != http.StatusOK {
		t.Fatalf("processing: code %v body %s", w.Code, w.Body.String())
	}
	w = doJSON(t, s, http.MethodPatch, "/api/v1/withdrawals/1/status", admin, map[string]any{"status": "completed", "transaction_ref": "TX1"})
	if w.Code != http.StatusOK {
		t.Fatalf("completed: code %v body %s", w.Code, w.Body.String())
	}
	// повторное завершение — конфликт статусной машины
	w = doJSON(t, s, http.MethodPatch, "/api/v1/withdrawals/1/status", admin, map[string]any{"status": "completed"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", w.Code)
	}
}

func TestHTTP_ErrorMapping(t *testing.T) {
	s := setupServer(t)
	seedMarket(t, s)

	// not found
	if w := doJSON(t, s, http.MethodGet, "/api/v1/orders/999", nobody, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", w.Code)
	}
	if w := doJSON(t, s, http.MethodGet, "/api/v1/pharmacies/999", nobody, nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", w.Code)
	}

	// invalid id
	if w := doJSON(t, s, http.MethodGet, "/api/v1/orders/abc", nobody, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", w.Code)
	}

	// unknown status filter
	if w := doJSON(t, s, http.MethodGet, "/api/v1/orders?status=bogus", nobody, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", w.Code)
	}

	// invalid order body
	client := actor{id: "1", role: RoleClient}
	w := doJSON(t, s, http.MethodPost, "/api/v1/orders", client, map[string]any{
		"pharmacy_id": 1, "delivery_address": "a", "payment_method": "cash_on_delivery",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty cart, got %v", w.Code)
	}

	// illegal transition -> 409
	w = doJSON(t, s, http.MethodPost, "/api/v1/orders", client, map[string]any{
		"pharmacy_id":      1,
		"delivery_address": "a",
		"payment_method":   "cash_on_delivery",
		"items":            []map[string]any{{"listing_id": 1, "quantity": 1}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create order: %v", w.Code)
	}
	pharmacy := actor{id: "1", role: RolePharmacy}
	w = doJSON(t, s, http.MethodPatch, "/api/v1/orders/1/status", pharmacy, map[string]any{"status": "delivered"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v body %s", w.Code, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	s := setupServer(t)
	if w := doJSON(t, s, http.MethodGet, "/health", nobody, nil); w.Code != http.StatusOK {
		t.Fatalf("health: %v", w.Code)
	}
}
