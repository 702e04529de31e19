package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"remedy/internal/domain"
	"remedy/internal/repository"
	"remedy/internal/service"
)

// Роли участников; проставляются внешним шлюзом после аутентификации
const (
	RoleAdmin    = "admin"
	RolePharmacy = "pharmacy"
	RoleRider    = "rider"
	RoleClient   = "client"
)

type Server struct {
	engine     *gin.Engine
	log        *zap.Logger
	registry   *service.RegistryService
	catalog    *service.CatalogService
	orders     *service.OrderService
	deliveries *service.DeliveryService
	ledger     *service.LedgerService
	settings   *service.SettingsService
}

func NewServer(
	log *zap.Logger,
	registry *service.RegistryService,
	catalog *service.CatalogService,
	orders *service.OrderService,
	deliveries *service.DeliveryService,
	ledger *service.LedgerService,
	settings *service.SettingsService,
) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	s := &Server{
		engine:     r,
		log:        log,
		registry:   registry,
		catalog:    catalog,
		orders:     orders,
		deliveries: deliveries,
		ledger:     ledger,
		settings:   settings,
	}
	r.Use(s.requestLogger())
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

// requestLogger структурный access-лог вместо gin.Logger()
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

// requireRole централизованный предикат авторизации: роль актора приходит
// в заголовке X-Actor-Role от внешнего шлюза
func requireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetHeader("X-Actor-Role")
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// actorID идентификатор актора из заголовка X-Actor-ID
func actorID(c *gin.Context) int64 {
	id, err := strconv.ParseInt(c.GetHeader("X-Actor-ID"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	v1 := s.engine.Group("/api/v1")
	{
		pharmacies := v1.Group("/pharmacies")
		pharmacies.POST("", requireRole(RoleAdmin), s.createPharmacy)
		pharmacies.GET("", s.listPharmacies)
		pharmacies.GET(":id", s.getPharmacy)
		pharmacies.GET(":id/listings", s.listPharmacyListings)
		pharmacies.GET(":id/earnings", requireRole(RolePharmacy, RoleAdmin), s.pharmacyEarnings)
		pharmacies.GET(":id/withdrawals", requireRole(RolePharmacy, RoleAdmin), s.listPharmacyWithdrawals)

		medicines := v1.Group("/medicines")
		medicines.POST("", requireRole(RoleAdmin), s.createMedicine)
		medicines.GET("", s.searchMedicines)

		listings := v1.Group("/listings")
		listings.POST("", requireRole(RolePharmacy, RoleAdmin), s.createListing)
		listings.GET(":id", s.getListing)
		listings.PUT(":id", requireRole(RolePharmacy, RoleAdmin), s.updateListing)

		clients := v1.Group("/clients")
		clients.POST("", requireRole(RoleAdmin), s.createClient)

		riders := v1.Group("/riders")
		riders.POST("", requireRole(RoleAdmin), s.createRider)
		riders.GET("me/earnings", requireRole(RoleRider), s.riderEarnings)

		orders := v1.Group("/orders")
		orders.POST("", requireRole(RoleClient), s.createOrder)
		orders.GET("", s.listOrders)
		orders.GET(":id", s.getOrder)
		orders.GET(":id/items", s.listOrderItems)
		orders.PATCH(":id/status", requireRole(RolePharmacy, RoleAdmin), s.updateOrderStatus)
		orders.PATCH(":id/payment", requireRole(RolePharmacy, RoleAdmin), s.updatePaymentStatus)

		deliveries := v1.Group("/deliveries")
		deliveries.GET("", requireRole(RoleRider, RoleAdmin), s.listDeliveries)
		deliveries.GET("pending", requireRole(RoleRider, RoleAdmin), s.pendingDeliveries)
		deliveries.POST(":id/assign", requireRole(RoleRider, RoleAdmin), s.assignRider)
		deliveries.PATCH(":id/status", requireRole(RoleRider, RoleAdmin), s.updateDeliveryStatus)
		deliveries.POST(":id/rating", requireRole(RoleClient), s.rateDelivery)

		withdrawals := v1.Group("/withdrawals")
		withdrawals.POST("", requireRole(RolePharmacy), s.requestWithdrawal)
		withdrawals.GET("pending", requireRole(RoleAdmin), s.pendingWithdrawals)
		withdrawals.PATCH(":id/status", requireRole(RoleAdmin), s.updateWithdrawalStatus)

		settings := v1.Group("/settings")
		settings.GET("", requireRole(RoleAdmin), s.getSettings)
		settings.PATCH("", requireRole(RoleAdmin), s.updateSettings)
	}
}

// Registry handlers
type createPharmacyReq struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Verified bool   `json:"verified"`
	Active   bool   `json:"active"`
}

// @Summary Register pharmacy
// @Tags pharmacies
// @Accept json
// @Produce json
// @Param input body createPharmacyReq true "Pharmacy"
// @Success 201 {object} domain.Pharmacy
// @Failure 400 {object} map[string]string
// @Router /pharmacies [post]
func (s *Server) createPharmacy(c *gin.Context) {
	var req createPharmacyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.registry.CreatePharmacy(c, domain.Pharmacy{
		Name: req.Name, Phone: req.Phone, Address: req.Address,
		Verified: req.Verified, Active: req.Active,
	})
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary List pharmacies
// @Tags pharmacies
// @Produce json
// @Success 200 {array} domain.Pharmacy
// @Router /pharmacies [get]
func (s *Server) listPharmacies(c *gin.Context) {
	list, err := s.registry.ListPharmacies(c)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get pharmacy by id
// @Tags pharmacies
// @Produce json
// @Param id path int true "Pharmacy ID"
// @Success 200 {object} domain.Pharmacy
// @Failure 404 {object} map[string]string
// @Router /pharmacies/{id} [get]
func (s *Server) getPharmacy(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	p, err := s.registry.GetPharmacy(c, id)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

type createClientReq struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// @Summary Register client
// @Tags clients
// @Accept json
// @Produce json
// @Param input body createClientReq true "Client"
// @Success 201 {object} domain.Client
// @Failure 400 {object} map[string]string
// @Router /clients [post]
func (s *Server) createClient(c *gin.Context) {
	var req createClientReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	cl, err := s.registry.CreateClient(c, domain.Client{Name: req.Name, Phone: req.Phone})
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, cl)
}

type createRiderReq struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// @Summary Register rider
// @Tags riders
// @Accept json
// @Produce json
// @Param input body createRiderReq true "Rider"
// @Success 201 {object} domain.Rider
// @Failure 400 {object} map[string]string
// @Router /riders [post]
func (s *Server) createRider(c *gin.Context) {
	var req createRiderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	r, err := s.registry.CreateRider(c, domain.Rider{Name: req.Name, Phone: req.Phone})
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, r)
}

// Catalog handlers
type createMedicineReq struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// @Summary Add medicine to catalog
// @Tags medicines
// @Accept json
// @Produce json
// @Param input body createMedicineReq true "Medicine"
// @Success 201 {object} domain.Medicine
// @Failure 400 {object} map[string]string
// @Router /medicines [post]
func (s *Server) createMedicine(c *gin.Context) {
	var req createMedicineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	m, err := s.catalog.CreateMedicine(c, domain.Medicine{
		Name: req.Name, Category: req.Category, Description: req.Description,
	})
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, m)
}

// @Summary Search medicines available in verified pharmacies
// @Tags medicines
// @Produce json
// @Param q query string false "Name contains"
// @Param category query string false "Category"
// @Success 200 {array} domain.MedicineOffer
// @Router /medicines [get]
func (s *Server) searchMedicines(c *gin.Context) {
	offers, err := s.catalog.SearchMedicines(c, c.Query("q"), c.Query("category"))
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, offers)
}

type createListingReq struct {
	PharmacyID int64 `json:"pharmacy_id"`
	MedicineID int64 `json:"medicine_id"`
	Price      int64 `json:"price"`
	Stock      int64 `json:"stock"`
	Active     bool  `json:"active"`
}

// @Summary Add pharmacy listing
// @Tags listings
// @Accept json
// @Produce json
// @Param input body createListingReq true "Listing"
// @Success 201 {object} domain.PharmacyListing
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /listings [post]
func (s *Server) createListing(c *gin.Context) {
	var req createListingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	l, err := s.catalog.CreateListing(c, domain.PharmacyListing{
		PharmacyID: req.PharmacyID, MedicineID: req.MedicineID,
		Price: req.Price, Stock: req.Stock, Active: req.Active,
	})
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, l)
}

// @Summary Get listing by id
// @Tags listings
// @Produce json
// @Param id path int true "Listing ID"
// @Success 200 {object} domain.PharmacyListing
// @Failure 404 {object} map[string]string
// @Router /listings/{id} [get]
func (s *Server) getListing(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	l, err := s.catalog.GetListing(c, id)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, l)
}

type updateListingReq struct {
	Price  int64 `json:"price"`
	Stock  int64 `json:"stock"`
	Active bool  `json:"active"`
}

// @Summary Update listing price/stock/active
// @Tags listings
// @Accept json
// @Produce json
// @Param id path int true "Listing ID"
// @Param input body updateListingReq true "Update"
// @Success 200 {object} domain.PharmacyListing
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /listings/{id} [put]
func (s *Server) updateListing(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateListingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	l, err := s.catalog.UpdateListing(c, domain.PharmacyListing{
		ID: id, Price: req.Price, Stock: req.Stock, Active: req.Active,
	})
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, l)
}

// @Summary List pharmacy price list
// @Tags pharmacies
// @Produce json
// @Param id path int true "Pharmacy ID"
// @Success 200 {array} domain.PharmacyListing
// @Failure 400 {object} map[string]string
// @Router /pharmacies/{id}/listings [get]
func (s *Server) listPharmacyListings(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	list, err := s.catalog.ListPharmacyListings(c, id)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// Order handlers
type createOrderReq struct {
	PharmacyID      int64                    `json:"pharmacy_id"`
	DeliveryAddress string                   `json:"delivery_address"`
	Subdivision     string                   `json:"subdivision"`
	PaymentMethod   string                   `json:"payment_method"`
	Items           []service.OrderItemInput `json:"items"`
	ClientPhone     string                   `json:"client_phone"`
	Notes           string                   `json:"notes"`
}

// @Summary Create order from cart
// @Tags orders
// @Accept json
// @Produce json
// @Param input body createOrderReq true "Order"
// @Success 201 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders [post]
func (s *Server) createOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.CreateOrder(c, service.CreateOrderInput{
		ClientID:        actorID(c),
		PharmacyID:      req.PharmacyID,
		DeliveryAddress: req.DeliveryAddress,
		Subdivision:     req.Subdivision,
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
		Items:           req.Items,
		ClientPhone:     req.ClientPhone,
		Notes:           req.Notes,
	})
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary List orders
// @Tags orders
// @Produce json
// @Param client_id query int false "Client ID"
// @Param pharmacy_id query int false "Pharmacy ID"
// @Param status query string false "Order status"
// @Success 200 {array} domain.Order
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	var f repository.OrderFilter
	if v := c.Query("client_id"); v != "" {
		if id, err := parseID(v); err == nil {
			f.ClientID = &id
		}
	}
	if v := c.Query("pharmacy_id"); v != "" {
		if id, err := parseID(v); err == nil {
			f.PharmacyID = &id
		}
	}
	if v := c.Query("status"); v != "" {
		st := domain.OrderStatus(v)
		if !st.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
			return
		}
		f.Status = &st
	}
	list, err := s.orders.ListOrders(c, f)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	o, err := s.orders.GetOrder(c, id)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Get order items
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {array} domain.OrderItem
// @Failure 404 {object} map[string]string
// @Router /orders/{id}/items [get]
func (s *Server) listOrderItems(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	items, err := s.orders.ListOrderItems(c, id)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, items)
}

type updateOrderStatusReq struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason"`
}

// @Summary Update order status
// @Tags orders
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Param input body updateOrderStatusReq true "New status"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/status [patch]
func (s *Server) updateOrderStatus(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateOrderStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.UpdateStatus(c, id, domain.OrderStatus(req.Status), req.RejectionReason)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

type updatePaymentStatusReq struct {
	PaymentStatus string `json:"payment_status"`
}

// @Summary Update order payment status
// @Tags orders
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Param input body updatePaymentStatusReq true "New payment status"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id}/payment [patch]
func (s *Server) updatePaymentStatus(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updatePaymentStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.UpdatePaymentStatus(c, id, domain.PaymentStatus(req.PaymentStatus))
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

// Delivery handlers

// @Summary List deliveries
// @Tags deliveries
// @Produce json
// @Param rider_id query int false "Rider ID"
// @Success 200 {array} domain.Delivery
// @Router /deliveries [get]
func (s *Server) listDeliveries(c *gin.Context) {
	var riderID *int64
	if v := c.Query("rider_id"); v != "" {
		if id, err := parseID(v); err == nil {
			riderID = &id
		}
	}
	list, err := s.deliveries.ListDeliveries(c, riderID)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary List unassigned pending deliveries
// @Tags deliveries
// @Produce json
// @Success 200 {array} domain.Delivery
// @Router /deliveries/pending [get]
func (s *Server) pendingDeliveries(c *gin.Context) {
	list, err := s.deliveries.FindPending(c)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

type assignRiderReq struct {
	RiderID int64 `json:"rider_id"`
}

// @Summary Assign rider to delivery
// @Tags deliveries
// @Accept json
// @Produce json
// @Param id path int true "Delivery ID"
// @Param input body assignRiderReq false "Rider (defaults to acting rider)"
// @Success 200 {object} domain.Delivery
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /deliveries/{id}/assign [post]
func (s *Server) assignRider(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req assignRiderReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	riderID := req.RiderID
	if riderID == 0 && c.GetHeader("X-Actor-Role") == RoleRider {
		// rider takes the job for themselves
		riderID = actorID(c)
	}
	d, err := s.deliveries.AssignRider(c, id, riderID)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}

type updateDeliveryStatusReq struct {
	Status string `json:"status"`
}

// @Summary Update delivery status
// @Tags deliveries
// @Accept json
// @Produce json
// @Param id path int true "Delivery ID"
// @Param input body updateDeliveryStatusReq true "New status"
// @Success 200 {object} domain.Delivery
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /deliveries/{id}/status [patch]
func (s *Server) updateDeliveryStatus(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateDeliveryStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	d, err := s.deliveries.UpdateStatus(c, id, domain.DeliveryStatus(req.Status))
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}

type rateDeliveryReq struct {
	Rating int `json:"rating"`
}

// @Summary Rate delivery
// @Tags deliveries
// @Accept json
// @Produce json
// @Param id path int true "Delivery ID"
// @Param input body rateDeliveryReq true "Rating 1-5"
// @Success 200 {object} domain.Delivery
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /deliveries/{id}/rating [post]
func (s *Server) rateDelivery(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req rateDeliveryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	d, err := s.deliveries.RateDelivery(c, id, req.Rating)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, d)
}

// @Summary Acting rider earnings
// @Tags riders
// @Produce json
// @Success 200 {object} domain.RiderEarnings
// @Failure 404 {object} map[string]string
// @Router /riders/me/earnings [get]
func (s *Server) riderEarnings(c *gin.Context) {
	e, err := s.deliveries.GetRiderEarnings(c, actorID(c))
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, e)
}

// Ledger handlers

// @Summary Pharmacy earnings summary
// @Tags pharmacies
// @Produce json
// @Param id path int true "Pharmacy ID"
// @Success 200 {object} domain.PharmacyEarnings
// @Failure 404 {object} map[string]string
// @Router /pharmacies/{id}/earnings [get]
func (s *Server) pharmacyEarnings(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	e, err := s.ledger.GetPharmacyEarnings(c, id)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, e)
}

type requestWithdrawalReq struct {
	Amount        int64  `json:"amount"`
	Method        string `json:"method"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	BankName      string `json:"bank_name"`
}

// @Summary Request withdrawal of pharmacy earnings
// @Tags withdrawals
// @Accept json
// @Produce json
// @Param input body requestWithdrawalReq true "Withdrawal"
// @Success 201 {object} domain.Withdrawal
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /withdrawals [post]
func (s *Server) requestWithdrawal(c *gin.Context) {
	var req requestWithdrawalReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	w, err := s.ledger.RequestWithdrawal(c, service.RequestWithdrawalInput{
		PharmacyID:    actorID(c),
		Amount:        req.Amount,
		Method:        domain.WithdrawalMethod(req.Method),
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
		BankName:      req.BankName,
	})
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, w)
}

// @Summary List pharmacy withdrawals
// @Tags pharmacies
// @Produce json
// @Param id path int true "Pharmacy ID"
// @Success 200 {array} domain.Withdrawal
// @Failure 404 {object} map[string]string
// @Router /pharmacies/{id}/withdrawals [get]
func (s *Server) listPharmacyWithdrawals(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	list, err := s.ledger.ListPharmacyWithdrawals(c, id)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Admin queue: open withdrawals, oldest first
// @Tags withdrawals
// @Produce json
// @Success 200 {array} domain.Withdrawal
// @Router /withdrawals/pending [get]
func (s *Server) pendingWithdrawals(c *gin.Context) {
	list, err := s.ledger.ListPendingWithdrawals(c)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

type updateWithdrawalStatusReq struct {
	Status          string `json:"status"`
	TransactionRef  string `json:"transaction_ref"`
	RejectionReason string `json:"rejection_reason"`
}

// @Summary Update withdrawal status
// @Tags withdrawals
// @Accept json
// @Produce json
// @Param id path int true "Withdrawal ID"
// @Param input body updateWithdrawalStatusReq true "New status"
// @Success 200 {object} domain.Withdrawal
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /withdrawals/{id}/status [patch]
func (s *Server) updateWithdrawalStatus(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateWithdrawalStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	w, err := s.ledger.UpdateWithdrawalStatus(c, id, domain.WithdrawalStatus(req.Status), req.TransactionRef, req.RejectionReason)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, w)
}

// Settings handlers

// @Summary Get platform settings
// @Tags settings
// @Produce json
// @Success 200 {object} domain.PlatformSettings
// @Router /settings [get]
func (s *Server) getSettings(c *gin.Context) {
	set, err := s.settings.Get(c)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, set)
}

type updateSettingsReq struct {
	DeliveryFeeNear      *int64           `json:"delivery_fee_near"`
	DeliveryFeeFar       *int64           `json:"delivery_fee_far"`
	CommissionPercentage *decimal.Decimal `json:"commission_percentage"`
}

// @Summary Update platform settings (partial)
// @Tags settings
// @Accept json
// @Produce json
// @Param input body updateSettingsReq true "Settings patch"
// @Success 200 {object} domain.PlatformSettings
// @Failure 400 {object} map[string]string
// @Router /settings [patch]
func (s *Server) updateSettings(c *gin.Context) {
	var req updateSettingsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	set, err := s.settings.Update(c, service.UpdateSettingsInput{
		DeliveryFeeNear:      req.DeliveryFeeNear,
		DeliveryFeeFar:       req.DeliveryFeeFar,
		CommissionPercentage: req.CommissionPercentage,
	})
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, set)
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrBelowMinimum):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
