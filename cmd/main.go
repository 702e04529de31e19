package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"remedy/internal/config"
	httpapi "remedy/internal/http"
	"remedy/internal/notify"
	"remedy/internal/repository"
	"remedy/internal/repository/postgres"
	"remedy/internal/service"

	_ "remedy/docs"
)

// @title Remedy API
// @version 1.0
// @description Online pharmacy marketplace core: orders, deliveries, earnings and withdrawals.
// @BasePath /api/v1
func main() {
	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		stdlog.Fatalf("init logger: %v", err)
	}
	defer log.Sync()

	ctx := context.Background()

	var (
		pharmacies  repository.PharmacyRepository
		medicines   repository.MedicineRepository
		clients     repository.ClientRepository
		riders      repository.RiderRepository
		listings    repository.ListingRepository
		orders      repository.OrderRepository
		items       repository.OrderItemRepository
		deliveries  repository.DeliveryRepository
		withdrawals repository.WithdrawalRepository
		settings    repository.SettingsRepository
		tx          repository.TxManager
	)
	switch cfg.Storage {
	case "postgres":
		store, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("connect postgres", zap.Error(err))
		}
		defer store.Close()
		if err := store.InitSchema(ctx); err != nil {
			log.Fatal("init schema", zap.Error(err))
		}
		pharmacies = postgres.NewPharmacies(store)
		medicines = postgres.NewMedicines(store)
		clients = postgres.NewClients(store)
		riders = postgres.NewRiders(store)
		listings = postgres.NewListings(store)
		orders = postgres.NewOrders(store)
		items = postgres.NewOrderItems(store)
		deliveries = postgres.NewDeliveries(store)
		withdrawals = postgres.NewWithdrawals(store)
		settings = postgres.NewSettings(store)
		tx = postgres.NewTxManager(store)
	default:
		store := repository.NewMemoryStore()
		pharmacies = repository.NewMemoryPharmacies(store)
		medicines = repository.NewMemoryMedicines(store)
		clients = repository.NewMemoryClients(store)
		riders = repository.NewMemoryRiders(store)
		listings = repository.NewMemoryListings(store)
		orders = repository.NewMemoryOrders(store)
		items = repository.NewMemoryOrderItems(store)
		deliveries = repository.NewMemoryDeliveries(store)
		withdrawals = repository.NewMemoryWithdrawals(store)
		settings = repository.NewMemorySettings(store)
		tx = repository.NewMemoryTx(store)
	}

	var events notify.Publisher = notify.Noop{}
	if cfg.AMQPURL != "" {
		pub, err := notify.ConnectAMQP(cfg.AMQPURL, log)
		if err != nil {
			log.Fatal("connect amqp", zap.Error(err))
		}
		defer pub.Close()
		events = pub
	}

	settingsSvc := service.NewSettingsService(settings)
	if err := settingsSvc.EnsureDefaults(ctx); err != nil {
		log.Fatal("init settings", zap.Error(err))
	}

	registrySvc := service.NewRegistryService(pharmacies, clients, riders)
	catalogSvc := service.NewCatalogService(listings, medicines, pharmacies)
	orderSvc := service.NewOrderService(orders, items, deliveries, listings, medicines, settings, clients, pharmacies, tx, events)
	deliverySvc := service.NewDeliveryService(deliveries, orders, riders, pharmacies, clients, tx, events)
	ledgerSvc := service.NewLedgerService(orders, withdrawals, pharmacies, tx, events)

	srv := httpapi.NewServer(log, registrySvc, catalogSvc, orderSvc, deliverySvc, ledgerSvc, settingsSvc)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Engine(),
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
}
