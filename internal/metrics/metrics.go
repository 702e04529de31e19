package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Счётчики ключевых бизнес-операций; отдаются на /metrics
var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "remedy_orders_created_total",
		Help: "Number of orders successfully created.",
	})
	DeliveriesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "remedy_deliveries_completed_total",
		Help: "Number of deliveries marked as delivered.",
	})
	WithdrawalsRequested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "remedy_withdrawals_requested_total",
		Help: "Number of withdrawal requests accepted.",
	})
)
