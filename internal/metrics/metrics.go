package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	KitOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warehouse_kit_operations_total",
		Help: "Kit make/break operations by outcome.",
	}, []string{"operation", "outcome"})

	KitUnits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warehouse_kit_units_total",
		Help: "Kits assembled or disassembled.",
	}, []string{"operation"})

	KitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warehouse_kit_operation_seconds",
		Help:    "Duration of kit make/break transactions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	PurchaseReceipts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warehouse_purchase_receipts_total",
		Help: "Purchase order receipts by outcome.",
	}, []string{"outcome"})

	ItemsImported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warehouse_items_imported_total",
		Help: "Items created by XLSX import.",
	})
)
