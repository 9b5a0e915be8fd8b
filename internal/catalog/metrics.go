package catalog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation names used as metric labels.
const (
	opAdd       = "add"
	opUpdate    = "update"
	opDelete    = "delete"
	opDeleteAll = "delete_all"
	opCopy      = "copy"
	opSwapOrder = "swap_order"
)

var operationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_operations_total",
		Help: "Total number of catalog mutations by operation and result",
	},
	[]string{"operation", "result"},
)

func observe(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	operationsTotal.WithLabelValues(operation, result).Inc()
}
