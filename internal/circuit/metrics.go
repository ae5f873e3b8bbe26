package circuit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("circuitgrid.circuit")

var (
	// transactionsTotal counts finished transactions by access and outcome.
	transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuitgrid_transactions_total",
		Help: "Total transactions by access level and outcome",
	}, []string{"access", "outcome"})

	// lockWait tracks the time between submission and grant.
	lockWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "circuitgrid_lock_wait_seconds",
		Help:    "Time a transaction waited for its locks",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{"access"})

	// mutationsTotal counts applied primitives by action.
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuitgrid_mutations_total",
		Help: "Structural mutations applied, by action",
	}, []string{"action"})

	// portEditsTotal counts connectivity edits made by port reconciliation.
	portEditsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuitgrid_port_edits_total",
		Help: "Connectivity edits made by port reconciliation, by operation",
	}, []string{"op"})

	// modifiedTotal counts write transactions that changed a circuit.
	modifiedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "circuitgrid_circuits_modified_total",
		Help: "Times a write transaction marked a circuit as modified",
	})
)
