package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EscrowMetrics tracks the settlement activity of the running contract.
type EscrowMetrics struct {
	ordersCreated   prometheus.Counter
	ordersFinalized *prometheus.CounterVec
	rpcFailures     *prometheus.CounterVec
}

var (
	escrowOnce     sync.Once
	escrowRegistry *EscrowMetrics
)

// Escrow returns the process-wide escrow metrics, registering the
// collectors on first use.
func Escrow() *EscrowMetrics {
	escrowOnce.Do(func() {
		escrowRegistry = &EscrowMetrics{
			ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "escrow_orders_created_total",
				Help: "Count of orders accepted into the registry.",
			}),
			ordersFinalized: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_orders_finalized_total",
				Help: "Count of finalized orders by settlement outcome.",
			}, []string{"outcome"}),
			rpcFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_rpc_failures_total",
				Help: "Count of failed RPC requests by method.",
			}, []string{"method"}),
		}
		prometheus.MustRegister(
			escrowRegistry.ordersCreated,
			escrowRegistry.ordersFinalized,
			escrowRegistry.rpcFailures,
		)
	})
	return escrowRegistry
}

// OrderCreated records an accepted CreateOrder.
func (m *EscrowMetrics) OrderCreated() {
	m.ordersCreated.Inc()
}

// OrderFinalized records a settlement by outcome (completed, refunded or
// disputed).
func (m *EscrowMetrics) OrderFinalized(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.ordersFinalized.WithLabelValues(outcome).Inc()
}

// RPCFailure records a failed RPC request for the given method.
func (m *EscrowMetrics) RPCFailure(method string) {
	m.rpcFailures.WithLabelValues(method).Inc()
}
