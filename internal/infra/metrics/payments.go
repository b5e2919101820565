package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsCreatedTotal,
		paymentsResolvedTotal,
		pendingPayments,
		pollCyclesTotal,
	)
}

var (
	paymentsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_created_total",
			Help: "Charges created at the gateway, labeled by tariff.",
		},
		[]string{"tariff"},
	)

	paymentsResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_resolved_total",
			Help: "Pending payments resolved, labeled by terminal state (succeeded/canceled/expired).",
		},
		[]string{"state"},
	)

	pendingPayments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_payments",
			Help: "Current size of the pending-payment set.",
		},
	)

	pollCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_poll_cycles_total",
			Help: "Completed payment poll cycles.",
		},
	)
)

func IncPaymentCreated(tariff string) {
	paymentsCreatedTotal.WithLabelValues(norm(tariff)).Inc()
}

func IncPaymentResolved(state string) {
	paymentsResolvedTotal.WithLabelValues(norm(state)).Inc()
}

func SetPendingPayments(n int) { pendingPayments.Set(float64(n)) }

func IncPollCycle() { pollCyclesTotal.Inc() }
