package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsActivatedTotal,
		subscriptionsExpiredTotal,
		notificationsTotal,
	)
}

var (
	subscriptionsActivatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_activated_total",
			Help: "Subscription activations and extensions, labeled by tariff.",
		},
		[]string{"tariff"},
	)

	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Subscriptions deactivated by the daily expiry sweep.",
		},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Outbound user notifications, labeled by delivery outcome.",
		},
		[]string{"status"}, // 'sent', 'failed'
	)
)

func IncSubscriptionActivated(tariff string) {
	subscriptionsActivatedTotal.WithLabelValues(norm(tariff)).Inc()
}

func AddSubscriptionsExpired(n int) { subscriptionsExpiredTotal.Add(float64(n)) }

func IncNotification(status string) {
	notificationsTotal.WithLabelValues(norm(status)).Inc()
}
