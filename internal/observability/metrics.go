package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	feedEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachsync_feed_events_total",
			Help: "Total number of change feed events received, by table and source.",
		},
		[]string{"table", "source"},
	)
	feedReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachsync_feed_reconnects_total",
			Help: "Total number of change feed source reconnects.",
		},
		[]string{"source"},
	)
	liveQueueDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coachsync_live_queue_dropped_total",
			Help: "Total number of live events dropped because a session queue was full.",
		},
	)
	liveSessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coachsync_live_sessions_active",
			Help: "Number of active live sessions.",
		},
	)
	notificationDeliveryFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coachsync_notification_delivery_failures_total",
			Help: "Total number of best-effort notification inserts that failed.",
		},
		[]string{"type"},
	)
	domainEventPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coachsync_domain_event_publish_errors_total",
			Help: "Total number of domain event publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		feedEventsTotal,
		feedReconnectsTotal,
		liveQueueDroppedTotal,
		liveSessionsActive,
		notificationDeliveryFailuresTotal,
		domainEventPublishErrorsTotal,
	)
}

func IncFeedEvent(table, source string) {
	feedEventsTotal.WithLabelValues(table, source).Inc()
}

func IncFeedReconnect(source string) {
	feedReconnectsTotal.WithLabelValues(source).Inc()
}

func IncLiveQueueDropped() {
	liveQueueDroppedTotal.Inc()
}

func IncLiveSessions() {
	liveSessionsActive.Inc()
}

func DecLiveSessions() {
	liveSessionsActive.Dec()
}

func IncNotificationDeliveryFailure(notificationType string) {
	notificationDeliveryFailuresTotal.WithLabelValues(notificationType).Inc()
}

func IncDomainEventPublishError() {
	domainEventPublishErrorsTotal.Inc()
}
