package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	callbackCounter       *prometheus.CounterVec
	adminDecisionCounter  *prometheus.CounterVec
	gatewayCallCounter    *prometheus.CounterVec
	notificationCounter   *prometheus.CounterVec
	broadcastQueueGauge   prometheus.Gauge
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		callbackCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_callbacks_total",
			Help: "Inbound gateway callback outcomes",
		}, []string{"outcome"})

		adminDecisionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_decisions_total",
			Help: "Admin accept/deny outcomes",
		}, []string{"action", "result"})

		gatewayCallCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_calls_total",
			Help: "Outbound gateway call outcomes",
		}, []string{"op", "result"})

		notificationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification delivery outcomes",
		}, []string{"result"})

		broadcastQueueGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "broadcast_queue_size",
			Help: "Messages waiting in the broadcast queue",
		})

		prometheus.MustRegister(
			httpDurationHistogram,
			callbackCounter,
			adminDecisionCounter,
			gatewayCallCounter,
			notificationCounter,
			broadcastQueueGauge,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementCallback(outcome string) {
	if callbackCounter == nil {
		return
	}
	callbackCounter.WithLabelValues(outcome).Inc()
}

func IncrementAdminDecision(action, result string) {
	if adminDecisionCounter == nil {
		return
	}
	adminDecisionCounter.WithLabelValues(action, result).Inc()
}

func IncrementGatewayCall(op, result string) {
	if gatewayCallCounter == nil {
		return
	}
	gatewayCallCounter.WithLabelValues(op, result).Inc()
}

func IncrementNotification(result string) {
	if notificationCounter == nil {
		return
	}
	notificationCounter.WithLabelValues(result).Inc()
}

func SetBroadcastQueueSize(size int) {
	if broadcastQueueGauge == nil {
		return
	}
	broadcastQueueGauge.Set(float64(size))
}
