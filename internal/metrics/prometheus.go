package metrics

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// guards against registering the collectors twice
	initialised atomic.Bool

	// active REST API connections
	activeRESTConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "keyrelay_active_rest_connections",
			Help: "Number of active REST API connections",
		},
	)

	// response times for REST APIs
	responseTimeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keyrelay_restapi_response_time_milliseconds",
			Help:    "REST API response time distributions",
			Buckets: []float64{1, 5, 10, 50, 100, 200, 500},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Number of requests processed by REST API
	RESTRequestMetricsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keyrelay_rest_requests_processed_total",
		Help: "The total number of processed REST requests",
	}, []string{"method", "endpoint"})

	// Bundles handed out, split by whether a one-time pre-key was included
	BundlesServedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keyrelay_bundles_served_total",
		Help: "The total number of pre-key bundles served",
	}, []string{"one_time_pre_key"})

	// Fetches that hit an empty one-time pool
	PoolExhaustedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keyrelay_prekey_pool_exhausted_total",
		Help: "The total number of bundles served from an exhausted one-time pre-key pool",
	})

	// Fetches that left the pool at or below the low watermark
	PoolLowWatermarkTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keyrelay_prekey_pool_low_total",
		Help: "The total number of fetches that left a pool at or below the low watermark",
	})

	// One-time pre-keys accepted by uploads and registrations
	PreKeysUploadedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keyrelay_prekeys_uploaded_total",
		Help: "The total number of one-time pre-keys accepted",
	})

	// Devices registered or re-registered
	RegistrationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keyrelay_registrations_total",
		Help: "The total number of device registrations",
	})

	// Latency of a bundle fetch including the store round trip
	BundleFetchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "keyrelay_bundle_fetch_latency_milliseconds",
		Help:    "Latency of pre-key bundle fetches",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 12),
	})
)

// Label values of BundlesServedTotal.
const (
	PreKeyPresent = "present"
	PreKeyAbsent  = "absent"
)

// InitMetrics registers every collector with the default registry. Repeat
// calls are no-ops.
func InitMetrics() {
	if initialised.CompareAndSwap(false, true) {
		prometheus.MustRegister(
			activeRESTConnections,
			responseTimeRESTAPI,
			RESTRequestMetricsTotal,
			BundlesServedTotal,
			PoolExhaustedTotal,
			PoolLowWatermarkTotal,
			PreKeysUploadedTotal,
			RegistrationsTotal,
			BundleFetchLatency,
		)
	}
}

// ObserveBundle records one served bundle.
func ObserveBundle(hasPreKey bool, took time.Duration) {
	label := PreKeyAbsent
	if hasPreKey {
		label = PreKeyPresent
	}
	BundlesServedTotal.WithLabelValues(label).Inc()
	BundleFetchLatency.Observe(float64(took.Microseconds()) / 1000)
}

// MetricsMiddleware counts and times REST requests by route template.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		RESTRequestMetricsTotal.WithLabelValues(c.Request.Method, endpoint).Inc()

		start := time.Now()
		activeRESTConnections.Inc()
		defer activeRESTConnections.Dec()

		c.Next()

		status := c.Writer.Status()
		responseTimeRESTAPI.WithLabelValues(c.Request.Method, endpoint, statusClass(status)).
			Observe(float64(time.Since(start).Microseconds()) / 1000)
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	}
	return "2xx"
}
