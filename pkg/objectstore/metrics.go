package objectstore

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	callsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	bytesWritten *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		callsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workforce",
			Subsystem: "objectstore",
			Name:      "calls_total",
			Help:      "Object store calls by backend, operation and status.",
		}, []string{"backend", "op", "status"}),
		callDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workforce",
			Subsystem: "objectstore",
			Name:      "call_duration_seconds",
			Help:      "Object store call latency.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"backend", "op"}),
		bytesWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workforce",
			Subsystem: "objectstore",
			Name:      "bytes_written_total",
			Help:      "Bytes uploaded to the object store.",
		}, []string{"backend"}),
	}
})

// observe times one call, records its status and wraps a failure in an OpError.
// Use as: defer observe(backend, op, key)(&err).
func observe(backend, op, key string) func(*error) {
	m := metricsSingleton()
	timer := prometheus.NewTimer(m.callDuration.WithLabelValues(backend, op))
	return func(errp *error) {
		timer.ObserveDuration()
		status := "success"
		if errp != nil && *errp != nil {
			status = "failure"
			*errp = &OpError{Backend: backend, Op: op, Key: key, Err: *errp}
		}
		m.callsTotal.WithLabelValues(backend, op, status).Inc()
	}
}
