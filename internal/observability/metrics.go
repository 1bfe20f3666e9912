// Package observability owns client-side metrics for command exchanges.
package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	exchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "isactl",
			Subsystem: "client",
			Name:      "exchanges_total",
			Help:      "Command exchanges by terminal kind.",
		},
		[]string{"command", "final_kind", "success"},
	)
	exchangeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "isactl",
			Subsystem: "client",
			Name:      "exchange_duration_seconds",
			Help:      "Wall-clock duration of one command exchange.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	framesRead = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "isactl",
			Subsystem: "protocol",
			Name:      "frames_total",
			Help:      "Frames read from the server by kind.",
		},
		[]string{"kind"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(exchanges, exchangeDuration, framesRead)
	})
}

func RecordExchange(command, finalKind string, success bool, duration time.Duration) {
	RegisterMetrics()
	exchanges.WithLabelValues(command, finalKind, strconv.FormatBool(success)).Inc()
	exchangeDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func RecordFrame(kind string) {
	RegisterMetrics()
	framesRead.WithLabelValues(kind).Inc()
}
