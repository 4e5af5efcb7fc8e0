// Package metrics exports the sampled host records and service internals to
// Prometheus.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Dicklesworthstone/hostinfo/internal/model"
)

const namespace = "hostinfo"

var (
	CPUUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cpu_usage_percent",
		Help:      "Mean CPU usage across cores",
	})

	CPUFrequency = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cpu_frequency_mhz",
		Help:      "Mean CPU frequency across cores",
	})

	RAMUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ram_used_percent",
		Help:      "RAM in use",
	})

	SwapUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "swap_used_percent",
		Help:      "Swap in use",
	})

	DiskUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "disk_used_percent",
		Help:      "Space in use across all disks",
	})

	DiskIO = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "disk_io_megabytes",
			Help:      "Cumulative disk traffic since boot",
		},
		[]string{"direction"},
	)

	UptimeDays = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_days",
		Help:      "Host uptime in whole days",
	})

	SamplesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "samples_total",
		Help:      "Total number of sampling passes",
	})

	RestartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_restarts_total",
			Help:      "Total number of supervised task restarts",
		},
		[]string{"task"},
	)

	TotalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	ActiveRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_active",
			Help:      "Number of active HTTP requests",
		},
		[]string{"method", "endpoint"},
	)
)

func init() {
	prometheus.MustRegister(CPUUsage)
	prometheus.MustRegister(CPUFrequency)
	prometheus.MustRegister(RAMUsage)
	prometheus.MustRegister(SwapUsage)
	prometheus.MustRegister(DiskUsage)
	prometheus.MustRegister(DiskIO)
	prometheus.MustRegister(UptimeDays)
	prometheus.MustRegister(SamplesTotal)
	prometheus.MustRegister(RestartsTotal)
	prometheus.MustRegister(TotalRequests)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(ActiveRequests)
}

// Observe mirrors a snapshot into the gauges. It is the sampler's observer.
func Observe(s model.Snapshot) {
	SamplesTotal.Inc()
	CPUUsage.Set(s.CPU.UsagePercent)
	CPUFrequency.Set(float64(s.CPU.FrequencyMHz))
	RAMUsage.Set(s.Memory.RAMUsedPercent)
	SwapUsage.Set(s.Memory.SwapUsedPercent)
	DiskUsage.Set(s.Disk.UsedPercent)
	if n := len(s.Disk.ReadHistory); n > 0 {
		DiskIO.WithLabelValues("read").Set(float64(s.Disk.ReadHistory[n-1].Value))
	}
	if n := len(s.Disk.WriteHistory); n > 0 {
		DiskIO.WithLabelValues("write").Set(float64(s.Disk.WriteHistory[n-1].Value))
	}
	UptimeDays.Set(float64(s.OS.UptimeDays))
}

// Restarted counts a supervised task restart.
func Restarted(task string, _ error) {
	RestartsTotal.WithLabelValues(task).Inc()
}

// Middleware records request counts and latency, labelled by route template
// so path parameters do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}

		ActiveRequests.WithLabelValues(r.Method, endpoint).Inc()
		defer ActiveRequests.WithLabelValues(r.Method, endpoint).Dec()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
		TotalRequests.WithLabelValues(r.Method, endpoint, strconv.Itoa(rw.status)).Inc()
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack passes through so websocket upgrades work behind the middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }
