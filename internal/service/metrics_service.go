package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic, cache usage and payroll work.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	payrollEmployees    *prometheus.CounterVec
	payrollRunDuration  prometheus.Observer
	retroAdjustments    *prometheus.CounterVec
	workflowTransitions *prometheus.CounterVec
	syncRuns            *prometheus.CounterVec
	remindersSent       prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	payrollEmployees := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_employees_processed_total",
		Help: "Employees processed by payroll period runs",
	}, []string{"result"})

	payrollRunDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "payroll_run_duration_seconds",
		Help:    "Duration of payroll period runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	retroAdjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payroll_retro_adjustments_total",
		Help: "Retroactive corrections above tolerance",
	}, []string{"direction"})

	workflowTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pts_request_transitions_total",
		Help: "PTS request workflow transitions",
	}, []string{"action"})

	syncRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hr_sync_runs_total",
		Help: "HR staging synchronization runs",
	}, []string{"result"})

	remindersSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "workflow_sla_reminders_total",
		Help: "SLA reminders delivered for overdue approval steps",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		payrollEmployees, payrollRunDuration, retroAdjustments, workflowTransitions, syncRuns, remindersSent, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:            registry,
		handler:             handler,
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLatency:        cacheLatency,
		cacheWrite:          cacheWrite,
		cacheHitRatio:       cacheHitRatio,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		payrollEmployees:    payrollEmployees,
		payrollRunDuration:  payrollRunDuration,
		retroAdjustments:    retroAdjustments,
		workflowTransitions: workflowTransitions,
		syncRuns:            syncRuns,
		remindersSent:       remindersSent,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry, mostly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordPayrollEmployee counts one processed employee. ok=false marks a failed employee.
func (m *MetricsService) RecordPayrollEmployee(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.payrollEmployees.WithLabelValues(result).Inc()
}

// ObservePayrollRun records the wall time of a period run.
func (m *MetricsService) ObservePayrollRun(duration time.Duration) {
	if m == nil {
		return
	}
	m.payrollRunDuration.Observe(duration.Seconds())
}

// RecordRetroAdjustment counts a retroactive correction by sign.
func (m *MetricsService) RecordRetroAdjustment(diff decimal.Decimal) {
	if m == nil {
		return
	}
	direction := "add"
	if diff.IsNegative() {
		direction = "deduct"
	}
	m.retroAdjustments.WithLabelValues(direction).Inc()
}

// RecordTransition counts a workflow action.
func (m *MetricsService) RecordTransition(action string) {
	if m == nil {
		return
	}
	m.workflowTransitions.WithLabelValues(action).Inc()
}

// RecordSync counts an HR sync attempt by result (success, failure, locked).
func (m *MetricsService) RecordSync(result string) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(result).Inc()
}

// RecordReminder counts a delivered SLA reminder.
func (m *MetricsService) RecordReminder() {
	if m == nil {
		return
	}
	m.remindersSent.Inc()
}
