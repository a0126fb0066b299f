package observability

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/yungbote/kinview-backend/internal/platform/envutil"
	"github.com/yungbote/kinview-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	fetches      *CounterVec
	fetchLatency *HistogramVec

	storeLookups *CounterVec
	storeMerges  *CounterVec

	sessions      *Gauge
	eventsDropped *CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current is nil until Init runs with metrics enabled. Every method is safe
// on a nil receiver.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

// NewMetrics builds an unregistered set. Init uses it for the process-wide
// instance.
func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("kv_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"kv_api_request_duration_seconds",
			"API request latency in seconds by method/route.",
			[]string{"method", "route"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("kv_api_inflight_requests", "In-flight API requests."),
		fetches:     NewCounterVec("kv_loader_fetches_total", "Person fetches by source/outcome.", []string{"source", "outcome"}),
		fetchLatency: NewHistogramVec(
			"kv_loader_fetch_duration_seconds",
			"Person fetch latency in seconds by source.",
			[]string{"source"},
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		),
		storeLookups:  NewCounterVec("kv_store_lookups_total", "Person store lookups by result (hit/miss).", []string{"result"}),
		storeMerges:   NewCounterVec("kv_store_merges_total", "Person store writes by outcome.", []string{"outcome"}),
		sessions:      NewGauge("kv_sessions_active", "Open tree sessions."),
		eventsDropped: NewCounterVec("kv_events_dropped_total", "Session events dropped for slow subscribers.", []string{"type"}),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.fetches, m.fetchLatency,
		m.storeLookups, m.storeMerges,
		m.sessions, m.eventsDropped,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

// ObserveFetch records one loader call. outcome is "ok", "not_found" or
// "error".
func (m *Metrics) ObserveFetch(source, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.fetches.Inc(source, outcome)
	m.fetchLatency.Observe(dur.Seconds(), source)
}

func (m *Metrics) IncStoreLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.storeLookups.Inc("hit")
		return
	}
	m.storeLookups.Inc("miss")
}

// IncStoreMerge counts Put outcomes: insert, replace, discard or union.
func (m *Metrics) IncStoreMerge(outcome string) {
	if m == nil {
		return
	}
	m.storeMerges.Inc(outcome)
}

func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

func (m *Metrics) IncEventDropped(eventType string) {
	if m == nil {
		return
	}
	m.eventsDropped.Inc(eventType)
}
