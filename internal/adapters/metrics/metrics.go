// Package metrics exports update cycle statistics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/felixgeelhaar/dyna/internal/domain/updater"
)

// Metrics records cycle outcomes and remote request timings.
type Metrics struct {
	cyclesTotal     *prometheus.CounterVec
	outcomesTotal   *prometheus.CounterVec
	restartsTotal   prometheus.Counter
	trackedPlugins  prometheus.Gauge
	lastCycle       prometheus.Gauge
	cycleDuration   prometheus.Histogram
	requestDuration *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	promFactory := promauto.With(reg)
	return &Metrics{
		cyclesTotal: promFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "dyna_cycles_total",
			Help: "Update cycles run, labelled by whether they completed or were aborted",
		}, []string{"result"}),
		outcomesTotal: promFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "dyna_plugin_outcomes_total",
			Help: "Per-plugin cycle outcomes labelled by final state",
		}, []string{"state"}),
		restartsTotal: promFactory.NewCounter(prometheus.CounterOpts{
			Name: "dyna_restarts_total",
			Help: "Host restarts performed after plugin updates",
		}),
		trackedPlugins: promFactory.NewGauge(prometheus.GaugeOpts{
			Name: "dyna_tracked_plugins",
			Help: "Plugins checked by the most recent cycle",
		}),
		lastCycle: promFactory.NewGauge(prometheus.GaugeOpts{
			Name: "dyna_last_cycle_timestamp_seconds",
			Help: "Unix time the most recent cycle finished",
		}),
		cycleDuration: promFactory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dyna_cycle_duration_seconds",
			Help:    "Duration of update cycles",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		requestDuration: promFactory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dyna_remote_request_duration_seconds",
			Help:    "Duration of manifest and artifact requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"host", "status"}),
	}
}

// ObserveCycle implements updater.MetricsRecorder.
func (m *Metrics) ObserveCycle(report *updater.CycleReport) {
	if report == nil {
		return
	}
	result := "completed"
	if report.Aborted {
		result = "aborted"
	}
	m.cyclesTotal.WithLabelValues(result).Inc()
	for _, o := range report.Outcomes {
		m.outcomesTotal.WithLabelValues(string(o.State)).Inc()
	}
	if report.Restarted {
		m.restartsTotal.Inc()
	}
	m.trackedPlugins.Set(float64(len(report.Outcomes)))
	m.lastCycle.Set(float64(report.FinishedAt.Unix()))
	m.cycleDuration.Observe(report.Duration().Seconds())
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// RoundTripper times every request sent through next.
func (m *Metrics) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		host := req.Host
		if host == "" && req.URL != nil {
			host = req.URL.Host
		}
		status := "error"

		start := time.Now()
		res, err := next.RoundTrip(req)
		if err == nil && res != nil {
			status = strconv.Itoa(res.StatusCode)
		}
		m.requestDuration.WithLabelValues(host, status).Observe(time.Since(start).Seconds())
		return res, err
	})
}

// Handler serves the collectors registered with g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Ensure Metrics implements updater.MetricsRecorder.
var _ updater.MetricsRecorder = (*Metrics)(nil)
