package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"faulttriage/internal/domain/fault"
	"faulttriage/internal/ports"
)

const namespace = "faulttriage"

// Recorder exposes processing outcomes as Prometheus metrics on its own
// registry.
type Recorder struct {
	registry  *prometheus.Registry
	processed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

var _ ports.ProcessingRecorder = (*Recorder)(nil)

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Fault events processed successfully, by urgency and ticket action.",
		}, []string{"urgency", "ticket_action"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Fault events rejected or failed, by error kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_duration_seconds",
			Help:      "Time spent processing one fault event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}

	r.registry.MustRegister(
		r.processed,
		r.failed,
		r.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) ObserveProcessed(urgency fault.UrgencyLevel, action fault.TicketAction, elapsed time.Duration) {
	r.processed.WithLabelValues(string(urgency), string(action)).Inc()
	r.duration.WithLabelValues("success").Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveFailed(kind string, elapsed time.Duration) {
	r.failed.WithLabelValues(kind).Inc()
	r.duration.WithLabelValues("failure").Observe(elapsed.Seconds())
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
