package production

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/comalice/storex/internal/core"
	"github.com/comalice/storex/internal/primitives"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "storex").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for reducer duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "storex",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Status label values of storex_actions_total.
const (
	StatusApplied = "applied"
	StatusQueued  = "queued"
	StatusFailed  = "failed"
)

// PrometheusObserver is a core.Observer exporting dispatch metrics.
type PrometheusObserver struct {
	actions       *prometheus.CounterVec
	duration      prometheus.Histogram
	pending       prometheus.Gauge
	slicesAdded   prometheus.Counter
	notifications prometheus.Counter
	listeners     prometheus.Gauge
}

var _ core.Observer = (*PrometheusObserver)(nil)

// NewPrometheusObserver registers the storex metrics with the configured
// registry. Registering twice on the same registry panics, as with promauto.
func NewPrometheusObserver(opts ...MetricsOption) *PrometheusObserver {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &PrometheusObserver{
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "actions_total",
			Help:        "Total number of dispatched actions by type and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"type", "status"}),

		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "reduce_duration_seconds",
			Help:        "Time spent in the root reducer per applied action",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "pending_actions",
			Help:        "Actions queued before the first slice was registered",
			ConstLabels: config.ConstLabels,
		}),

		slicesAdded: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "slices_added_total",
			Help:        "Total number of slice registrations",
			ConstLabels: config.ConstLabels,
		}),

		notifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "notifications_total",
			Help:        "Total number of listener notification rounds",
			ConstLabels: config.ConstLabels,
		}),

		listeners: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "listeners",
			Help:        "Listeners called in the last notification round",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (o *PrometheusObserver) ActionQueued(action primitives.Action, pending int) {
	o.actions.WithLabelValues(action.TypeString(), StatusQueued).Inc()
	o.pending.Set(float64(pending))
}

func (o *PrometheusObserver) ActionApplied(action primitives.Action, elapsed time.Duration) {
	o.actions.WithLabelValues(action.TypeString(), StatusApplied).Inc()
	o.duration.Observe(elapsed.Seconds())
}

func (o *PrometheusObserver) DispatchFailed(action primitives.Action, err error) {
	o.actions.WithLabelValues(action.TypeString(), StatusFailed).Inc()
}

// SlicesAdded also clears the pending gauge; the queue is flushed right after.
func (o *PrometheusObserver) SlicesAdded(names []string) {
	o.slicesAdded.Add(float64(len(names)))
	o.pending.Set(0)
}

func (o *PrometheusObserver) ListenersNotified(count int) {
	o.notifications.Inc()
	o.listeners.Set(float64(count))
}
