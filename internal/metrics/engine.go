package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Engine holds the collectors of one client: engine calls and mapping builds.
type Engine struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	mappingBuilds *prometheus.CounterVec
}

// NewEngine creates engine collectors and registers them on reg. Collectors
// already registered by another client are reused.
func NewEngine(reg prometheus.Registerer) (*Engine, error) {
	m := &Engine{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "esodm",
			Subsystem: "engine",
			Name:      "requests_total",
			Help:      "Total engine requests by operation and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "esodm",
			Subsystem: "engine",
			Name:      "request_duration_seconds",
			Help:      "Engine request duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		mappingBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "esodm",
			Name:      "mapping_builds_total",
			Help:      "Total mapping builds by result.",
		}, []string{"result"}),
	}
	if reg == nil {
		return m, nil
	}
	if err := registerOrReuse(reg, &m.requests); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.mappingBuilds); err != nil {
		return nil, err
	}
	return m, nil
}

// ObserveRequest records one engine call.
func (m *Engine) ObserveRequest(op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(op, status(err)).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveMappingBuild records one mapping build.
func (m *Engine) ObserveMappingBuild(err error) {
	if m == nil {
		return
	}
	m.mappingBuilds.WithLabelValues(status(err)).Inc()
}

// Requests exposes the request counter for assertions.
func (m *Engine) Requests() *prometheus.CounterVec { return m.requests }

// MappingBuilds exposes the mapping build counter for assertions.
func (m *Engine) MappingBuilds() *prometheus.CounterVec { return m.mappingBuilds }

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// registerOrReuse registers a collector or swaps in the one already registered.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("register metric: %w", err)
	}
	return nil
}
