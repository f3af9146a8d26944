package telemetry

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pthm-cable/genesis/components"
)

// Metrics exposes engine metrics to Prometheus. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	TickDuration   prometheus.Histogram
	Frame          prometheus.Gauge
	Population     *prometheus.GaugeVec
	Births         prometheus.Counter
	Deaths         *prometheus.CounterVec
	SystemFailures *prometheus.CounterVec
	Substitutions  prometheus.Gauge
}

// NewMetrics registers engine metrics against reg (default registerer when
// nil). Registering twice against the same registry reuses the collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	var err error
	m := &Metrics{gatherer: gatherer}

	if m.TickDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "genesis_tick_duration_seconds",
		Help:    "Wall time spent in one engine step.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}), "genesis_tick_duration_seconds"); err != nil {
		return nil, err
	}
	if m.Frame, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "genesis_frame",
		Help: "Current engine frame.",
	}), "genesis_frame"); err != nil {
		return nil, err
	}
	if m.Population, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "genesis_entities",
		Help: "Committed entity count by kind.",
	}, []string{"kind"}), "genesis_entities"); err != nil {
		return nil, err
	}
	if m.Births, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "genesis_births_total",
		Help: "Committed agent births.",
	}), "genesis_births_total"); err != nil {
		return nil, err
	}
	if m.Deaths, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "genesis_deaths_total",
		Help: "Committed agent deaths by cause.",
	}, []string{"cause"}), "genesis_deaths_total"); err != nil {
		return nil, err
	}
	if m.SystemFailures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "genesis_system_failures_total",
		Help: "System updates that returned an error or panicked.",
	}, []string{"system"}), "genesis_system_failures_total"); err != nil {
		return nil, err
	}
	if m.Substitutions, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "genesis_algorithm_substitutions",
		Help: "Unknown behavior algorithm ids replaced by the default.",
	}), "genesis_algorithm_substitutions"); err != nil {
		return nil, err
	}

	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return c, nil
}

// Gatherer returns the Prometheus gatherer associated with the metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return nil
	}
	return m.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (m *Metrics) Handler() http.Handler {
	gatherer := m.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveTick records one step's duration and the frame it produced.
func (m *Metrics) ObserveTick(frame uint64, d time.Duration) {
	if m == nil {
		return
	}
	m.TickDuration.Observe(d.Seconds())
	m.Frame.Set(float64(frame))
}

// Observe records a committed lifecycle event.
func (m *Metrics) Observe(ev Event) {
	if m == nil || ev.Kind != components.KindAgent {
		return
	}
	switch ev.Type {
	case EventBirth:
		m.Births.Inc()
	case EventDeath:
		m.Deaths.WithLabelValues(ev.Reason).Inc()
	}
}

// SetPopulation publishes committed counts by kind.
func (m *Metrics) SetPopulation(s EcosystemStats) {
	if m == nil {
		return
	}
	m.Population.WithLabelValues(components.KindAgent.String()).Set(float64(s.Population))
	m.Population.WithLabelValues(components.KindResource.String()).Set(float64(s.Resources))
	m.Population.WithLabelValues(components.KindConsumable.String()).Set(float64(s.Consumables))
	m.Population.WithLabelValues(components.KindDecoration.String()).Set(float64(s.Decorations))
}

// IncSystemFailure counts one isolated system failure.
func (m *Metrics) IncSystemFailure(system string) {
	if m == nil {
		return
	}
	m.SystemFailures.WithLabelValues(system).Inc()
}

// SetSubstitutions publishes the registry's substitution counter.
func (m *Metrics) SetSubstitutions(n int) {
	if m == nil {
		return
	}
	m.Substitutions.Set(float64(n))
}
