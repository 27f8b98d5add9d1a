package cache

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Lookup results recorded by komora_cache_lookups_total.
const (
	resultMemoryHit     = "memory_hit"
	resultPersistentHit = "persistent_hit"
	resultMiss          = "miss"
)

type metrics struct {
	lookups       *prometheus.CounterVec
	failures      *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer, entries func() float64) *metrics {
	m := &metrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "komora",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache reads by outcome.",
		}, []string{"result"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "komora",
			Subsystem: "cache",
			Name:      "persistence_failures_total",
			Help:      "Backend operations that failed and were degraded to memory-only behaviour.",
		}, []string{"op"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "komora",
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Invalidation calls by kind.",
		}, []string{"kind"}),
	}
	if reg == nil {
		return m
	}

	m.lookups = register(reg, m.lookups)
	m.failures = register(reg, m.failures)
	m.invalidations = register(reg, m.invalidations)

	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "komora",
		Subsystem: "cache",
		Name:      "memory_entries",
		Help:      "Entries held in the memory layer, valid or expired.",
	}, entries)
	// A second store on the same registry keeps the first store's gauge.
	if err := reg.Register(gauge); err != nil && !alreadyRegistered(err) {
		panic(err)
	}
	return m
}

func alreadyRegistered(err error) bool {
	var are prometheus.AlreadyRegisteredError
	return errors.As(err, &are)
}

// register adds c to reg, reusing an identical collector that is already
// registered. Any other registration error panics, as MustRegister does.
func register(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing
		}
	}
	panic(err)
}

func (m *metrics) lookup(result string) {
	m.lookups.WithLabelValues(result).Inc()
}

func (m *metrics) failure(op string) {
	m.failures.WithLabelValues(op).Inc()
}

func (m *metrics) invalidation(kind string) {
	m.invalidations.WithLabelValues(kind).Inc()
}
