// Package metrics exposes Prometheus collectors describing config loads.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "confload"

// Load modes.
const (
	ModeSync  = "sync"
	ModeAsync = "async"
	ModeEnv   = "env"
)

// Collector records load outcomes. A nil *Collector is valid and records
// nothing.
type Collector struct {
	loads              *prometheus.CounterVec
	files              *prometheus.CounterVec
	overrides          prometheus.Counter
	validationFailures prometheus.Counter
	duration           *prometheus.HistogramVec
}

// New builds a Collector and registers it on reg. Collectors already
// registered on reg by an earlier call are reused. A nil reg leaves the
// collectors unregistered.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Config loads by mode and result.",
		}, []string{"mode", "result"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Config files looked up, by whether they existed.",
		}, []string{"result"}),
		overrides: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overrides_total",
			Help:      "Environment overrides applied.",
		}),
		validationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Loads rejected by the schema.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time spent in a load call.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"mode"}),
	}
	if reg == nil {
		return c, nil
	}

	var err error
	if c.loads, err = register(reg, c.loads); err != nil {
		return nil, err
	}
	if c.files, err = register(reg, c.files); err != nil {
		return nil, err
	}
	if c.overrides, err = register(reg, c.overrides); err != nil {
		return nil, err
	}
	if c.validationFailures, err = register(reg, c.validationFailures); err != nil {
		return nil, err
	}
	if c.duration, err = register(reg, c.duration); err != nil {
		return nil, err
	}
	return c, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("failed to register metrics: %w", err)
	}
	return c, nil
}

// ObserveLoad records one finished load.
func (c *Collector) ObserveLoad(mode string, err error, took time.Duration) {
	if c == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	c.loads.WithLabelValues(mode, result).Inc()
	c.duration.WithLabelValues(mode).Observe(took.Seconds())
}

// FileRead records one file lookup.
func (c *Collector) FileRead(found bool) {
	if c == nil {
		return
	}
	result := "missing"
	if found {
		result = "found"
	}
	c.files.WithLabelValues(result).Inc()
}

// OverridesApplied adds n applied environment overrides.
func (c *Collector) OverridesApplied(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.overrides.Add(float64(n))
}

// ValidationFailed records a load rejected by the schema.
func (c *Collector) ValidationFailed() {
	if c == nil {
		return
	}
	c.validationFailures.Inc()
}
