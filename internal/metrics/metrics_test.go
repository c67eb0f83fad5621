package metrics_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lc/confload/internal/metrics"
)

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := metrics.New(reg)
	require.NoError(t, err)

	c.ObserveLoad(metrics.ModeSync, nil, 10*time.Millisecond)
	c.ObserveLoad(metrics.ModeSync, errors.New("boom"), time.Millisecond)
	c.ObserveLoad(metrics.ModeAsync, nil, time.Millisecond)
	c.FileRead(true)
	c.FileRead(true)
	c.FileRead(false)
	c.OverridesApplied(3)
	c.OverridesApplied(0)
	c.ValidationFailed()

	expected := `
# HELP confload_loads_total Config loads by mode and result.
# TYPE confload_loads_total counter
confload_loads_total{mode="async",result="success"} 1
confload_loads_total{mode="sync",result="error"} 1
confload_loads_total{mode="sync",result="success"} 1
# HELP confload_files_total Config files looked up, by whether they existed.
# TYPE confload_files_total counter
confload_files_total{result="found"} 2
confload_files_total{result="missing"} 1
# HELP confload_overrides_total Environment overrides applied.
# TYPE confload_overrides_total counter
confload_overrides_total 3
# HELP confload_validation_failures_total Loads rejected by the schema.
# TYPE confload_validation_failures_total counter
confload_validation_failures_total 1
`
	err = testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"confload_loads_total",
		"confload_files_total",
		"confload_overrides_total",
		"confload_validation_failures_total",
	)
	assert.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "confload_load_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one histogram per mode")
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := metrics.New(reg)
	require.NoError(t, err)
	second, err := metrics.New(reg)
	require.NoError(t, err)

	first.OverridesApplied(1)
	second.OverridesApplied(2)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == "confload_overrides_total" {
			assert.Equal(t, 3.0, mf.GetMetric()[0].GetCounter().GetValue())
			return
		}
	}
	t.Fatal("confload_overrides_total not gathered")
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *metrics.Collector
	assert.NotPanics(t, func() {
		c.ObserveLoad(metrics.ModeEnv, nil, time.Second)
		c.FileRead(true)
		c.OverridesApplied(1)
		c.ValidationFailed()
	})
}

func TestNewWithoutRegisterer(t *testing.T) {
	c, err := metrics.New(nil)
	require.NoError(t, err)
	assert.NotPanics(t, func() { c.ObserveLoad(metrics.ModeSync, nil, time.Millisecond) })
}
