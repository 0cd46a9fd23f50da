package discovery

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/netadapter/pkg/types"
)

func TestMetricsRecordRuns(t *testing.T) {
	metrics := NewMetrics()
	registry := prometheus.NewPedanticRegistry()
	require.NoError(t, registry.Register(metrics))

	runner := twoPortHost()
	d, err := New(runner, Options{Metrics: metrics})
	require.NoError(t, err)

	_, err = d.Discover(context.Background(), "")
	require.NoError(t, err)

	runner.OnResult(SysfsCommand, failed(2))
	_, err = d.Discover(context.Background(), "")
	require.Error(t, err)

	expected := `
# HELP netadapter_discovery_runs_total Total number of interface discovery runs
# TYPE netadapter_discovery_runs_total counter
netadapter_discovery_runs_total{namespace="",result="error"} 1
netadapter_discovery_runs_total{namespace="",result="success"} 1
# HELP netadapter_interfaces Interfaces found by the latest successful discovery run
# TYPE netadapter_interfaces gauge
netadapter_interfaces{namespace="",type="PF"} 2
netadapter_interfaces{namespace="",type="VIRTUAL_DEVICE"} 1
`
	err = testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"netadapter_discovery_runs_total", "netadapter_interfaces")
	assert.NoError(t, err)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics, "netadapter_discovery_duration_seconds"))
}

func TestMetricsNamespaceNamedDefault(t *testing.T) {
	metrics := NewMetrics()
	registry := prometheus.NewPedanticRegistry()
	require.NoError(t, registry.Register(metrics))

	records := []types.InterfaceRecord{{Name: "eth0", Type: types.PF}}
	metrics.observe("", records, nil, time.Millisecond)
	metrics.observe("default", records, nil, time.Millisecond)

	families, err := registry.Gather()
	require.NoError(t, err)

	namespaces := map[string]bool{}
	for _, mf := range families {
		if mf.GetName() != "netadapter_interfaces" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "namespace" {
					namespaces[l.GetValue()] = true
				}
			}
		}
	}
	assert.Equal(t, map[string]bool{"": true, "default": true}, namespaces)
	assert.Equal(t, 2, testutil.CollectAndCount(metrics, "netadapter_discovery_runs_total"))
}

func TestMetricsNil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.observe("", nil, nil, 0) })
}
