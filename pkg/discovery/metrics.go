package discovery

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"example.com/netadapter/pkg/types"
)

type runKey struct {
	namespace string
	result    string
}

type typeKey struct {
	namespace string
	typ       types.InterfaceType
}

// Metrics is a prometheus.Collector reporting discovery runs and the
// interfaces found by the latest successful run per namespace. The namespace
// label is the raw name, empty for the default namespace.
type Metrics struct {
	mux          sync.RWMutex
	runs         map[runKey]uint64
	lastDuration map[string]float64
	interfaces   map[typeKey]int

	runsDesc       *prometheus.Desc
	durationDesc   *prometheus.Desc
	interfacesDesc *prometheus.Desc
}

// NewMetrics returns an unregistered collector.
func NewMetrics() *Metrics {
	return &Metrics{
		runs:         make(map[runKey]uint64),
		lastDuration: make(map[string]float64),
		interfaces:   make(map[typeKey]int),
		runsDesc: prometheus.NewDesc(
			"netadapter_discovery_runs_total",
			"Total number of interface discovery runs",
			[]string{"namespace", "result"},
			nil,
		),
		durationDesc: prometheus.NewDesc(
			"netadapter_discovery_duration_seconds",
			"Duration of the latest discovery run",
			[]string{"namespace"},
			nil,
		),
		interfacesDesc: prometheus.NewDesc(
			"netadapter_interfaces",
			"Interfaces found by the latest successful discovery run",
			[]string{"namespace", "type"},
			nil,
		),
	}
}

func (m *Metrics) observe(namespace string, records []types.InterfaceRecord, err error, took time.Duration) {
	if m == nil {
		return
	}
	m.mux.Lock()
	defer m.mux.Unlock()

	result := "success"
	if err != nil {
		result = "error"
	}
	m.runs[runKey{namespace, result}]++
	m.lastDuration[namespace] = took.Seconds()
	if err != nil {
		return
	}

	for k := range m.interfaces {
		if k.namespace == namespace {
			delete(m.interfaces, k)
		}
	}
	for _, rec := range records {
		m.interfaces[typeKey{namespace, rec.Type}]++
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.runsDesc
	ch <- m.durationDesc
	ch <- m.interfacesDesc
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.mux.RLock()
	defer m.mux.RUnlock()

	for k, v := range m.runs {
		ch <- prometheus.MustNewConstMetric(m.runsDesc, prometheus.CounterValue, float64(v), k.namespace, k.result)
	}
	for ns, v := range m.lastDuration {
		ch <- prometheus.MustNewConstMetric(m.durationDesc, prometheus.GaugeValue, v, ns)
	}
	for k, v := range m.interfaces {
		ch <- prometheus.MustNewConstMetric(m.interfacesDesc, prometheus.GaugeValue, float64(v), k.namespace, string(k.typ))
	}
}

