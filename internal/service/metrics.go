package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics counts publish outcomes and the stage at which failed publishes stopped.
type PipelineMetrics struct {
	publishTotal *prometheus.CounterVec
	failures     *prometheus.CounterVec
}

// NewPipelineMetrics registers the pipeline counters on reg.
func NewPipelineMetrics(reg prometheus.Registerer) (*PipelineMetrics, error) {
	m := &PipelineMetrics{
		publishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ar_publish_total",
				Help: "Publish attempts by outcome.",
			},
			[]string{"outcome"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ar_publish_failures_total",
				Help: "Failed publishes by the stage that failed.",
			},
			[]string{"stage"},
		),
	}
	for _, c := range []prometheus.Collector{m.publishTotal, m.failures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PipelineMetrics) published() {
	if m == nil {
		return
	}
	m.publishTotal.WithLabelValues("success").Inc()
}

func (m *PipelineMetrics) failed(stage string) {
	if m == nil {
		return
	}
	m.publishTotal.WithLabelValues("failure").Inc()
	m.failures.WithLabelValues(stage).Inc()
}
