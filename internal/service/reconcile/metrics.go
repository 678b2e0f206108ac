package reconcile

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts reconciliation passes. A nil *Metrics records nothing.
type Metrics struct {
	passes  *prometheus.CounterVec
	records prometheus.Counter
}

func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liveusers",
			Subsystem: "sync",
			Name:      "passes_total",
			Help:      "Count of reconciliation passes by result",
		}, []string{"result"}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "liveusers",
			Subsystem: "sync",
			Name:      "records_total",
			Help:      "Count of records merged into the presence cache",
		}),
	}

	if err := registerer.Register(m.passes); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		m.passes = are.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := registerer.Register(m.records); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		m.records = are.ExistingCollector.(prometheus.Counter)
	}
	return m, nil
}

func (m *Metrics) observe(ok bool, records int) {
	if m == nil {
		return
	}
	if !ok {
		m.passes.WithLabelValues("failure").Inc()
		return
	}
	m.passes.WithLabelValues("success").Inc()
	m.records.Add(float64(records))
}
