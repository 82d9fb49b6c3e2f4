package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus collectors for the history store.
// A nil *Metrics records nothing.
type Metrics struct {
	appends       prometheus.Counter
	prunedRecords prometheus.Counter
	records       prometheus.Gauge
	errors        *prometheus.CounterVec
}

// NewMetrics creates the store collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		appends: factory.NewCounter(prometheus.CounterOpts{
			Name: "weather_history_appends_total",
			Help: "Total number of records appended to the history log",
		}),
		prunedRecords: factory.NewCounter(prometheus.CounterOpts{
			Name: "weather_history_pruned_records_total",
			Help: "Total number of records removed by retention pruning",
		}),
		records: factory.NewGauge(prometheus.GaugeOpts{
			Name: "weather_history_records",
			Help: "Number of records in the history log after the last write",
		}),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_history_errors_total",
				Help: "Total number of failed history operations",
			},
			[]string{"op", "kind"},
		),
	}
}

func (m *Metrics) recordAppend(size int) {
	if m == nil {
		return
	}
	m.appends.Inc()
	m.records.Set(float64(size))
}

func (m *Metrics) recordPrune(removed, size int) {
	if m == nil {
		return
	}
	m.prunedRecords.Add(float64(removed))
	m.records.Set(float64(size))
}

func (m *Metrics) recordError(op string, err error) {
	if m == nil || err == nil {
		return
	}
	m.errors.WithLabelValues(op, errorKind(err)).Inc()
}
