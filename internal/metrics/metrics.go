package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

const (
	namespace = "dextools"
	subsystem = "monitor_bot"
)

// Store is the persistence the counters are restored from and saved to.
type Store interface {
	SaveMetric(ctx context.Context, metricName string, value float64) error
	GetMetric(ctx context.Context, metricName string) (float64, error)
	SaveMetricWithLabels(ctx context.Context, metricName, labelKey, labelValue string, value float64) error
	GetMetricsWithLabels(ctx context.Context, metricName string) (map[string]map[string]float64, error)
}

type Metrics struct {
	SweepsTotal        prometheus.Counter
	SweepsDropped      prometheus.Counter
	SweepFailures      prometheus.Counter
	SweepDuration      prometheus.Histogram
	TargetsChecked     prometheus.Counter
	FetchFailures      prometheus.Counter
	ExtractionDegraded prometheus.Counter
	AlertsSent         *prometheus.CounterVec
	AlertsSuppressed   prometheus.Counter
	DeliveryFailures   prometheus.Counter
	ActiveTargets      prometheus.Gauge
	Subscribers        prometheus.Gauge
	CommandsProcessed  prometheus.Counter
	MessagesHandled    prometheus.Counter
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
}

func gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
}

// New builds the collectors and registers them on reg when it is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SweepsTotal:    counter("sweeps_total", "The total number of completed sweep passes"),
		SweepsDropped:  counter("sweeps_dropped_total", "Timer ticks dropped because a pass was still running"),
		SweepFailures:  counter("sweep_failures_total", "Sweep passes aborted because the store was unavailable"),
		TargetsChecked: counter("targets_checked_total", "The total number of target evaluations"),
		FetchFailures:  counter("fetch_failures_total", "Pair page fetches that failed or returned non-2xx"),
		ExtractionDegraded: counter("extraction_degraded_total",
			"Fetched pages where at least one field fell back to its default"),
		AlertsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "alerts_total",
				Help:      "Alerts recorded, per chain",
			},
			[]string{"chain"},
		),
		AlertsSuppressed:  counter("alerts_suppressed_total", "Crossings suppressed by the cooldown"),
		DeliveryFailures:  counter("delivery_failures_total", "Alert notifications that could not be delivered"),
		ActiveTargets:     gauge("active_targets", "Active targets seen by the last sweep"),
		Subscribers:       gauge("subscribers", "Distinct subscribers with an active target in the last sweep"),
		CommandsProcessed: counter("commands_processed", "The total number of processed commands"),
		MessagesHandled:   counter("messages_handled", "The total number of handled messages"),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of a sweep pass",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.SweepsTotal, m.SweepsDropped, m.SweepFailures, m.SweepDuration,
			m.TargetsChecked, m.FetchFailures, m.ExtractionDegraded,
			m.AlertsSent, m.AlertsSuppressed, m.DeliveryFailures,
			m.ActiveTargets, m.Subscribers, m.CommandsProcessed, m.MessagesHandled,
		)
	}
	return m
}

// persisted lists the plain counters that survive restarts.
func (m *Metrics) persisted() map[string]prometheus.Counter {
	return map[string]prometheus.Counter{
		"sweeps_total":              m.SweepsTotal,
		"sweeps_dropped_total":      m.SweepsDropped,
		"sweep_failures_total":      m.SweepFailures,
		"targets_checked_total":     m.TargetsChecked,
		"fetch_failures_total":      m.FetchFailures,
		"extraction_degraded_total": m.ExtractionDegraded,
		"alerts_suppressed_total":   m.AlertsSuppressed,
		"delivery_failures_total":   m.DeliveryFailures,
		"commands_processed":        m.CommandsProcessed,
		"messages_handled":          m.MessagesHandled,
	}
}

// LoadFromDB adds the stored counter values onto fresh collectors.
func (m *Metrics) LoadFromDB(ctx context.Context, store Store) {
	for name, c := range m.persisted() {
		v, err := store.GetMetric(ctx, name)
		if err != nil {
			log.Errorf("Failed to load metric %s: %v", name, err)
			continue
		}
		c.Add(v)
	}

	byChain, err := store.GetMetricsWithLabels(ctx, "alerts_total")
	if err != nil {
		log.Errorf("Failed to load alerts_total: %v", err)
	}
	for chain, v := range byChain["chain"] {
		m.AlertsSent.WithLabelValues(chain).Add(v)
	}

	log.Info("Metrics loaded from database.")
}

// SaveToDB writes the current counter values.
func (m *Metrics) SaveToDB(ctx context.Context, store Store) {
	for name, c := range m.persisted() {
		if err := store.SaveMetric(ctx, name, GetMetricValue(c)); err != nil {
			log.Errorf("Failed to save metric %s: %v", name, err)
		}
	}

	metricChan := make(chan prometheus.Metric, 16)
	go func() {
		m.AlertsSent.Collect(metricChan)
		close(metricChan)
	}()

	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Errorf("Failed to read alerts_total metric: %v", err)
			continue
		}
		var chain string
		for _, label := range metricProto.Label {
			if label.GetName() == "chain" {
				chain = label.GetValue()
			}
		}
		if err := store.SaveMetricWithLabels(ctx, "alerts_total", "chain", chain, metricProto.Counter.GetValue()); err != nil {
			log.Errorf("Failed to save alerts_total[%s]: %v", chain, err)
		}
	}

	log.Debug("Metrics saved to database.")
}

// GetMetricValue reads the current value of a single counter or gauge.
func GetMetricValue(metric prometheus.Collector) float64 {
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Errorf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		return metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		return metricProto.Gauge.GetValue()
	}
	return 0
}
