package advisor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	core "github.com/LeonardoBeccarini/soil_advisor/internal/advisor"
	"github.com/LeonardoBeccarini/soil_advisor/internal/model/entities"
)

// Metrics are registered on their own registry so tests can build many services.
type Metrics struct {
	reg *prometheus.Registry

	Readings        *prometheus.CounterVec
	Rejected        *prometheus.CounterVec
	FetchErrors     *prometheus.CounterVec
	AlertsPublished prometheus.Counter
	Value           *prometheus.GaugeVec
	Issues          *prometheus.GaugeVec
	BestScore       prometheus.Gauge
}

// NewMetrics registers on reg (a fresh registry when nil).
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		reg: reg,
		Readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soil_advisor", Name: "readings_total",
			Help: "Accepted readings by source.",
		}, []string{"source"}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soil_advisor", Name: "readings_rejected_total",
			Help: "Readings dropped because no metric was usable or the payload did not decode.",
		}, []string{"source"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soil_advisor", Name: "fetch_errors_total",
			Help: "Board fetch failures by reason.",
		}, []string{"reason"}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "soil_advisor", Name: "alerts_published_total",
			Help: "Alert events published on MQTT.",
		}),
		Value: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "soil_advisor", Name: "reading_value",
			Help: "Last accepted value per metric.",
		}, []string{"metric"}),
		Issues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "soil_advisor", Name: "issue_severity",
			Help: "Severity of the currently ranked issues.",
		}, []string{"metric", "state"}),
		BestScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "soil_advisor", Name: "best_crop_score",
			Help: "Suitability score of the best crop for the last reading.",
		}),
	}
	reg.MustRegister(m.Readings, m.Rejected, m.FetchErrors, m.AlertsPublished, m.Value, m.Issues, m.BestScore)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) observeReading(r entities.Reading) {
	for _, metric := range entities.Metrics {
		if v, ok := r.Value(metric); ok {
			m.Value.WithLabelValues(string(metric)).Set(v)
		} else {
			m.Value.DeleteLabelValues(string(metric))
		}
	}
}

func (m *Metrics) observeIssues(issues []core.Issue) {
	m.Issues.Reset()
	if core.IsAllNormal(issues) {
		return
	}
	for _, i := range issues {
		m.Issues.WithLabelValues(string(i.Metric), string(i.State)).Set(i.Severity)
	}
}
