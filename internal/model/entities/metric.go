package entities

import "strings"

// Metric identifies one soil quantity reported by the sensor board.
type Metric string

const (
	MetricPH         Metric = "ph"
	MetricMoisture   Metric = "moisture"
	MetricTemp       Metric = "temp"
	MetricNitrogen   Metric = "nitrogen"
	MetricPhosphorus Metric = "phosphorus"
	MetricPotassium  Metric = "potassium"
)

// Metrics is the canonical evaluation order. Ranking ties keep this order.
var Metrics = []Metric{
	MetricPH,
	MetricMoisture,
	MetricTemp,
	MetricNitrogen,
	MetricPhosphorus,
	MetricPotassium,
}

// alias tollerati in ingresso (dataset colturale, firmware, file di config)
var metricAliases = map[string]Metric{
	"ph":          MetricPH,
	"moisture":    MetricMoisture,
	"temp":        MetricTemp,
	"temperature": MetricTemp,
	"nitrogen":    MetricNitrogen,
	"n":           MetricNitrogen,
	"phosphorus":  MetricPhosphorus,
	"p":           MetricPhosphorus,
	"potassium":   MetricPotassium,
	"k":           MetricPotassium,
}

// ParseMetric resolves a metric id or one of its aliases ("pH", "Temperature", "N"...).
func ParseMetric(s string) (Metric, bool) {
	m, ok := metricAliases[strings.ToLower(strings.TrimSpace(s))]
	return m, ok
}

func (m Metric) String() string { return string(m) }
