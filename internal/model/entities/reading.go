package entities

import (
	"math"
	"time"
)

// Reading is one refresh of the soil sensor. A nil field means the board did
// not report that metric.
type Reading struct {
	FieldID    string    `json:"field_id,omitempty"`
	SensorID   string    `json:"sensor_id,omitempty"`
	PH         *float64  `json:"ph"`
	Moisture   *float64  `json:"moisture"`
	Temp       *float64  `json:"temp"`
	Nitrogen   *float64  `json:"nitrogen"`
	Phosphorus *float64  `json:"phosphorus"`
	Potassium  *float64  `json:"potassium"`
	Timestamp  time.Time `json:"timestamp"`
}

// Float returns a pointer to v, handy for building readings by hand.
func Float(v float64) *float64 { return &v }

func (r *Reading) slot(m Metric) **float64 {
	switch m {
	case MetricPH:
		return &r.PH
	case MetricMoisture:
		return &r.Moisture
	case MetricTemp:
		return &r.Temp
	case MetricNitrogen:
		return &r.Nitrogen
	case MetricPhosphorus:
		return &r.Phosphorus
	case MetricPotassium:
		return &r.Potassium
	}
	return nil
}

// Raw returns the stored pointer for m (nil if absent or unknown metric).
func (r Reading) Raw(m Metric) *float64 {
	if p := r.slot(m); p != nil {
		return *p
	}
	return nil
}

// Value returns the numeric value for m. ok is false when the metric is
// absent, NaN or infinite.
func (r Reading) Value(m Metric) (v float64, ok bool) {
	p := r.Raw(m)
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return *p, true
}

// Set stores v for m; unknown metrics are ignored.
func (r *Reading) Set(m Metric, v float64) {
	if p := r.slot(m); p != nil {
		*p = Float(v)
	}
}

// Unset marks m as not reported.
func (r *Reading) Unset(m Metric) {
	if p := r.slot(m); p != nil {
		*p = nil
	}
}

// AllInvalid reports whether no metric carries a usable number.
func (r Reading) AllInvalid() bool {
	for _, m := range Metrics {
		if _, ok := r.Value(m); ok {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (r Reading) Clone() Reading {
	out := r
	for _, m := range Metrics {
		if p := r.Raw(m); p != nil {
			out.Set(m, *p)
		}
	}
	return out
}
