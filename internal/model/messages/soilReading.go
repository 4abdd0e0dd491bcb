package messages

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/soil_advisor/internal/model/entities"
)

// SoilReading is the JSON document served by the sensor board on GET /sensor
// and published on sensor/soil/{field}/{sensor}.
type SoilReading struct {
	FieldID    string    `json:"field_id,omitempty"`
	SensorID   string    `json:"sensor_id,omitempty"`
	PH         float64   `json:"ph"`
	Moisture   float64   `json:"moisture"`
	Temp       float64   `json:"temp"`
	Nitrogen   float64   `json:"nitrogen"`
	Phosphorus float64   `json:"phosphorus"`
	Potassium  float64   `json:"potassium"`
	Timestamp  time.Time `json:"timestamp,omitempty"`

	present map[entities.Metric]bool
}

// UnmarshalJSON è tollerante: numeri, stringhe numeriche o null.
// Un valore non interpretabile diventa NaN, una chiave assente resta "non riportata".
func (s *SoilReading) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*s = SoilReading{present: map[entities.Metric]bool{}}

	if v, ok := m["field_id"].(string); ok {
		s.FieldID = strings.TrimSpace(v)
	}
	if v, ok := m["sensor_id"].(string); ok {
		s.SensorID = strings.TrimSpace(v)
	}
	if t, ok := m["timestamp"].(string); ok && t != "" {
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			s.Timestamp = ts
		}
	}

	for k, raw := range m {
		metric, ok := entities.ParseMetric(k)
		if !ok {
			continue
		}
		v := math.NaN()
		if f, ok := entities.ToFloat(raw); ok {
			v = f
		}
		s.set(metric, v)
	}
	return nil
}

func (s *SoilReading) set(m entities.Metric, v float64) {
	switch m {
	case entities.MetricPH:
		s.PH = v
	case entities.MetricMoisture:
		s.Moisture = v
	case entities.MetricTemp:
		s.Temp = v
	case entities.MetricNitrogen:
		s.Nitrogen = v
	case entities.MetricPhosphorus:
		s.Phosphorus = v
	case entities.MetricPotassium:
		s.Potassium = v
	default:
		return
	}
	if s.present == nil {
		s.present = map[entities.Metric]bool{}
	}
	s.present[m] = true
}

func (s SoilReading) get(m entities.Metric) float64 {
	switch m {
	case entities.MetricPH:
		return s.PH
	case entities.MetricMoisture:
		return s.Moisture
	case entities.MetricTemp:
		return s.Temp
	case entities.MetricNitrogen:
		return s.Nitrogen
	case entities.MetricPhosphorus:
		return s.Phosphorus
	case entities.MetricPotassium:
		return s.Potassium
	}
	return math.NaN()
}

// MarshalJSON writes NaN values as null so the document stays valid JSON.
func (s SoilReading) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if s.FieldID != "" {
		out["field_id"] = s.FieldID
	}
	if s.SensorID != "" {
		out["sensor_id"] = s.SensorID
	}
	if !s.Timestamp.IsZero() {
		out["timestamp"] = s.Timestamp.UTC().Format(time.RFC3339)
	}
	for _, m := range entities.Metrics {
		if s.present != nil && !s.present[m] {
			continue
		}
		v := s.get(m)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[string(m)] = nil
			continue
		}
		out[string(m)] = v
	}
	return json.Marshal(out)
}

// ToReading converts the wire document to the domain reading. Metrics missing
// from the document are nil, unparsable ones are NaN.
func (s SoilReading) ToReading() entities.Reading {
	r := entities.Reading{FieldID: s.FieldID, SensorID: s.SensorID, Timestamp: s.Timestamp}
	for _, m := range entities.Metrics {
		if s.present != nil && !s.present[m] {
			continue
		}
		r.Set(m, s.get(m))
	}
	return r
}

// FromReading builds the wire document; absent metrics are left out.
func FromReading(r entities.Reading) SoilReading {
	s := SoilReading{
		FieldID:   r.FieldID,
		SensorID:  r.SensorID,
		Timestamp: r.Timestamp,
		present:   map[entities.Metric]bool{},
	}
	for _, m := range entities.Metrics {
		if p := r.Raw(m); p != nil {
			s.set(m, *p)
		}
	}
	return s
}
