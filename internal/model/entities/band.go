package entities

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Band is the acceptable [Low, High] range for one metric.
// Low <= High is assumed, not enforced.
type Band struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
	Unit string  `json:"unit,omitempty"`
}

// Width returns High-Low, never less than floor.
func (b Band) Width(floor float64) float64 {
	return math.Max(floor, b.High-b.Low)
}

// Contains reports whether v lies in the closed interval.
func (b Band) Contains(v float64) bool {
	return v >= b.Low && v <= b.High
}

// UnmarshalJSON accetta sia low/high sia min/max (dataset colturale),
// numeri o stringhe numeriche.
func (b *Band) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if v, ok := firstNumber(m, "low", "min"); ok {
		b.Low = v
	}
	if v, ok := firstNumber(m, "high", "max"); ok {
		b.High = v
	}
	if u, ok := m["unit"].(string); ok {
		b.Unit = u
	}
	return nil
}

// Thresholds maps each monitored metric to its alert band.
type Thresholds map[Metric]Band

// UnmarshalJSON resolves metric aliases in keys; unknown keys are dropped.
func (t *Thresholds) UnmarshalJSON(data []byte) error {
	var raw map[string]Band
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Thresholds, len(raw))
	for k, v := range raw {
		if m, ok := ParseMetric(k); ok {
			out[m] = v
		}
	}
	*t = out
	return nil
}

// Clone returns an independent copy.
func (t Thresholds) Clone() Thresholds {
	out := make(Thresholds, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

func firstNumber(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := ToFloat(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// ToFloat converte numeri/stringhe numeriche in float64 (virgola decimale ammessa).
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", ".")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}
