package messages

import "time"

// AlertItem is one ranked issue as it travels on the bus.
type AlertItem struct {
	Key      string   `json:"key"`
	Metric   string   `json:"metric,omitempty"`
	State    string   `json:"state"`
	Severity float64  `json:"severity"`
	Title    string   `json:"title"`
	Advice   string   `json:"advice"`
	Value    *float64 `json:"value,omitempty"`
	Unit     string   `json:"unit,omitempty"`
}

// SoilAlertEvent is published by the advisor on event/soilAlert/{field}/{sensor}
// whenever the ranked issue list changes.
type SoilAlertEvent struct {
	EventID   string      `json:"event_id"`
	FieldID   string      `json:"field_id"`
	SensorID  string      `json:"sensor_id"`
	Issues    []AlertItem `json:"issues"`
	Timestamp time.Time   `json:"timestamp"`
}
