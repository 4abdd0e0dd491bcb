package entities

import "encoding/json"

// Message is the title/advice pair shown for an alert.
type Message struct {
	Title  string `json:"title"`
	Advice string `json:"advice"`
}

// MetricMessages holds the texts for one metric's two out-of-band states.
type MetricMessages struct {
	Low  Message `json:"low"`
	High Message `json:"high"`
}

// MessageTable is keyed by metric, plus the "all normal" entry.
type MessageTable struct {
	Metrics   map[Metric]MetricMessages `json:"metrics"`
	AllNormal Message                   `json:"allNormal"`
}

// Lookup returns the message for (m, state). state is "low" or "high".
func (t MessageTable) Lookup(m Metric, state string) (Message, bool) {
	mm, ok := t.Metrics[m]
	if !ok {
		return Message{}, false
	}
	switch state {
	case "low":
		return mm.Low, mm.Low != (Message{})
	case "high":
		return mm.High, mm.High != (Message{})
	}
	return Message{}, false
}

// UnmarshalJSON accepts the flat layout used by the app
// ({"ph":{"low":..,"high":..}, ..., "allNormal":{...}}).
func (t *MessageTable) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := MessageTable{Metrics: map[Metric]MetricMessages{}}
	for k, v := range raw {
		switch k {
		case "allNormal", "all_normal":
			if err := json.Unmarshal(v, &out.AllNormal); err != nil {
				return err
			}
		case "metrics":
			var nested map[string]MetricMessages
			if err := json.Unmarshal(v, &nested); err != nil {
				return err
			}
			for nk, nv := range nested {
				if m, ok := ParseMetric(nk); ok {
					out.Metrics[m] = nv
				}
			}
		default:
			m, ok := ParseMetric(k)
			if !ok {
				continue
			}
			var mm MetricMessages
			if err := json.Unmarshal(v, &mm); err != nil {
				return err
			}
			out.Metrics[m] = mm
		}
	}
	*t = out
	return nil
}
