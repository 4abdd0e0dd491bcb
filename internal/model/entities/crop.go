package entities

import (
	"encoding/json"
	"strings"
)

// CropProfile is one knowledge-base entry: the tolerance range of a crop for
// each metric. Profiles may be partial.
type CropProfile struct {
	Name      string          `json:"name"`
	LocalName string          `json:"local_name,omitempty"`
	Icon      string          `json:"icon,omitempty"`
	Ranges    map[Metric]Band `json:"ranges"`
}

// Range returns the tolerance band for m, if the profile defines one.
func (c CropProfile) Range(m Metric) (Band, bool) {
	b, ok := c.Ranges[m]
	return b, ok
}

// UnmarshalJSON accepts both the flat dataset layout
// ({"name":..., "pH":{"min":..,"max":..}, "N":{...}}) and a nested "ranges" object.
func (c *CropProfile) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := CropProfile{Ranges: map[Metric]Band{}}

	str := func(key string) string {
		var s string
		if v, ok := raw[key]; ok {
			_ = json.Unmarshal(v, &s)
		}
		return strings.TrimSpace(s)
	}
	out.Name = str("name")
	if out.Name == "" {
		out.Name = str("title")
	}
	out.LocalName = str("local_name")
	out.Icon = str("icon")

	// flat keys first, "ranges" only fills what is still missing
	for k, v := range raw {
		m, ok := ParseMetric(k)
		if !ok {
			continue
		}
		var b Band
		if err := json.Unmarshal(v, &b); err != nil {
			return err
		}
		out.Ranges[m] = b
	}
	if v, ok := raw["ranges"]; ok {
		var nested map[string]Band
		if err := json.Unmarshal(v, &nested); err != nil {
			return err
		}
		for k, b := range nested {
			m, ok := ParseMetric(k)
			if !ok {
				continue
			}
			if _, have := out.Ranges[m]; !have {
				out.Ranges[m] = b
			}
		}
	}
	*c = out
	return nil
}
