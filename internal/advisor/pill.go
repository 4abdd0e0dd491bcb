package advisor

import "github.com/LeonardoBeccarini/soil_advisor/internal/model/entities"

// Tone is the colour class of a metric card status pill.
type Tone string

const (
	ToneOK     Tone = "ok"
	ToneNormal Tone = "normal"
	ToneHigh   Tone = "high"
	ToneLow    Tone = "low"
)

type pillBands struct {
	ok, normal entities.Band
}

// bande "card" della dashboard, più larghe delle soglie di allerta
var cardBands = map[entities.Metric]pillBands{
	entities.MetricPH:       {ok: entities.Band{Low: 5.5, High: 7.0}, normal: entities.Band{Low: 4.5, High: 8.0}},
	entities.MetricMoisture: {ok: entities.Band{Low: 55, High: 70}, normal: entities.Band{Low: 50, High: 75}},
	entities.MetricTemp:     {ok: entities.Band{Low: 20, High: 32}, normal: entities.Band{Low: 15, High: 36}},
}

var nutrientBands = pillBands{ok: entities.Band{Low: 40, High: 120}, normal: entities.Band{Low: 30, High: 150}}

// Pill returns the status tone for a metric card. The ok band is tested
// before the wider normal band. ok is false when the value is not usable.
func Pill(m entities.Metric, r entities.Reading) (Tone, bool) {
	v, ok := r.Value(m)
	if !ok {
		return "", false
	}
	b, have := cardBands[m]
	if !have {
		b = nutrientBands
	}
	switch {
	case b.ok.Contains(v):
		return ToneOK, true
	case b.normal.Contains(v):
		return ToneNormal, true
	case v > b.normal.High:
		return ToneHigh, true
	}
	return ToneLow, true
}

// Card is one dashboard tile.
type Card struct {
	Metric entities.Metric `json:"metric"`
	Value  *float64        `json:"value"`
	Unit   string          `json:"unit,omitempty"`
	Tone   Tone            `json:"tone,omitempty"`
}

// Cards builds the six metric tiles in canonical order; units come from the
// alert bands when present.
func Cards(r entities.Reading, bands entities.Thresholds) []Card {
	out := make([]Card, 0, len(entities.Metrics))
	for _, m := range entities.Metrics {
		c := Card{Metric: m, Value: copyFloat(r.Raw(m)), Unit: bands[m].Unit}
		if t, ok := Pill(m, r); ok {
			c.Tone = t
		}
		out = append(out, c)
	}
	return out
}
