package advisor

import (
	"math"
	"testing"

	"github.com/LeonardoBeccarini/soil_advisor/internal/model/entities"
)

func TestPill(t *testing.T) {
	cases := []struct {
		m    entities.Metric
		v    float64
		want Tone
	}{
		{entities.MetricPH, 6, ToneOK},
		{entities.MetricPH, 7.0, ToneOK},
		{entities.MetricPH, 7.5, ToneNormal},
		{entities.MetricPH, 4.5, ToneNormal},
		{entities.MetricPH, 8.2, ToneHigh},
		{entities.MetricPH, 4, ToneLow},
		{entities.MetricMoisture, 60, ToneOK},
		{entities.MetricMoisture, 52, ToneNormal},
		{entities.MetricMoisture, 80, ToneHigh},
		{entities.MetricTemp, 25, ToneOK},
		{entities.MetricTemp, 35, ToneNormal},
		{entities.MetricTemp, 10, ToneLow},
		{entities.MetricNitrogen, 80, ToneOK},
		{entities.MetricPotassium, 140, ToneNormal},
		{entities.MetricPhosphorus, 200, ToneHigh},
		{entities.MetricPhosphorus, 5, ToneLow},
	}
	for _, tc := range cases {
		r := reading(map[entities.Metric]float64{tc.m: tc.v})
		got, ok := Pill(tc.m, r)
		if !ok || got != tc.want {
			t.Errorf("Pill(%s,%v) = %s,%v want %s", tc.m, tc.v, got, ok, tc.want)
		}
	}

	r := reading(map[entities.Metric]float64{entities.MetricPH: math.NaN()})
	if _, ok := Pill(entities.MetricPH, r); ok {
		t.Error("NaN should have no pill")
	}
}

func TestCards(t *testing.T) {
	th := entities.Thresholds{entities.MetricMoisture: {Low: 40, High: 70, Unit: "%"}}
	r := reading(map[entities.Metric]float64{entities.MetricMoisture: 60})
	cards := Cards(r, th)
	if len(cards) != len(entities.Metrics) {
		t.Fatalf("cards = %d", len(cards))
	}
	m := cards[1]
	if m.Metric != entities.MetricMoisture || m.Unit != "%" || m.Tone != ToneOK || *m.Value != 60 {
		t.Errorf("moisture card = %+v", m)
	}
	if cards[0].Value != nil || cards[0].Tone != "" {
		t.Errorf("ph card = %+v", cards[0])
	}
}

func TestIconTag(t *testing.T) {
	cases := map[string]string{
		"Rice (Boro)":           "rice",
		"ধান (আমান)":            "rice",
		"Sweet Potato":          "sweet-potato",
		"আলু":                   "potato",
		"Cauliflower ফুলকপি":    "cauliflower",
		"Cabbage":               "cabbage",
		"মটরশুটি":               "pea",
		"Chickpea":              "chickpea",
		"Maize":                 "corn",
		"":                      DefaultIcon,
		"Dragon fruit":          DefaultIcon,
		"  SESAME  ":            "sesame",
	}
	for in, want := range cases {
		if got := IconTag(in); got != want {
			t.Errorf("IconTag(%q) = %q, want %q", in, got, want)
		}
	}
}
