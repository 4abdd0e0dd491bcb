package advisor

import (
	"math"
	"sort"

	"github.com/LeonardoBeccarini/soil_advisor/internal/model/entities"
)

// Label is the discrete suitability tier.
type Label string

const (
	LabelGood Label = "good"
	LabelFair Label = "fair"
	LabelPoor Label = "poor"
)

const (
	goodFrom = 0.7
	fairFrom = 0.45

	// membershipEpsilon keeps degenerate ranges from dividing by zero.
	membershipEpsilon = 1e-6

	// DefaultTopN is how many crops the dashboard shows.
	DefaultTopN = 4

	unknownCrop = "unknown"
)

// Part is the membership of one metric for one crop.
type Part struct {
	Metric entities.Metric `json:"metric"`
	Score  float64         `json:"score"`
	Min    float64         `json:"min"`
	Max    float64         `json:"max"`
	Value  float64         `json:"value"`
}

// Score is the outcome of ScoreCrop.
type Score struct {
	Score float64 `json:"score"`
	Label Label   `json:"label"`
	Parts []Part  `json:"parts"`
}

// Suitability is one ranked crop recommendation.
type Suitability struct {
	Name      string  `json:"name"`
	LocalName string  `json:"local_name,omitempty"`
	Icon      string  `json:"icon"`
	Score     float64 `json:"score"`
	Label     Label   `json:"label"`
	Breakdown []Part  `json:"breakdown"`
}

// Membership is a trapezoid: 1 across [min,max], falling linearly to 0 over
// one range width on each side.
func Membership(value, min, max float64) float64 {
	w := math.Max(membershipEpsilon, max-min)
	switch {
	case value >= min && value <= max:
		return 1
	case value < min:
		return math.Max(0, 1-(min-value)/w)
	default:
		return math.Max(0, 1-(value-max)/w)
	}
}

// SuitabilityLabel maps a score to its tier. Lower bounds are inclusive.
func SuitabilityLabel(score float64) Label {
	switch {
	case score >= goodFrom:
		return LabelGood
	case score >= fairFrom:
		return LabelFair
	}
	return LabelPoor
}

// ScoreCrop averages the membership of every metric the crop defines and the
// reading carries. With nothing comparable the score is 0.
func ScoreCrop(r entities.Reading, crop entities.CropProfile) Score {
	parts := make([]Part, 0, len(entities.Metrics))
	sum := 0.0
	for _, m := range entities.Metrics {
		band, ok := crop.Range(m)
		if !ok {
			continue
		}
		v, ok := r.Value(m)
		if !ok {
			continue
		}
		s := Membership(v, band.Low, band.High)
		sum += s
		parts = append(parts, Part{Metric: m, Score: s, Min: band.Low, Max: band.High, Value: v})
	}
	score := 0.0
	if len(parts) > 0 {
		score = sum / float64(len(parts))
	}
	return Score{Score: score, Label: SuitabilityLabel(score), Parts: parts}
}

// Recommend scores every crop and returns the best topN, ties in knowledge
// base order.
func Recommend(r entities.Reading, kb []entities.CropProfile, topN int) []Suitability {
	if topN <= 0 {
		return []Suitability{}
	}
	out := make([]Suitability, 0, len(kb))
	for _, crop := range kb {
		sc := ScoreCrop(r, crop)
		name := crop.Name
		if name == "" {
			name = crop.LocalName
		}
		if name == "" {
			name = unknownCrop
		}
		icon := crop.Icon
		if icon == "" {
			icon = IconTag(name + " " + crop.LocalName)
		}
		out = append(out, Suitability{
			Name:      name,
			LocalName: crop.LocalName,
			Icon:      icon,
			Score:     sc.Score,
			Label:     sc.Label,
			Breakdown: sc.Parts,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}
