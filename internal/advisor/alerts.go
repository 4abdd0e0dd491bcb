// Package advisor holds the two decision components that run over a soil
// reading: the threshold alert classifier and the crop suitability scorer.
// Both are pure functions of their inputs and safe for concurrent use.
package advisor

import (
	"fmt"
	"math"
	"sort"

	"github.com/LeonardoBeccarini/soil_advisor/internal/model/entities"
)

// State is the classification of one reading against its band.
type State string

const (
	StateLow    State = "low"
	StateNormal State = "normal"
	StateHigh   State = "high"
	// StateMissing is only produced in strict mode.
	StateMissing State = "missing"
)

const (
	// MaxIssues is the hard ceiling on the ranked issue list.
	MaxIssues = 3

	// minAlertWidth floors the band width used as severity denominator.
	minAlertWidth = 1.0

	IconWarning = "warning-outline"
	IconOK      = "checkmark-circle-outline"
	IconMissing = "help-circle-outline"

	allNormalKey = "all-normal"
)

// Classification is the outcome of Classify.
type Classification struct {
	State    State
	Severity float64
}

// Issue is one entry of the alert list.
type Issue struct {
	Key      string          `json:"key"`
	Metric   entities.Metric `json:"metric,omitempty"`
	State    State           `json:"state"`
	Severity float64         `json:"severity"`
	Title    string          `json:"title"`
	Advice   string          `json:"advice"`
	Icon     string          `json:"icon"`
	Value    *float64        `json:"value,omitempty"`
	Unit     string          `json:"unit,omitempty"`
}

// Options tunes RankIssuesWith.
type Options struct {
	// Strict reports absent or NaN readings as "missing" issues instead of
	// treating them as normal.
	Strict bool
}

// Classify places value against band. A nil or non-finite value is normal
// with zero severity: unknown readings never raise an alert.
func Classify(value *float64, band entities.Band) Classification {
	if value == nil || math.IsNaN(*value) || math.IsInf(*value, 0) {
		return Classification{State: StateNormal}
	}
	v := *value
	width := band.Width(minAlertWidth)
	switch {
	case v < band.Low:
		return Classification{State: StateLow, Severity: (band.Low - v) / width}
	case v > band.High:
		return Classification{State: StateHigh, Severity: (v - band.High) / width}
	}
	return Classification{State: StateNormal}
}

// RankIssues returns at most min(maxMessages, MaxIssues) issues, most severe
// first. When every reading is in band the result is the single "all normal"
// issue, whatever maxMessages is.
func RankIssues(r entities.Reading, bands entities.Thresholds, texts entities.MessageTable, maxMessages int) []Issue {
	return RankIssuesWith(r, bands, texts, maxMessages, Options{})
}

// RankIssuesWith is RankIssues with options.
func RankIssuesWith(r entities.Reading, bands entities.Thresholds, texts entities.MessageTable, maxMessages int, opt Options) []Issue {
	var issues, missing []Issue

	for _, m := range entities.Metrics {
		band, ok := bands[m]
		if !ok {
			continue
		}
		raw := r.Raw(m)
		if opt.Strict {
			if _, ok := r.Value(m); !ok {
				missing = append(missing, missingIssue(m, band, raw))
				continue
			}
		}
		c := Classify(raw, band)
		if c.State == StateNormal {
			continue
		}
		msg, ok := texts.Lookup(m, string(c.State))
		if !ok {
			msg = entities.Message{Title: fmt.Sprintf("%s %s", m, c.State)}
		}
		issues = append(issues, Issue{
			Key:      fmt.Sprintf("%s-%s", m, c.State),
			Metric:   m,
			State:    c.State,
			Severity: c.Severity,
			Title:    msg.Title,
			Advice:   msg.Advice,
			Icon:     IconWarning,
			Value:    copyFloat(raw),
			Unit:     band.Unit,
		})
	}

	if len(issues) == 0 && len(missing) == 0 {
		return []Issue{AllNormal(texts)}
	}

	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Severity > issues[j].Severity })
	issues = append(issues, missing...)

	limit := maxMessages
	if limit > MaxIssues {
		limit = MaxIssues
	}
	if limit < 0 {
		limit = 0
	}
	if len(issues) > limit {
		issues = issues[:limit]
	}
	return issues
}

// AllNormal builds the synthetic issue reported when nothing is out of band.
func AllNormal(texts entities.MessageTable) Issue {
	return Issue{
		Key:    allNormalKey,
		State:  StateNormal,
		Title:  texts.AllNormal.Title,
		Advice: texts.AllNormal.Advice,
		Icon:   IconOK,
	}
}

// IsAllNormal reports whether issues is the all-normal singleton.
func IsAllNormal(issues []Issue) bool {
	return len(issues) == 1 && issues[0].Key == allNormalKey
}

func missingIssue(m entities.Metric, band entities.Band, raw *float64) Issue {
	return Issue{
		Key:    fmt.Sprintf("%s-%s", m, StateMissing),
		Metric: m,
		State:  StateMissing,
		Title:  fmt.Sprintf("%s not reported", m),
		Advice: "Check the probe wiring and the sensor board.",
		Icon:   IconMissing,
		Value:  copyFloat(raw),
		Unit:   band.Unit,
	}
}

// copyFloat drops non-finite values, encoding/json rejects them.
func copyFloat(p *float64) *float64 {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return nil
	}
	v := *p
	return &v
}
