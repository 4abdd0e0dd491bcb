package soilctl

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	core "github.com/LeonardoBeccarini/soil_advisor/internal/advisor"
	"github.com/LeonardoBeccarini/soil_advisor/internal/model/entities"
	"github.com/LeonardoBeccarini/soil_advisor/internal/services/advisor"
)

var (
	colorRed    = lipgloss.Color("#FF5555")
	colorYellow = lipgloss.Color("#F1FA8C")
	colorGreen  = lipgloss.Color("#50FA7B")
	colorCyan   = lipgloss.Color("#8BE9FD")
	colorOrange = lipgloss.Color("#FFB86C")
	colorGray   = lipgloss.Color("#6272A4")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	labelStyle  = lipgloss.NewStyle().Foreground(colorGray)
	okStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle   = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	critStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	orangeStyle = lipgloss.NewStyle().Foreground(colorOrange)
	dimStyle    = lipgloss.NewStyle().Foreground(colorGray)
)

func toneStyle(t core.Tone) lipgloss.Style {
	switch t {
	case core.ToneOK:
		return okStyle
	case core.ToneNormal:
		return warnStyle
	case core.ToneHigh:
		return critStyle
	case core.ToneLow:
		return orangeStyle
	}
	return dimStyle
}

func labelColor(l core.Label) lipgloss.Style {
	switch l {
	case core.LabelGood:
		return okStyle
	case core.LabelFair:
		return warnStyle
	}
	return critStyle
}

func severityStyle(sev float64) lipgloss.Style {
	switch {
	case sev >= 1:
		return critStyle
	case sev > 0:
		return warnStyle
	}
	return okStyle
}

func fmtValue(v *float64, unit string) string {
	if v == nil {
		return "n/a"
	}
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", *v), "0"), ".")
	if unit != "" {
		s += " " + unit
	}
	return s
}

// pad before styling, ANSI codes would break the width
func cell(s string, w int, st lipgloss.Style) string {
	return st.Render(fmt.Sprintf("%-*s", w, s))
}

func renderCards(cards []core.Card) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Reading") + "\n")
	for _, c := range cards {
		tone := string(c.Tone)
		if tone == "" {
			tone = "-"
		}
		b.WriteString(cell(string(c.Metric), 12, labelStyle))
		b.WriteString(cell(fmtValue(c.Value, c.Unit), 12, lipgloss.NewStyle()))
		b.WriteString(toneStyle(c.Tone).Render(tone))
		b.WriteString("\n")
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderIssues(issues []core.Issue) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Alerts") + "\n")
	if len(issues) == 0 {
		b.WriteString(dimStyle.Render("none"))
	}
	for i, is := range issues {
		head := is.Title
		if is.Metric != "" {
			head = fmt.Sprintf("%s (%s %s, severity %.2f)", is.Title, is.Metric, fmtValue(is.Value, is.Unit), is.Severity)
		}
		b.WriteString(severityStyle(is.Severity).Render(head))
		if is.Advice != "" {
			b.WriteString("\n  " + dimStyle.Render(is.Advice))
		}
		if i < len(issues)-1 {
			b.WriteString("\n")
		}
	}
	return panelStyle.Render(b.String())
}

func renderRecommendations(recs []core.Suitability) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Recommended crops") + "\n")
	if len(recs) == 0 {
		b.WriteString(dimStyle.Render("none"))
	}
	for i, r := range recs {
		name := r.Name
		if r.LocalName != "" {
			name = fmt.Sprintf("%s (%s)", r.Name, r.LocalName)
		}
		b.WriteString(fmt.Sprintf("%d. ", i+1))
		b.WriteString(cell(name, 28, lipgloss.NewStyle()))
		b.WriteString(cell(fmt.Sprintf("%3.0f%%", r.Score*100), 6, labelColor(r.Label)))
		b.WriteString(labelColor(r.Label).Render(string(r.Label)))
		if i < len(recs)-1 {
			b.WriteString("\n")
		}
	}
	return panelStyle.Render(b.String())
}

// RenderEvaluation formats an evaluation as a terminal report.
func RenderEvaluation(ev advisor.Evaluation) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		renderCards(ev.Cards),
		renderIssues(ev.Issues),
		renderRecommendations(ev.Recommendations),
	)
}

// RenderCrops lists the knowledge base with each crop's tolerance ranges.
func RenderCrops(crops []entities.CropProfile) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Crops (%d)", len(crops))) + "\n")
	b.WriteString(cell("name", 22, labelStyle))
	for _, m := range entities.Metrics {
		b.WriteString(cell(string(m), 12, labelStyle))
	}
	for _, c := range crops {
		b.WriteString("\n")
		b.WriteString(cell(c.Name, 22, lipgloss.NewStyle()))
		for _, m := range entities.Metrics {
			rng := "-"
			if band, ok := c.Range(m); ok {
				rng = fmt.Sprintf("%g-%g", band.Low, band.High)
			}
			b.WriteString(cell(rng, 12, lipgloss.NewStyle()))
		}
	}
	return panelStyle.Render(b.String())
}
