package presentation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/smukkama/aqi-forecast/internal/forecast"
)

// TimeLayout is the layout of forecast target labels, e.g. "02-05-2024 01:00 PM"
const TimeLayout = "02-01-2006 03:04 PM"

// Placeholder is shown for a pollutant whose latest value is unreadable
const Placeholder = "-"

// Options control the wording of a view
type Options struct {
	Title      string
	Source     string // e.g. "the CSV"
	WindowSize int
}

// DefaultOptions returns the dashboard wording
func DefaultOptions(windowSize int) Options {
	return Options{Title: "AQI Forecast Dashboard", Source: "the CSV", WindowSize: windowSize}
}

// View is a forecast result prepared for display
type View struct {
	Title       string      `json:"title"`
	LatestDate  string      `json:"latest_date"`
	RunID       string      `json:"run_id"`
	GeneratedAt string      `json:"generated_at"`
	Levels      []LevelView `json:"levels"`
	Forecasts   []Metric    `json:"forecasts"`
	Chart       Chart       `json:"chart"`
	Footnote    string      `json:"footnote"`
}

// LevelView is one line of the current pollutant panel
type LevelView struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Metric is one forecast widget
type Metric struct {
	Label    string  `json:"label"`
	Value    string  `json:"value"`
	AQI      float64 `json:"aqi"`
	Severity string  `json:"severity"`
	Color    string  `json:"color"`
	Symbol   string  `json:"symbol"`
}

// Build prepares a view of result
func Build(result *forecast.Result, opts Options) *View {
	v := &View{
		Title:       opts.Title,
		LatestDate:  result.RawDate,
		RunID:       result.RunID,
		GeneratedAt: result.GeneratedAt.Format(TimeLayout),
		Chart:       NewChart(result.History, result.Forecasts),
	}

	for _, l := range result.Levels {
		value := Placeholder
		if l.OK {
			value = FormatValue(l.Value)
		}
		v.Levels = append(v.Levels, LevelView{Label: strings.ToUpper(l.Name), Value: value})
	}

	horizons := make([]string, 0, len(result.Forecasts))
	for _, f := range result.Forecasts {
		v.Forecasts = append(v.Forecasts, Metric{
			Label:    fmt.Sprintf("%dh %s", f.HorizonHours, f.Target.Format(TimeLayout)),
			Value:    FormatValue(f.AQI),
			AQI:      f.AQI,
			Severity: f.Severity.Label,
			Color:    f.Severity.Color,
			Symbol:   f.Severity.Symbol,
		})
		horizons = append(horizons, fmt.Sprintf("%dh", f.HorizonHours))
	}

	v.Footnote = fmt.Sprintf("Forecasts use the last %d rows from %s as input to predict %s ahead.",
		opts.WindowSize, opts.Source, joinList(horizons))
	return v
}

// FormatValue prints a number in its shortest exact form, keeping a
// decimal point on whole numbers ("5.0", "12.37")
func FormatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Placeholder
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// joinList joins items as "a, b, and c"
func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}
