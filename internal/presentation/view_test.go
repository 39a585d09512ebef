package presentation

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/smukkama/aqi-forecast/internal/forecast"
	"github.com/smukkama/aqi-forecast/internal/severity"
)

func sampleResult() *forecast.Result {
	base := time.Date(2024, 5, 2, 13, 0, 0, 0, time.UTC)

	var history []forecast.Point
	for i := 0; i < 48; i++ {
		history = append(history, forecast.Point{
			Time: base.Add(time.Duration(i-47) * time.Hour),
			AQI:  40 + float64(i%5),
		})
	}

	values := []float64{42.5, 120, 310}
	hours := []int{12, 48, 72}
	var forecasts []forecast.Forecast
	for i, v := range values {
		forecasts = append(forecasts, forecast.Forecast{
			HorizonHours: hours[i],
			Target:       base.Add(time.Duration(hours[i]) * time.Hour),
			AQI:          v,
			Severity:     severity.Classify(v),
		})
	}

	return &forecast.Result{
		RunID:       "run-1",
		GeneratedAt: base,
		RawDate:     "02-05-2024 13:00",
		BaseTime:    base,
		Levels: []forecast.PollutantLevel{
			{Name: "pm2_5", Value: 35, OK: true},
			{Name: "no2", Value: 12.37, OK: true},
			{Name: "co", OK: false},
		},
		Forecasts: forecasts,
		History:   history,
	}
}

func TestBuild_Labels(t *testing.T) {
	v := Build(sampleResult(), DefaultOptions(48))

	if v.Title != "AQI Forecast Dashboard" || v.LatestDate != "02-05-2024 13:00" {
		t.Errorf("Unexpected header %q %q", v.Title, v.LatestDate)
	}

	expectedLevels := []LevelView{
		{Label: "PM2_5", Value: "35.0"},
		{Label: "NO2", Value: "12.37"},
		{Label: "CO", Value: "-"},
	}
	for i, l := range expectedLevels {
		if v.Levels[i] != l {
			t.Errorf("Level %d: expected %+v, got %+v", i, l, v.Levels[i])
		}
	}

	expectedLabels := []string{
		"12h 03-05-2024 01:00 AM",
		"48h 04-05-2024 01:00 PM",
		"72h 05-05-2024 01:00 PM",
	}
	expectedSeverity := []string{"Good", "Poor", "Hazardous"}
	for i, m := range v.Forecasts {
		if m.Label != expectedLabels[i] {
			t.Errorf("Metric %d: expected label %q, got %q", i, expectedLabels[i], m.Label)
		}
		if m.Severity != expectedSeverity[i] {
			t.Errorf("Metric %d: expected %s, got %s", i, expectedSeverity[i], m.Severity)
		}
	}
	if v.Forecasts[2].Color != "#AA00FF" {
		t.Errorf("Expected hazardous color, got %s", v.Forecasts[2].Color)
	}

	footnote := "Forecasts use the last 48 rows from the CSV as input to predict 12h, 48h, and 72h ahead."
	if v.Footnote != footnote {
		t.Errorf("Expected footnote %q, got %q", footnote, v.Footnote)
	}
}

func TestFormatValue(t *testing.T) {
	tests := map[float64]string{
		5:          "5.0",
		12.37:      "12.37",
		-3:         "-3.0",
		0.1:        "0.1",
		math.NaN(): "-",
	}
	for in, expected := range tests {
		if got := FormatValue(in); got != expected {
			t.Errorf("FormatValue(%v) = %q, expected %q", in, got, expected)
		}
	}
}

func TestNewChart_OneSeries(t *testing.T) {
	r := sampleResult()
	c := NewChart(r.History, r.Forecasts)

	if len(c.Points) != 51 {
		t.Fatalf("Expected 51 points, got %d", len(c.Points))
	}
	for i, p := range c.Points {
		if p.Forecast != (i >= 48) {
			t.Errorf("Point %d: unexpected forecast flag", i)
		}
		if i > 0 && p.Time.Before(c.Points[i-1].Time) {
			t.Errorf("Point %d out of time order", i)
		}
	}
	if len(strings.Fields(c.Line)) != 51 {
		t.Errorf("Expected 51 polyline coordinates, got %d", len(strings.Fields(c.Line)))
	}
	if len(c.Markers) != 3 || c.Markers[1].Label != "48h" {
		t.Errorf("Unexpected markers %+v", c.Markers)
	}

	// highest value sits on the top edge
	top := c.Markers[2]
	if math.Abs(top.Y-chartPadding) > 1e-6 || math.Abs(top.X-(chartWidth-chartPadding)) > 1e-6 {
		t.Errorf("Expected last marker at top right, got (%v, %v)", top.X, top.Y)
	}
	if c.YMax != "310.0" {
		t.Errorf("Expected y max 310.0, got %s", c.YMax)
	}
}

func TestNewChart_Empty(t *testing.T) {
	c := NewChart(nil, nil)
	if len(c.Points) != 0 || c.Line != "" {
		t.Errorf("Expected empty chart, got %+v", c)
	}
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, Build(sampleResult(), DefaultOptions(48))); err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}

	page := buf.String()
	for _, want := range []string{
		"<h1>AQI Forecast Dashboard</h1>",
		"<strong>CO</strong>: -",
		"12h 03-05-2024 01:00 AM",
		"Hazardous",
		"<polyline",
		"Last 48 Points (AQI) + Forecast",
		"Forecasts use the last 48 rows",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("Expected page to contain %q", want)
		}
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderText(&buf, Build(sampleResult(), DefaultOptions(48))); err != nil {
		t.Fatalf("RenderText failed: %v", err)
	}

	report := buf.String()
	if !strings.HasPrefix(report, "AQI Forecast Dashboard    02-05-2024 13:00") {
		t.Errorf("Unexpected report header: %q", strings.SplitN(report, "\n", 2)[0])
	}
	for _, want := range []string{"PM2_5", "CO", "72h 05-05-2024 01:00 PM", "Hazardous"} {
		if !strings.Contains(report, want) {
			t.Errorf("Expected report to contain %q:\n%s", want, report)
		}
	}
}

func TestRenderError(t *testing.T) {
	var buf bytes.Buffer
	err := RenderError(&buf, ErrorView{Title: "AQI Forecast Dashboard", Message: "missing columns: [<no2>]", Kind: "schema_validation"})
	if err != nil {
		t.Fatalf("RenderError failed: %v", err)
	}
	if !strings.Contains(buf.String(), "missing columns: [&lt;no2&gt;]") {
		t.Errorf("Expected escaped message, got %s", buf.String())
	}
}
