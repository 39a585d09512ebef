package presentation

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/smukkama/aqi-forecast/internal/forecast"
)

const (
	chartWidth   = 800
	chartHeight  = 280
	chartPadding = 40
)

// ChartPoint is one value of the plotted series
type ChartPoint struct {
	Time     time.Time `json:"time"`
	AQI      float64   `json:"aqi"`
	Forecast bool      `json:"forecast"`
}

// Marker highlights a forecast point
type Marker struct {
	X     float64 `json:"-"`
	Y     float64 `json:"-"`
	Label string  `json:"-"`
	Color string  `json:"-"`
}

// Chart is the history plus forecast series with its SVG geometry
type Chart struct {
	Points  []ChartPoint `json:"points"`
	Width   int          `json:"-"`
	Height  int          `json:"-"`
	Line    string       `json:"-"` // polyline points attribute
	Markers []Marker     `json:"-"`
	YMin    string       `json:"-"`
	YMax    string       `json:"-"`
	XStart  string       `json:"-"`
	XEnd    string       `json:"-"`
}

// NewChart lays out history followed by the forecast points as one line
func NewChart(history []forecast.Point, forecasts []forecast.Forecast) Chart {
	c := Chart{Width: chartWidth, Height: chartHeight}
	for _, p := range history {
		c.Points = append(c.Points, ChartPoint{Time: p.Time, AQI: p.AQI})
	}
	for _, f := range forecasts {
		c.Points = append(c.Points, ChartPoint{Time: f.Target, AQI: f.AQI, Forecast: true})
	}
	if len(c.Points) == 0 {
		return c
	}

	t0, t1 := c.Points[0].Time, c.Points[0].Time
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range c.Points {
		if p.Time.Before(t0) {
			t0 = p.Time
		}
		if p.Time.After(t1) {
			t1 = p.Time
		}
		if math.IsNaN(p.AQI) || math.IsInf(p.AQI, 0) {
			continue
		}
		lo = math.Min(lo, p.AQI)
		hi = math.Max(hi, p.AQI)
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 1
	}
	if hi == lo {
		lo, hi = lo-1, hi+1
	}

	c.YMin = FormatValue(lo)
	c.YMax = FormatValue(hi)
	c.XStart = t0.Format(TimeLayout)
	c.XEnd = t1.Format(TimeLayout)

	span := t1.Sub(t0)
	plotW := float64(chartWidth - 2*chartPadding)
	plotH := float64(chartHeight - 2*chartPadding)

	coords := make([]string, 0, len(c.Points))
	for i, p := range c.Points {
		if math.IsNaN(p.AQI) || math.IsInf(p.AQI, 0) {
			continue
		}
		x := float64(chartPadding) + plotW/2
		if span > 0 {
			x = float64(chartPadding) + plotW*float64(p.Time.Sub(t0))/float64(span)
		}
		y := float64(chartHeight-chartPadding) - plotH*(p.AQI-lo)/(hi-lo)
		coords = append(coords, fmt.Sprintf("%.1f,%.1f", x, y))

		if p.Forecast {
			f := forecasts[i-len(history)]
			c.Markers = append(c.Markers, Marker{
				X:     x,
				Y:     y,
				Label: fmt.Sprintf("%dh", f.HorizonHours),
				Color: f.Severity.Color,
			})
		}
	}
	c.Line = strings.Join(coords, " ")
	return c
}
