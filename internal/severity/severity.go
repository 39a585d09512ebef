package severity

import (
	"fmt"
	"math"
	"strings"
)

// Band is one AQI severity level. A value belongs to the first band whose
// Upper bound it does not exceed.
type Band struct {
	Rank   int     `json:"rank"`
	Upper  float64 `json:"-"`
	Label  string  `json:"label"`
	Color  string  `json:"color"`
	Symbol string  `json:"symbol"`
}

// Bands is ordered by Upper; the last band is unbounded.
var Bands = []Band{
	{Rank: 0, Upper: 50, Label: "Good", Color: "#00C853", Symbol: "🟢"},
	{Rank: 1, Upper: 100, Label: "Moderate", Color: "#FFD600", Symbol: "🟡"},
	{Rank: 2, Upper: 200, Label: "Poor", Color: "#FF9100", Symbol: "🟠"},
	{Rank: 3, Upper: 300, Label: "Very Poor", Color: "#D50000", Symbol: "🔴"},
	{Rank: 4, Upper: math.Inf(1), Label: "Hazardous", Color: "#AA00FF", Symbol: "🟣"},
}

// Classify maps an AQI value to its band. Every real value, including
// negatives, lands in exactly one band; NaN is treated as Hazardous.
func Classify(aqi float64) Band {
	for _, b := range Bands {
		if aqi <= b.Upper {
			return b
		}
	}
	return Bands[len(Bands)-1]
}

// String returns the symbol and label, e.g. "🟢 Good"
func (b Band) String() string {
	return b.Symbol + " " + b.Label
}

// AtLeast reports whether b is as severe as other or worse
func (b Band) AtLeast(other Band) bool {
	return b.Rank >= other.Rank
}

// Parse looks a band up by label, ignoring case and surrounding space
func Parse(label string) (Band, error) {
	label = strings.TrimSpace(label)
	for _, b := range Bands {
		if strings.EqualFold(b.Label, label) {
			return b, nil
		}
	}
	return Band{}, fmt.Errorf("unknown severity %q", label)
}
