package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Schema names the columns the forecast pipeline depends on. The order of
// Pollutants followed by Temporal is the feature order the models were fit on.
type Schema struct {
	Pollutants []string
	Temporal   []string
	Target     string
	Date       string
}

// Default returns the column layout of the processed pollutant dataset
func Default() Schema {
	return Schema{
		Pollutants: []string{"pm2_5", "pm10", "no2", "so2", "co", "o3", "no", "nh3"},
		Temporal:   []string{"hour_sin", "hour_cos", "day_sin", "day_cos", "month_sin", "month_cos"},
		Target:     "Net_AQI",
		Date:       "date",
	}
}

// Features returns the model feature columns in model order
func (s Schema) Features() []string {
	features := make([]string, 0, len(s.Pollutants)+len(s.Temporal))
	features = append(features, s.Pollutants...)
	features = append(features, s.Temporal...)
	return features
}

// Required returns every column a dataset must carry
func (s Schema) Required() []string {
	required := s.Features()
	return append(required, s.Target, s.Date)
}

// CheckColumns verifies that all required columns are present in columns.
// Missing columns are reported as a sorted set.
func (s Schema) CheckColumns(columns []string) error {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}

	seen := make(map[string]bool)
	var missing []string
	for _, c := range s.Required() {
		if !present[c] && !seen[c] {
			missing = append(missing, c)
			seen[c] = true
		}
	}
	if len(missing) == 0 {
		return nil
	}

	sort.Strings(missing)
	return &ValidationError{Missing: missing}
}

// MatchFeatures fails unless got names exactly the expected columns in the
// same order. Positional alignment is what the models see, so a count match
// alone is not enough.
func MatchFeatures(expected, got []string) error {
	if len(expected) == len(got) {
		same := true
		for i := range expected {
			if expected[i] != got[i] {
				same = false
				break
			}
		}
		if same {
			return nil
		}
	}
	return &ValidationError{Expected: expected, Got: got}
}

// ValidationError reports a dataset or artifact whose columns do not match
// the schema.
type ValidationError struct {
	Missing  []string
	Expected []string
	Got      []string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing columns: [%s]", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("feature columns mismatch: expected [%s], got [%s]",
		strings.Join(e.Expected, ", "), strings.Join(e.Got, ", "))
}
