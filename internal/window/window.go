package window

import (
	"fmt"
	"math"

	"github.com/smukkama/aqi-forecast/internal/dataset"
	"github.com/smukkama/aqi-forecast/internal/scaling"
	"github.com/smukkama/aqi-forecast/internal/schema"
)

// ValueError reports a window cell that cannot feed a model
type ValueError struct {
	Record int
	Column string
	Err    error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("window record %d column %s: %v", e.Record, e.Column, e.Err)
}

func (e *ValueError) Unwrap() error { return e.Err }

// Extract takes the last size rows of the table, reads the feature columns,
// scales each row and flattens the result row-major into one vector of
// size*len(features) values.
func Extract(t *dataset.Table, scaler *scaling.MinMaxScaler, features []string, size int) ([]float64, error) {
	if err := schema.MatchFeatures(features, scaler.Columns); err != nil {
		return nil, err
	}

	rows := t.Tail(size)
	if len(rows) < size {
		return nil, &dataset.InsufficientDataError{Need: size, Have: len(rows)}
	}

	flat := make([]float64, 0, size*len(features))
	for _, r := range rows {
		values := make([]float64, len(features))
		for j, col := range features {
			v, err := t.Float(r, col)
			if err != nil {
				return nil, &ValueError{Record: r.Record, Column: col, Err: err}
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &ValueError{Record: r.Record, Column: col, Err: fmt.Errorf("value %v is not finite", v)}
			}
			values[j] = v
		}

		scaled, err := scaler.Transform(values)
		if err != nil {
			return nil, fmt.Errorf("failed to scale record %d: %w", r.Record, err)
		}
		flat = append(flat, scaled...)
	}

	return flat, nil
}
