package scaling

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotFitted is returned when a scaler has no parameters yet
var ErrNotFitted = errors.New("scaler is not fitted")

// MinMaxScaler maps each column from its fit-time [min, max] onto
// FeatureRange. Values outside the fit-time range map outside FeatureRange;
// nothing is clamped. Read-only once fitted.
type MinMaxScaler struct {
	Columns      []string   `json:"columns"`
	DataMin      []float64  `json:"data_min"`
	DataMax      []float64  `json:"data_max"`
	FeatureRange [2]float64 `json:"feature_range"`
}

// NewMinMaxScaler creates an unfitted scaler targeting [0, 1]
func NewMinMaxScaler(columns []string) *MinMaxScaler {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &MinMaxScaler{
		Columns:      cols,
		FeatureRange: [2]float64{0, 1},
	}
}

// Fit computes per-column min and max over rows. NaN and infinite cells are
// ignored; a column with no finite value cannot be fitted.
func (s *MinMaxScaler) Fit(rows [][]float64) error {
	n := len(s.Columns)
	mins := make([]float64, n)
	maxs := make([]float64, n)
	seen := make([]bool, n)

	for i, row := range rows {
		if len(row) != n {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(row), n)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if !seen[j] || v < mins[j] {
				mins[j] = v
			}
			if !seen[j] || v > maxs[j] {
				maxs[j] = v
			}
			seen[j] = true
		}
	}

	for j, ok := range seen {
		if !ok {
			return fmt.Errorf("column %s has no numeric values", s.Columns[j])
		}
	}

	s.DataMin = mins
	s.DataMax = maxs
	return nil
}

// Validate checks that the parameters are internally consistent
func (s *MinMaxScaler) Validate() error {
	if len(s.DataMin) == 0 && len(s.DataMax) == 0 {
		return ErrNotFitted
	}
	if len(s.DataMin) != len(s.Columns) || len(s.DataMax) != len(s.Columns) {
		return fmt.Errorf("scaler has %d columns but %d mins and %d maxes",
			len(s.Columns), len(s.DataMin), len(s.DataMax))
	}
	if s.FeatureRange[0] >= s.FeatureRange[1] {
		return fmt.Errorf("invalid feature range %v", s.FeatureRange)
	}
	return nil
}

// scale returns the multiplier and offset for column j. A zero-width
// column gets a unit scale so it maps to the range minimum.
func (s *MinMaxScaler) scale(j int) (float64, float64) {
	dataRange := s.DataMax[j] - s.DataMin[j]
	if dataRange == 0 {
		dataRange = 1
	}
	k := (s.FeatureRange[1] - s.FeatureRange[0]) / dataRange
	return k, s.FeatureRange[0] - s.DataMin[j]*k
}

// Transform scales one row
func (s *MinMaxScaler) Transform(row []float64) ([]float64, error) {
	if err := s.check(row); err != nil {
		return nil, err
	}
	out := make([]float64, len(row))
	for j, v := range row {
		k, offset := s.scale(j)
		out[j] = v*k + offset
	}
	return out, nil
}

// InverseTransform undoes Transform for one row
func (s *MinMaxScaler) InverseTransform(row []float64) ([]float64, error) {
	if err := s.check(row); err != nil {
		return nil, err
	}
	out := make([]float64, len(row))
	for j, v := range row {
		k, offset := s.scale(j)
		out[j] = (v - offset) / k
	}
	return out, nil
}

func (s *MinMaxScaler) check(row []float64) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if len(row) != len(s.Columns) {
		return fmt.Errorf("row has %d values, scaler expects %d", len(row), len(s.Columns))
	}
	return nil
}
