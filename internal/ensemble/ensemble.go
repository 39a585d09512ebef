package ensemble

import (
	"fmt"
	"math"

	"github.com/smukkama/aqi-forecast/internal/artifact"
)

// WeightTolerance bounds how far the member weights may sum from 1
const WeightTolerance = 1e-9

// Member is a model and its share of the combined forecast
type Member struct {
	Model  artifact.Model
	Weight float64
}

// InferenceError reports a member that failed to predict or returned too
// few horizon values
type InferenceError struct {
	Model string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("model %s prediction failed: %v", e.Model, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// ShapeError reports outputs that cannot be combined per horizon
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	return "prediction shapes don't match: " + e.Reason
}

// Predictor combines member predictions with fixed convex weights
type Predictor struct {
	members  []Member
	horizons int
}

// NewPredictor validates the weights and returns a predictor producing
// horizons values
func NewPredictor(members []Member, horizons int) (*Predictor, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("ensemble has no members")
	}
	if horizons <= 0 {
		return nil, fmt.Errorf("horizons must be positive, got %d", horizons)
	}
	weights := make([]float64, len(members))
	for i, m := range members {
		weights[i] = m.Weight
	}
	if err := ValidateWeights(weights); err != nil {
		return nil, err
	}
	return &Predictor{members: members, horizons: horizons}, nil
}

// ValidateWeights checks that weights are non-negative and sum to 1
func ValidateWeights(weights []float64) error {
	sum := 0.0
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("weight %d is %v, must be a non-negative number", i, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > WeightTolerance {
		return fmt.Errorf("weights sum to %v, expected 1", sum)
	}
	return nil
}

// Predict runs every member on x and returns the weighted forecast, one
// value per horizon
func (p *Predictor) Predict(x []float64) ([]float64, error) {
	outputs := make([][]float64, len(p.members))
	weights := make([]float64, len(p.members))

	for i, m := range p.members {
		out, err := m.Model.Predict(x)
		if err != nil {
			return nil, &InferenceError{Model: m.Model.Name(), Err: err}
		}
		if len(out) < p.horizons {
			return nil, &InferenceError{
				Model: m.Model.Name(),
				Err:   &ShapeError{Reason: fmt.Sprintf("got %d outputs, expected at least %d", len(out), p.horizons)},
			}
		}
		outputs[i] = out[:p.horizons]
		weights[i] = m.Weight
	}

	return Combine(outputs, weights)
}

// Combine computes result[h] = sum_i weights[i] * outputs[i][h]. Every
// output must have the same length.
func Combine(outputs [][]float64, weights []float64) ([]float64, error) {
	if len(outputs) != len(weights) {
		return nil, &ShapeError{Reason: fmt.Sprintf("%d outputs for %d weights", len(outputs), len(weights))}
	}
	if len(outputs) == 0 {
		return nil, &ShapeError{Reason: "no outputs"}
	}

	width := len(outputs[0])
	result := make([]float64, width)
	for i, out := range outputs {
		if len(out) != width {
			return nil, &ShapeError{Reason: fmt.Sprintf("output %d has %d values, expected %d", i, len(out), width)}
		}
		for h, v := range out {
			result[h] += weights[i] * v
		}
	}
	return result, nil
}
