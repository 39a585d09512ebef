package ensemble

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

type stubModel struct {
	name string
	out  []float64
	err  error
}

func (s *stubModel) Name() string { return s.name }

func (s *stubModel) Predict(x []float64) ([]float64, error) {
	return s.out, s.err
}

func members(outs ...[]float64) []Member {
	weights := []float64{0.34, 0.33, 0.33}
	m := make([]Member, len(outs))
	for i, out := range outs {
		m[i] = Member{Model: &stubModel{name: []string{"xgb", "rf", "cat"}[i], out: out}, Weight: weights[i]}
	}
	return m
}

func TestPredictor_ConstantModels(t *testing.T) {
	p, err := NewPredictor(members(
		[]float64{10, 20, 30},
		[]float64{10, 20, 30},
		[]float64{10, 20, 30},
	), 3)
	if err != nil {
		t.Fatalf("NewPredictor failed: %v", err)
	}

	got, err := p.Predict(make([]float64, 672))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	expected := []float64{10, 20, 30}
	for h := range expected {
		if math.Abs(got[h]-expected[h]) > 1e-9 {
			t.Errorf("Horizon %d: expected %v, got %v", h, expected[h], got[h])
		}
	}
}

func TestPredictor_TakesFirstHorizons(t *testing.T) {
	p, _ := NewPredictor(members(
		[]float64{1, 2, 3, 99},
		[]float64{1, 2, 3},
		[]float64{1, 2, 3, 99, 100},
	), 3)

	got, err := p.Predict(nil)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Expected 3 horizons, got %d", len(got))
	}
}

func TestPredictor_ShortOutput(t *testing.T) {
	p, _ := NewPredictor(members(
		[]float64{1, 2, 3},
		[]float64{1, 2},
		[]float64{1, 2, 3},
	), 3)

	_, err := p.Predict(nil)
	var ierr *InferenceError
	if !errors.As(err, &ierr) {
		t.Fatalf("Expected InferenceError, got %v", err)
	}
	if ierr.Model != "rf" {
		t.Errorf("Expected failing model rf, got %s", ierr.Model)
	}
	var serr *ShapeError
	if !errors.As(err, &serr) {
		t.Errorf("Expected wrapped ShapeError, got %v", err)
	}
}

func TestPredictor_ModelFailure(t *testing.T) {
	m := members([]float64{1, 2, 3}, []float64{1, 2, 3}, []float64{1, 2, 3})
	cause := errors.New("booster corrupted")
	m[2].Model = &stubModel{name: "cat", err: cause}

	p, _ := NewPredictor(m, 3)
	_, err := p.Predict(nil)

	var ierr *InferenceError
	if !errors.As(err, &ierr) || ierr.Model != "cat" {
		t.Fatalf("Expected InferenceError from cat, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("InferenceError should unwrap to the model error")
	}
}

func TestCombine_WeightedSum(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		a, b := rng.Float64(), rng.Float64()
		if a > b {
			a, b = b, a
		}
		weights := []float64{a, b - a, 1 - b}

		outputs := make([][]float64, 3)
		for i := range outputs {
			outputs[i] = []float64{rng.Float64() * 500, rng.Float64() * 500, rng.Float64() * 500}
		}

		got, err := Combine(outputs, weights)
		if err != nil {
			t.Fatalf("Combine failed: %v", err)
		}
		for h := 0; h < 3; h++ {
			expected := weights[0]*outputs[0][h] + weights[1]*outputs[1][h] + weights[2]*outputs[2][h]
			if math.Abs(got[h]-expected) > 1e-9 {
				t.Fatalf("Trial %d horizon %d: expected %v, got %v", trial, h, expected, got[h])
			}
		}
	}
}

func TestCombine_ShapeMismatch(t *testing.T) {
	var serr *ShapeError

	_, err := Combine([][]float64{{1, 2, 3}, {1, 2}}, []float64{0.5, 0.5})
	if !errors.As(err, &serr) {
		t.Errorf("Expected ShapeError for ragged outputs, got %v", err)
	}

	_, err = Combine([][]float64{{1, 2, 3}}, []float64{0.5, 0.5})
	if !errors.As(err, &serr) {
		t.Errorf("Expected ShapeError for count mismatch, got %v", err)
	}
}

func TestValidateWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights []float64
		wantErr bool
	}{
		{"default", []float64{0.34, 0.33, 0.33}, false},
		{"single", []float64{1}, false},
		{"zero member", []float64{0.5, 0.5, 0}, false},
		{"negative", []float64{1.2, -0.2}, true},
		{"short", []float64{0.3, 0.3, 0.3}, true},
		{"nan", []float64{math.NaN(), 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateWeights(tt.weights); (err != nil) != tt.wantErr {
				t.Errorf("ValidateWeights(%v) error = %v, wantErr %v", tt.weights, err, tt.wantErr)
			}
		})
	}
}

func TestNewPredictor_Invalid(t *testing.T) {
	if _, err := NewPredictor(nil, 3); err == nil {
		t.Error("Expected error for empty ensemble")
	}
	m := members([]float64{1}, []float64{1}, []float64{1})
	m[0].Weight = 0.5
	if _, err := NewPredictor(m, 3); err == nil {
		t.Error("Expected error for weights not summing to 1")
	}
}
