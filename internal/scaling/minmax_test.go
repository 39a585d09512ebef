package scaling

import (
	"errors"
	"math"
	"testing"
)

func fittedScaler(t *testing.T, rows [][]float64) *MinMaxScaler {
	t.Helper()
	s := NewMinMaxScaler([]string{"a", "b", "c"})
	if err := s.Fit(rows); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	return s
}

func TestMinMaxScaler_Fit(t *testing.T) {
	s := fittedScaler(t, [][]float64{
		{1, 10, 5},
		{3, -10, 5},
		{2, 0, 5},
	})

	expectedMin := []float64{1, -10, 5}
	expectedMax := []float64{3, 10, 5}
	for j := range expectedMin {
		if s.DataMin[j] != expectedMin[j] || s.DataMax[j] != expectedMax[j] {
			t.Errorf("Column %d: got [%v, %v], expected [%v, %v]",
				j, s.DataMin[j], s.DataMax[j], expectedMin[j], expectedMax[j])
		}
	}
}

func TestMinMaxScaler_Transform(t *testing.T) {
	s := fittedScaler(t, [][]float64{
		{0, 10, 5},
		{10, 20, 5},
	})

	out, err := s.Transform([]float64{5, 25, 5})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	// Second column is beyond the fit range and must not be clamped
	expected := []float64{0.5, 1.5, 0}
	for j := range expected {
		if math.Abs(out[j]-expected[j]) > 1e-12 {
			t.Errorf("Column %d: expected %v, got %v", j, expected[j], out[j])
		}
	}
}

func TestMinMaxScaler_RoundTrip(t *testing.T) {
	rows := [][]float64{
		{12.5, 0.001, -3},
		{87.25, 0.5, 4},
		{44.1, 0.25, 4},
		{60, 0.75, 0},
	}
	s := fittedScaler(t, rows)

	for i, row := range rows {
		scaled, err := s.Transform(row)
		if err != nil {
			t.Fatalf("Transform row %d failed: %v", i, err)
		}
		back, err := s.InverseTransform(scaled)
		if err != nil {
			t.Fatalf("InverseTransform row %d failed: %v", i, err)
		}
		for j := range row {
			if math.Abs(back[j]-row[j]) > 1e-6 {
				t.Errorf("Row %d col %d: expected %v, got %v", i, j, row[j], back[j])
			}
		}
	}
}

func TestMinMaxScaler_FitIgnoresNaN(t *testing.T) {
	s := fittedScaler(t, [][]float64{
		{math.NaN(), 1, 1},
		{4, 2, 2},
		{8, math.NaN(), 3},
	})
	if s.DataMin[0] != 4 || s.DataMax[0] != 8 {
		t.Errorf("Expected [4, 8], got [%v, %v]", s.DataMin[0], s.DataMax[0])
	}
}

func TestMinMaxScaler_FitAllNaNColumn(t *testing.T) {
	s := NewMinMaxScaler([]string{"a"})
	if err := s.Fit([][]float64{{math.NaN()}}); err == nil {
		t.Error("Expected error for column without numeric values")
	}
}

func TestMinMaxScaler_Unfitted(t *testing.T) {
	s := NewMinMaxScaler([]string{"a"})
	if _, err := s.Transform([]float64{1}); !errors.Is(err, ErrNotFitted) {
		t.Errorf("Expected ErrNotFitted, got %v", err)
	}
}

func TestMinMaxScaler_WrongWidth(t *testing.T) {
	s := fittedScaler(t, [][]float64{{1, 2, 3}, {2, 3, 4}})
	if _, err := s.Transform([]float64{1, 2}); err == nil {
		t.Error("Expected error for short row")
	}
}

func TestMinMaxScaler_FitSkipsNonFinite(t *testing.T) {
	s := fittedScaler(t, [][]float64{
		{math.Inf(1), 10, math.NaN()},
		{1, math.Inf(-1), 5},
		{30, 20, 7},
	})

	expectedMin := []float64{1, 10, 5}
	expectedMax := []float64{30, 20, 7}
	for j := range expectedMin {
		if s.DataMin[j] != expectedMin[j] || s.DataMax[j] != expectedMax[j] {
			t.Errorf("Column %d: got [%v, %v], expected [%v, %v]",
				j, s.DataMin[j], s.DataMax[j], expectedMin[j], expectedMax[j])
		}
	}

	out, err := s.Transform([]float64{30, 15, 6})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	expected := []float64{1, 0.5, 0.5}
	for j := range expected {
		if math.Abs(out[j]-expected[j]) > 1e-12 {
			t.Errorf("Column %d: expected %v, got %v", j, expected[j], out[j])
		}
	}

	bad := NewMinMaxScaler([]string{"a"})
	if err := bad.Fit([][]float64{{math.Inf(1)}, {math.NaN()}}); err == nil {
		t.Error("Expected error for a column with no finite values")
	}
}
