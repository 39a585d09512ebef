package window

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/smukkama/aqi-forecast/internal/dataset"
	"github.com/smukkama/aqi-forecast/internal/scaling"
	"github.com/smukkama/aqi-forecast/internal/schema"
)

func buildTable(t *testing.T, n int, mutate func(recs [][]string)) *dataset.Table {
	t.Helper()
	features := schema.Default().Features()
	header := append([]string{"date", "Net_AQI"}, features...)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := make([][]string, n)
	for i := 0; i < n; i++ {
		rec := []string{start.Add(time.Duration(i) * time.Hour).Format("02-01-2006 15:04"), "50"}
		for j := range features {
			rec = append(rec, fmt.Sprintf("%d", i*100+j))
		}
		recs[i] = rec
	}
	if mutate != nil {
		mutate(recs)
	}

	table, err := dataset.Build(header, recs, schema.Default(), dataset.Options{MinRows: 1})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return table
}

func fitScaler(t *testing.T, table *dataset.Table, columns []string) *scaling.MinMaxScaler {
	t.Helper()
	s := scaling.NewMinMaxScaler(columns)
	if err := s.Fit(table.Matrix(table.Rows, columns)); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	return s
}

func TestExtract_ShapeAndOrder(t *testing.T) {
	features := schema.Default().Features()
	table := buildTable(t, 50, nil)
	scaler := fitScaler(t, table, features)

	vec, err := Extract(table, scaler, features, 48)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(vec) != 672 {
		t.Fatalf("Expected 672 values, got %d", len(vec))
	}

	// Column j spans i*100+j for i in [0, 49]; row 2 is the first window row
	for _, probe := range []struct{ row, col int }{{0, 0}, {0, 13}, {47, 5}, {20, 7}} {
		raw := float64((probe.row+2)*100 + probe.col)
		expected := (raw - float64(probe.col)) / 4900
		got := vec[probe.row*14+probe.col]
		if math.Abs(got-expected) > 1e-12 {
			t.Errorf("row %d col %d: expected %v, got %v", probe.row, probe.col, expected, got)
		}
	}
}

func TestExtract_ScalerColumnMismatch(t *testing.T) {
	features := schema.Default().Features()
	table := buildTable(t, 50, nil)

	swapped := append([]string{}, features...)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	scaler := fitScaler(t, table, swapped)

	_, err := Extract(table, scaler, features, 48)
	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError for reordered scaler columns, got %v", err)
	}
}

func TestExtract_NonNumericCell(t *testing.T) {
	features := schema.Default().Features()
	table := buildTable(t, 50, func(recs [][]string) {
		recs[45][4] = "bad"
	})
	scaler := scaling.NewMinMaxScaler(features)
	scaler.DataMin = make([]float64, 14)
	scaler.DataMax = make([]float64, 14)
	for j := range scaler.DataMax {
		scaler.DataMax[j] = 5000
	}

	_, err := Extract(table, scaler, features, 48)
	var verr *ValueError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValueError, got %v", err)
	}
	if verr.Record != 46 || verr.Column != "no2" {
		t.Errorf("Unexpected error location: record %d column %s", verr.Record, verr.Column)
	}
}

func TestExtract_TooFewRows(t *testing.T) {
	features := schema.Default().Features()
	table := buildTable(t, 10, nil)
	scaler := fitScaler(t, table, features)

	_, err := Extract(table, scaler, features, 48)
	var ierr *dataset.InsufficientDataError
	if !errors.As(err, &ierr) {
		t.Errorf("Expected InsufficientDataError, got %v", err)
	}
}
