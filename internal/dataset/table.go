package dataset

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/smukkama/aqi-forecast/internal/schema"
)

// Source produces a validated table
type Source interface {
	Load(ctx context.Context) (*Table, error)
}

// Options control validation in Build
type Options struct {
	// MinRows is the number of dated rows the table must retain
	MinRows int

	// SortByDate orders rows by parsed date before they are indexed. When
	// false the source order is trusted to be chronological.
	SortByDate bool
}

// Row is one dated record of the table
type Row struct {
	Position int // index after unparseable dates were dropped
	Record   int // 1-based data record number in the source
	RawDate  string
	Time     time.Time
	cells    []string
}

// Table is a row-oriented, date-indexed view of the source data
type Table struct {
	Columns []string
	Rows    []Row
	Dropped int // rows removed because their date did not parse
	index   map[string]int
}

// InsufficientDataError reports a table with too few dated rows
type InsufficientDataError struct {
	Need int
	Have int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("need at least %d rows; found only %d", e.Need, e.Have)
}

// CellError reports a cell that could not be read as a finite number
type CellError struct {
	Record int
	Column string
	Raw    string
}

func (e *CellError) Error() string {
	return fmt.Sprintf("record %d: column %s value %q is not a finite number", e.Record, e.Column, e.Raw)
}

// Build validates header and records against the schema and returns the
// dated table
func Build(header []string, records [][]string, sch schema.Schema, opts Options) (*Table, error) {
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	if err := sch.CheckColumns(columns); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}
	dateCol := index[sch.Date]

	t := &Table{Columns: columns, index: index}
	for i, rec := range records {
		raw := ""
		if dateCol < len(rec) {
			raw = rec[dateCol]
		}
		ts, ok := ParseDate(raw)
		if !ok {
			t.Dropped++
			continue
		}
		t.Rows = append(t.Rows, Row{
			Record:  i + 1,
			RawDate: raw,
			Time:    ts,
			cells:   rec,
		})
	}

	if opts.SortByDate {
		sort.SliceStable(t.Rows, func(i, j int) bool {
			return t.Rows[i].Time.Before(t.Rows[j].Time)
		})
	}
	for i := range t.Rows {
		t.Rows[i].Position = i
	}

	if len(t.Rows) < opts.MinRows {
		return nil, &InsufficientDataError{Need: opts.MinRows, Have: len(t.Rows)}
	}

	return t, nil
}

// Len returns the number of dated rows
func (t *Table) Len() int { return len(t.Rows) }

// Tail returns the last n rows, or all rows if there are fewer
func (t *Table) Tail(n int) []Row {
	if n >= len(t.Rows) {
		return t.Rows
	}
	return t.Rows[len(t.Rows)-n:]
}

// Latest returns the most recent row. The table must not be empty.
func (t *Table) Latest() Row {
	return t.Rows[len(t.Rows)-1]
}

// Cell returns the raw text of a column for a row
func (t *Table) Cell(r Row, column string) (string, bool) {
	i, ok := t.index[column]
	if !ok || i >= len(r.cells) {
		return "", false
	}
	return r.cells[i], true
}

// Float reads a column of a row as a finite number. NaN and infinity count
// as missing.
func (t *Table) Float(r Row, column string) (float64, error) {
	raw, ok := t.Cell(r, column)
	if !ok {
		return 0, &CellError{Record: r.Record, Column: column}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &CellError{Record: r.Record, Column: column, Raw: raw}
	}
	return v, nil
}

// Matrix reads columns for every row. Cells that are not numeric become NaN
// so callers can choose between skipping and rejecting them.
func (t *Table) Matrix(rows []Row, columns []string) [][]float64 {
	m := make([][]float64, len(rows))
	for i, r := range rows {
		m[i] = make([]float64, len(columns))
		for j, c := range columns {
			v, err := t.Float(r, c)
			if err != nil {
				v = math.NaN()
			}
			m[i][j] = v
		}
	}
	return m
}
