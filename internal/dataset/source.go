package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/smukkama/aqi-forecast/internal/schema"
)

// CSVSource reads the table from a delimited file
type CSVSource struct {
	Path    string
	Schema  schema.Schema
	Options Options
}

// Load reads and validates the file
func (s *CSVSource) Load(ctx context.Context) (*Table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	header, records, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", s.Path, err)
	}

	return Build(header, records, s.Schema, s.Options)
}

// ReadCSV splits a CSV stream into its header and data records
func ReadCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("file is empty")
	}
	if err != nil {
		return nil, nil, err
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	return header, records, nil
}

// QueryRunner returns a query result as a header and text records
type QueryRunner interface {
	QueryTable(ctx context.Context, query string, args ...interface{}) ([]string, [][]string, error)
}

// SQLSource reads the table from a database query
type SQLSource struct {
	DB      QueryRunner
	Query   string
	Schema  schema.Schema
	Options Options
}

// Load runs the query and validates the result
func (s *SQLSource) Load(ctx context.Context) (*Table, error) {
	header, records, err := s.DB.QueryTable(ctx, s.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset: %w", err)
	}
	return Build(header, records, s.Schema, s.Options)
}
