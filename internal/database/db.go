package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DefaultReadingsQuery selects the processed readings in chronological order
const DefaultReadingsQuery = `
		SELECT *
		FROM processed_readings
		ORDER BY date
	`

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// Connect establishes a connection to the database
func Connect(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// The dashboard issues one read per refresh
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	return &DB{db}, nil
}

// QueryTable runs a query and returns its column names and rows as text.
// NULL becomes an empty cell; timestamps are rendered in RFC 3339.
func (db *DB) QueryTable(ctx context.Context, query string, args ...interface{}) ([]string, [][]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var records [][]string
	for rows.Next() {
		cells := make([]sql.NullString, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}

		record := make([]string, len(columns))
		for i, c := range cells {
			if c.Valid {
				record[i] = c.String
			}
		}
		records = append(records, record)
	}

	return columns, records, rows.Err()
}
