package tracing

import (
	"database/sql"
	"fmt"
)

// SQLiteTraceReader reads the requests recorded by a SQLiteTracer.
type SQLiteTraceReader struct {
	*sql.DB

	filename string
}

// NewSQLiteTraceReader creates a new SQLiteTraceReader.
func NewSQLiteTraceReader(filename string) *SQLiteTraceReader {
	return &SQLiteTraceReader{filename: filename}
}

// Init establishes a connection to the database.
func (r *SQLiteTraceReader) Init() error {
	db, err := sql.Open("sqlite3", r.filename)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	r.DB = db

	return nil
}

// ListRequests returns the recorded requests in issue order. If kind is not
// empty, only requests of that kind are returned.
func (r *SQLiteTraceReader) ListRequests(kind string) ([]TracedRequest, error) {
	sqlStr := `
		SELECT
			id,
			kind,
			control,
			seed_real,
			seed_imag,
			frame,
			polls,
			start_time,
			end_time,
			error
		FROM request
		WHERE ? = '' OR kind = ?
		ORDER BY rowid
	`

	rows, err := r.Query(sqlStr, kind, kind)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	defer rows.Close()

	requests := []TracedRequest{}
	for rows.Next() {
		var q TracedRequest

		err := rows.Scan(
			&q.ID,
			&q.Kind,
			&q.Control,
			&q.SeedReal,
			&q.SeedImag,
			&q.Frame,
			&q.Polls,
			&q.StartTime,
			&q.EndTime,
			&q.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("tracing: %w", err)
		}

		requests = append(requests, q)
	}

	return requests, rows.Err()
}
