// Package tracing records the requests a driver issues into a SQLite
// database so that a run can be inspected after the fact.
package tracing

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/fractalhost/accel"
	"github.com/sarchlab/fractalhost/hooking"
)

// A TracedRequest is one row of the request table.
type TracedRequest struct {
	ID        string
	Kind      string
	Control   uint32
	SeedReal  float32
	SeedImag  float32
	Frame     int
	Polls     int
	StartTime float64
	EndTime   float64
	Error     string
}

// SQLiteTracer is a hook that writes every completed request of a driver to
// a SQLite database. Rows are buffered and written in batches.
type SQLiteTracer struct {
	*sql.DB

	mu        sync.Mutex
	statement *sql.Stmt
	dbName    string
	batchSize int
	closed    bool

	startTimes map[string]time.Time
	toWrite    []TracedRequest
}

// NewSQLiteTracer creates a tracer that writes to path.sqlite3. If path is
// empty, a unique name is generated when the tracer is initialized. The
// buffered rows are flushed when the program exits through atexit.
func NewSQLiteTracer(path string) *SQLiteTracer {
	t := &SQLiteTracer{
		dbName:     path,
		batchSize:  1000,
		startTimes: make(map[string]time.Time),
	}

	atexit.Register(func() {
		if err := t.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "tracing: %v\n", err)
		}
	})

	return t
}

// WithBatchSize sets the number of rows buffered before they are written.
func (t *SQLiteTracer) WithBatchSize(n int) *SQLiteTracer {
	if n < 1 {
		n = 1
	}

	t.batchSize = n

	return t
}

// Init creates the database. It fails if the file already exists.
func (t *SQLiteTracer) Init() error {
	if t.dbName == "" {
		t.dbName = "fractalhost_trace_" + xid.New().String()
	}

	filename := t.FileName()
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("tracing: file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	t.DB = db

	if err := t.createTable(); err != nil {
		return err
	}

	return t.prepareStatement()
}

// FileName returns the path of the database file.
func (t *SQLiteTracer) FileName() string {
	return t.dbName + ".sqlite3"
}

func (t *SQLiteTracer) createTable() error {
	queries := []string{
		`create table request
		(
			id         varchar(200) not null,
			kind       varchar(20)  not null,
			control    integer      not null,
			seed_real  real         not null,
			seed_imag  real         not null,
			frame      integer      not null,
			polls      integer      not null,
			start_time real         not null,
			end_time   real         not null,
			error      text         not null default ''
		);`,
		`create index request_kind_index on request (kind);`,
		`create index request_start_time_index on request (start_time);`,
	}

	for _, q := range queries {
		if _, err := t.Exec(q); err != nil {
			return fmt.Errorf("tracing: creating request table: %w", err)
		}
	}

	return nil
}

func (t *SQLiteTracer) prepareStatement() error {
	stmt, err := t.Prepare(
		`INSERT INTO request VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	t.statement = stmt

	return nil
}

// Func records the request carried by the hook context.
func (t *SQLiteTracer) Func(ctx hooking.HookCtx) {
	req, ok := ctx.Item.(*accel.Request)
	if !ok {
		return
	}

	switch ctx.Pos {
	case accel.HookPosRequestStart:
		t.mu.Lock()
		t.startTimes[req.ID] = time.Now()
		t.mu.Unlock()
	case accel.HookPosRequestDone:
		t.endRequest(req)
	}
}

func (t *SQLiteTracer) endRequest(req *accel.Request) {
	end := time.Now()

	t.mu.Lock()

	start, ok := t.startTimes[req.ID]
	if !ok {
		start = end
	}
	delete(t.startTimes, req.ID)

	row := TracedRequest{
		ID:        req.ID,
		Kind:      req.Kind.String(),
		Control:   uint32(req.Control),
		SeedReal:  req.Seed.Real,
		SeedImag:  req.Seed.Imag,
		Frame:     req.Frame,
		Polls:     req.Polls,
		StartTime: secondsOf(start),
		EndTime:   secondsOf(end),
	}
	if req.Err != nil {
		row.Error = req.Err.Error()
	}

	t.toWrite = append(t.toWrite, row)
	full := len(t.toWrite) >= t.batchSize

	t.mu.Unlock()

	if full {
		if err := t.Flush(); err != nil {
			panic(err)
		}
	}
}

func secondsOf(tm time.Time) float64 {
	return float64(tm.UnixNano()) / 1e9
}

// Flush writes all the buffered rows to the database.
func (t *SQLiteTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.toWrite) == 0 || t.closed || t.DB == nil {
		return nil
	}

	tx, err := t.Begin()
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	stmt := tx.Stmt(t.statement)
	for _, r := range t.toWrite {
		_, err := stmt.Exec(
			r.ID,
			r.Kind,
			r.Control,
			r.SeedReal,
			r.SeedImag,
			r.Frame,
			r.Polls,
			r.StartTime,
			r.EndTime,
			r.Error,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("tracing: inserting request %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	t.toWrite = nil

	return nil
}

// Close flushes the buffered rows and closes the database.
func (t *SQLiteTracer) Close() error {
	flushErr := t.Flush()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.DB == nil {
		return flushErr
	}

	t.closed = true

	if err := t.statement.Close(); err != nil && flushErr == nil {
		flushErr = err
	}

	if err := t.DB.Close(); err != nil && flushErr == nil {
		flushErr = err
	}

	return flushErr
}
