package datarecording

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"slices"
)

// ErrNoTrace is returned when a trace file cannot be found.
var ErrNoTrace = errors.New("trace file not found")

// SignalActivity summarizes the recorded changes of one signal.
type SignalActivity struct {
	Signal  string
	Changes int
	FirstFS uint64
	LastFS  uint64
	Final   uint64
}

// BufferActivity summarizes the recorded operations on one buffer.
type BufferActivity struct {
	Buffer  string
	Pushes  int
	Pops    int
	MaxSize int
}

// TraceReader reads back the tables written by the signal and buffer tracers.
// Missing trace tables read as empty.
type TraceReader struct {
	db *sql.DB
}

// OpenTrace opens an existing trace file.
func OpenTrace(path string) (*TraceReader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTrace, path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	return &TraceReader{db: db}, nil
}

// Tables lists the tables of the trace file by name.
func (r *TraceReader) Tables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}

		tables = append(tables, name)
	}

	return tables, rows.Err()
}

func (r *TraceReader) hasTable(ctx context.Context, table string) (bool, error) {
	tables, err := r.Tables(ctx)
	if err != nil {
		return false, err
	}

	return slices.Contains(tables, table), nil
}

// SignalChanges returns the recorded changes in time order. An empty name
// selects every signal.
func (r *TraceReader) SignalChanges(
	ctx context.Context,
	name string,
) ([]SignalEntry, error) {
	ok, err := r.hasTable(ctx, SignalTable)
	if err != nil || !ok {
		return nil, err
	}

	query := "SELECT TimeFS, Signal, Value FROM " + SignalTable
	var args []any

	if name != "" {
		query += " WHERE Signal = ?"
		args = append(args, name)
	}

	rows, err := r.db.QueryContext(ctx, query+" ORDER BY TimeFS, rowid", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []SignalEntry

	for rows.Next() {
		var e SignalEntry
		if err := rows.Scan(&e.TimeFS, &e.Signal, &e.Value); err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// SignalActivity summarizes the changes of every recorded signal, sorted by
// signal name.
func (r *TraceReader) SignalActivity(ctx context.Context) ([]SignalActivity, error) {
	entries, err := r.SignalChanges(ctx, "")
	if err != nil {
		return nil, err
	}

	bySignal := make(map[string]*SignalActivity)

	for _, e := range entries {
		a, ok := bySignal[e.Signal]
		if !ok {
			a = &SignalActivity{Signal: e.Signal, FirstFS: e.TimeFS}
			bySignal[e.Signal] = a
		}

		a.Changes++
		a.LastFS = e.TimeFS
		a.Final = e.Value
	}

	activity := make([]SignalActivity, 0, len(bySignal))
	for _, a := range bySignal {
		activity = append(activity, *a)
	}

	slices.SortFunc(activity, func(a, b SignalActivity) int {
		switch {
		case a.Signal < b.Signal:
			return -1
		case a.Signal > b.Signal:
			return 1
		default:
			return 0
		}
	})

	return activity, nil
}

// BufferOps returns the operations on a buffer in the order they happened.
func (r *TraceReader) BufferOps(
	ctx context.Context,
	buffer string,
) ([]BufferEntry, error) {
	ok, err := r.hasTable(ctx, BufferTable)
	if err != nil || !ok {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT TimeFS, Buffer, Op, Element, Size FROM "+BufferTable+
			" WHERE Buffer = ? ORDER BY rowid", buffer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []BufferEntry

	for rows.Next() {
		var e BufferEntry
		if err := rows.Scan(&e.TimeFS, &e.Buffer, &e.Op, &e.Element, &e.Size); err != nil {
			return nil, err
		}

		ops = append(ops, e)
	}

	return ops, rows.Err()
}

// BufferActivity counts pushes and pops per buffer, sorted by buffer name.
func (r *TraceReader) BufferActivity(ctx context.Context) ([]BufferActivity, error) {
	ok, err := r.hasTable(ctx, BufferTable)
	if err != nil || !ok {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT Buffer, "+
			"SUM(CASE WHEN Op = 'push' THEN 1 ELSE 0 END), "+
			"SUM(CASE WHEN Op = 'pop' THEN 1 ELSE 0 END), "+
			"MAX(Size) FROM "+BufferTable+" GROUP BY Buffer ORDER BY Buffer")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activity []BufferActivity

	for rows.Next() {
		var a BufferActivity
		if err := rows.Scan(&a.Buffer, &a.Pushes, &a.Pops, &a.MaxSize); err != nil {
			return nil, err
		}

		activity = append(activity, a)
	}

	return activity, rows.Err()
}

// Close closes the trace file.
func (r *TraceReader) Close() error {
	return r.db.Close()
}
