package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/wesm/runs/internal/record"
	"github.com/wesm/runs/internal/timeutil"
)

// ErrRunExists is returned by InsertRun when the path is taken.
var ErrRunExists = errors.New("run already exists")

// runCols is the column list for run queries. Keep in sync with
// scanRun.
const runCols = `path, command, full_command, description,
	commit_hash, datetime`

// rowScanner is satisfied by both *sql.Row and *sql.Rows,
// allowing a single scan helper for both.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(rs rowScanner) (record.Run, error) {
	var r record.Run
	var dt string
	if err := rs.Scan(
		&r.Path, &r.Command, &r.FullCommand, &r.Description,
		&r.Commit, &dt,
	); err != nil {
		return r, err
	}
	t, err := timeutil.Parse(dt)
	if err != nil {
		return r, fmt.Errorf("parsing datetime of %s: %w", r.Path, err)
	}
	r.Datetime = t
	return r, nil
}

func scanRuns(rows *sql.Rows) ([]record.Run, error) {
	var runs []record.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

const upsertRunSQL = `
	INSERT INTO runs (
		path, command, full_command, description,
		commit_hash, datetime
	) VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		command = excluded.command,
		full_command = excluded.full_command,
		description = excluded.description,
		commit_hash = excluded.commit_hash,
		datetime = excluded.datetime`

const insertRunSQL = `
	INSERT INTO runs (
		path, command, full_command, description,
		commit_hash, datetime
	) VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(path) DO NOTHING`

func runArgs(r record.Run) []any {
	return []any{
		r.Path, r.Command, r.FullCommand, r.Description,
		r.Commit, timeutil.Sortable(r.Datetime),
	}
}

func insertRun(ex execer, r record.Run, overwrite bool) error {
	if overwrite {
		if _, err := ex.Exec(upsertRunSQL, runArgs(r)...); err != nil {
			return fmt.Errorf("upserting run %s: %w", r.Path, err)
		}
		return nil
	}
	res, err := ex.Exec(insertRunSQL, runArgs(r)...)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", r.Path, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunExists, r.Path)
	}
	return nil
}

// InsertRuns records runs in one transaction. Without overwrite,
// any taken path fails the whole batch with ErrRunExists.
func (db *DB) InsertRuns(runs []record.Run, overwrite bool) error {
	return db.Update(func(tx *sql.Tx) error {
		for _, r := range runs {
			if err := insertRun(tx, r, overwrite); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetRun returns the run at path, or nil when there is none.
func (db *DB) GetRun(
	ctx context.Context, path string,
) (*record.Run, error) {
	row := db.reader.QueryRowContext(
		ctx,
		"SELECT "+runCols+" FROM runs WHERE path = ?",
		path,
	)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", path, err)
	}
	return &r, nil
}

// ListRuns returns every run ordered by datetime, then by
// insertion order.
func (db *DB) ListRuns(ctx context.Context) ([]record.Run, error) {
	return db.queryRuns(ctx, "1=1", nil)
}

func (db *DB) queryRuns(
	ctx context.Context, where string, args []any,
) ([]record.Run, error) {
	rows, err := db.reader.QueryContext(ctx,
		"SELECT "+runCols+" FROM runs WHERE "+where+
			" ORDER BY datetime, rowid",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// DeleteRuns removes runs by path in a single transaction.
// Batches DELETEs in groups of 500 to stay under SQLite variable
// limits. Returns count of deleted rows.
func (db *DB) DeleteRuns(paths []string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	total := 0
	err := db.Update(func(tx *sql.Tx) error {
		const batchSize = 500
		for i := 0; i < len(paths); i += batchSize {
			end := min(i+batchSize, len(paths))
			batch := paths[i:end]

			args := make([]any, len(batch))
			for j, p := range batch {
				args[j] = p
			}
			placeholders := strings.Repeat(",?", len(batch))[1:]

			res, err := tx.Exec(
				"DELETE FROM runs WHERE path IN ("+placeholders+")",
				args...,
			)
			if err != nil {
				return fmt.Errorf("deleting batch: %w", err)
			}
			n, _ := res.RowsAffected()
			total += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
