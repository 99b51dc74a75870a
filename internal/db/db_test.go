package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wesm/runs/internal/record"
)

var tsBase = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func testDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// seedRun records or replaces a run with sensible defaults. Override any
// field via the opts functions.
func seedRun(
	t *testing.T, d *DB, path string, opts ...func(*record.Run),
) record.Run {
	t.Helper()
	r := record.Run{
		Path:        path,
		Command:     "python train.py --run=" + path,
		FullCommand: "python train.py --run=" + path,
		Description: "run " + path,
		Commit:      "abc123",
		Datetime:    tsBase,
	}
	for _, opt := range opts {
		opt(&r)
	}
	if err := d.InsertRuns([]record.Run{r}, true); err != nil {
		t.Fatalf("seedRun %s: %v", path, err)
	}
	return r
}

// at sets the run's datetime to tsBase plus offset.
func at(offset time.Duration) func(*record.Run) {
	return func(r *record.Run) { r.Datetime = tsBase.Add(offset) }
}

func paths(runs []record.Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.Path
	}
	return out
}

// canceledCtx returns an already-canceled context.
func canceledCtx() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// requireCanceledErr asserts that err is context.Canceled.
func requireCanceledErr(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}

// requireRunExists asserts that a run exists and returns it.
func requireRunExists(t *testing.T, d *DB, path string) *record.Run {
	t.Helper()
	r, err := d.GetRun(context.Background(), path)
	if err != nil {
		t.Fatalf("GetRun %q: %v", path, err)
	}
	if r == nil {
		t.Fatalf("run %q should exist", path)
	}
	return r
}

// requireRunGone asserts that a run does not exist.
func requireRunGone(t *testing.T, d *DB, path string) {
	t.Helper()
	r, err := d.GetRun(context.Background(), path)
	if err != nil {
		t.Fatalf("GetRun %q: %v", path, err)
	}
	if r != nil {
		t.Fatalf("run %q should be gone", path)
	}
}

func TestOpenCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "test.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file not created: %v", err)
	}
}

func TestRunCRUD(t *testing.T) {
	d := testDB(t)
	want := seedRun(t, d, "sweep/a", func(r *record.Run) {
		r.Description = `it's "quoted"`
		r.Datetime = time.Date(
			2024, 6, 1, 10, 0, 0, 123456789,
			time.FixedZone("EST", -5*60*60),
		)
	})

	got := requireRunExists(t, d, "sweep/a")
	if diff := cmp.Diff(want.Path, got.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
	if got.Description != want.Description {
		t.Errorf("description = %q, want %q",
			got.Description, want.Description)
	}
	if !got.Datetime.Equal(want.Datetime) {
		t.Errorf("datetime = %v, want %v", got.Datetime, want.Datetime)
	}
	if got.Commit != "abc123" || got.FullCommand != want.FullCommand {
		t.Errorf("got %+v, want %+v", got, want)
	}

	requireRunGone(t, d, "sweep")
}

func TestInsertRunsExists(t *testing.T) {
	d := testDB(t)
	seedRun(t, d, "a")

	err := d.InsertRuns([]record.Run{{Path: "a", Command: "other"}}, false)
	if !errors.Is(err, ErrRunExists) {
		t.Fatalf("InsertRuns duplicate = %v, want ErrRunExists", err)
	}
	if got := requireRunExists(t, d, "a"); got.Command == "other" {
		t.Error("InsertRuns replaced an existing run")
	}

	if err := d.InsertRuns([]record.Run{{Path: "b", Command: "new"}}, false); err != nil {
		t.Fatalf("InsertRuns: %v", err)
	}
	requireRunExists(t, d, "b")
}

func TestInsertRunsOverwriteReplaces(t *testing.T) {
	d := testDB(t)
	seedRun(t, d, "a")
	seedRun(t, d, "a", func(r *record.Run) {
		r.Command = "replaced"
		r.Commit = "def456"
	})

	got := requireRunExists(t, d, "a")
	if got.Command != "replaced" || got.Commit != "def456" {
		t.Errorf("got %+v, want replaced command and commit", got)
	}
}

func TestInsertRunsAtomic(t *testing.T) {
	d := testDB(t)
	seedRun(t, d, "b")

	err := d.InsertRuns([]record.Run{
		{Path: "a", Command: "x"},
		{Path: "b", Command: "y"},
	}, false)
	if !errors.Is(err, ErrRunExists) {
		t.Fatalf("InsertRuns = %v, want ErrRunExists", err)
	}
	requireRunGone(t, d, "a")

	if err := d.InsertRuns([]record.Run{
		{Path: "a", Command: "x"},
		{Path: "b", Command: "y"},
	}, true); err != nil {
		t.Fatalf("InsertRuns overwrite: %v", err)
	}
	if got := requireRunExists(t, d, "b"); got.Command != "y" {
		t.Errorf("b command = %q, want y", got.Command)
	}
}

func TestListRunsOrder(t *testing.T) {
	d := testDB(t)
	seedRun(t, d, "late", at(2*time.Hour))
	seedRun(t, d, "early", at(0))
	seedRun(t, d, "tie-first", at(time.Hour))
	seedRun(t, d, "tie-second", at(time.Hour))

	runs, err := d.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	want := []string{"early", "tie-first", "tie-second", "late"}
	if diff := cmp.Diff(want, paths(runs)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteRuns(t *testing.T) {
	d := testDB(t)
	for _, p := range []string{"a", "b", "c"} {
		seedRun(t, d, p)
	}

	deleted, err := d.DeleteRuns([]string{"a", "c", "missing"})
	if err != nil {
		t.Fatalf("DeleteRuns: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	requireRunGone(t, d, "a")
	requireRunExists(t, d, "b")
	requireRunGone(t, d, "c")

	deleted, err = d.DeleteRuns(nil)
	if err != nil {
		t.Fatalf("DeleteRuns empty: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted empty = %d, want 0", deleted)
	}
}

func TestDeleteRunsBatches(t *testing.T) {
	d := testDB(t)
	var all []record.Run
	for i := range 1203 {
		all = append(all, record.Run{
			Path: fmt.Sprintf("bulk/%04d", i), Command: "x",
		})
	}
	if err := d.InsertRuns(all, false); err != nil {
		t.Fatalf("InsertRuns: %v", err)
	}

	deleted, err := d.DeleteRuns(paths(all))
	if err != nil {
		t.Fatalf("DeleteRuns: %v", err)
	}
	if deleted != len(all) {
		t.Errorf("deleted = %d, want %d", deleted, len(all))
	}
}

func TestCanceledContext(t *testing.T) {
	d := testDB(t)
	seedRun(t, d, "a")
	ctx := canceledCtx()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"ListRuns", func() error {
			_, err := d.ListRuns(ctx)
			return err
		}},
		{"ResolveRuns", func() error {
			_, err := d.ResolveRuns(ctx, RunFilter{Patterns: []string{"*"}})
			return err
		}},
		{"GetRun", func() error {
			_, err := d.GetRun(ctx, "a")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireCanceledErr(t, tt.fn())
		})
	}
}

func TestMigrationAddsFullCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	old, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("opening old db: %v", err)
	}
	if _, err := old.Exec(`
		CREATE TABLE runs (
			path        TEXT PRIMARY KEY,
			command     TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			commit_hash TEXT NOT NULL DEFAULT '',
			datetime    TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL DEFAULT ''
		);
		INSERT INTO runs (path, command, datetime)
			VALUES ('legacy', 'prog --x=1', '2024-01-01T00:00:00Z');
	`); err != nil {
		t.Fatalf("creating old schema: %v", err)
	}
	old.Close()

	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	got := requireRunExists(t, d, "legacy")
	if got.FullCommand != "" || got.Command != "prog --x=1" {
		t.Errorf("legacy run = %+v", got)
	}
}

func TestConcurrentOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "race.db")
	db1, err := Open(path)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	db1.Close()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := Open(path)
			if err != nil {
				errs[i] = err
				return
			}
			errs[i] = d.Close()
		}()
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		t.Logf("concurrent Open: %v", err)
	}
	if successes == 0 {
		t.Fatal("every concurrent Open failed")
	}
}
