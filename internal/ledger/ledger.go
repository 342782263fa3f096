// Package ledger records fit batches in SQLite so a point that failed can be
// told apart from one that was never attempted.
package ledger

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fitgrid/fitgrid/internal/fitdriver"
	"github.com/fitgrid/fitgrid/internal/monitoring"
	"github.com/fitgrid/fitgrid/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Ledger is a fit ledger database.
type Ledger struct {
	*sql.DB
	path  string
	Clock timeutil.Clock
}

// Open opens (creating if needed) the ledger at path and applies pending
// migrations.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	l := &Ledger{DB: db, path: path, Clock: timeutil.RealClock{}}
	if err := l.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// MigrateUp runs all pending migrations up to the latest version.
func (l *Ledger) MigrateUp() error {
	m, err := l.newMigrate()
	if err != nil {
		return err
	}
	// Closing m would close the shared connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Version returns the schema version and dirty flag.
func (l *Ledger) Version() (uint, bool, error) {
	m, err := l.newMigrate()
	if err != nil {
		return 0, false, err
	}
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (l *Ledger) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(l.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// Run is one invocation of a fitting tool.
type Run struct {
	ID         string
	Tool       string
	Analysis   string
	Simplified bool
	Args       string
	Started    time.Time
	Finished   time.Time
	Succeeded  int
	Failed     int
	Skipped    int
}

// Done reports whether the run finished (was not interrupted).
func (r Run) Done() bool { return !r.Finished.IsZero() }

// StartRun inserts a new run and returns it.
func (l *Ledger) StartRun(tool, analysis string, simplified bool, args []string) (Run, error) {
	r := Run{
		ID:         uuid.NewString(),
		Tool:       tool,
		Analysis:   analysis,
		Simplified: simplified,
		Args:       strings.Join(args, " "),
		Started:    l.Clock.Now(),
	}
	_, err := l.Exec(`INSERT INTO runs (run_id, tool, analysis, simplified, args, started_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Tool, r.Analysis, boolInt(r.Simplified), r.Args, r.Started.UnixMilli())
	if err != nil {
		return Run{}, fmt.Errorf("failed to record run: %w", err)
	}
	return r, nil
}

// FinishRun stores the batch totals of a run.
func (l *Ledger) FinishRun(id string, sum fitdriver.Summary) error {
	res, err := l.Exec(`UPDATE runs SET finished_ms = ?, succeeded = ?, failed = ?, skipped = ? WHERE run_id = ?`,
		l.Clock.Now().UnixMilli(), sum.Succeeded, sum.Failed, sum.Skipped, id)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("unknown run %s", id)
	}
	return nil
}

const runColumns = `run_id, tool, analysis, simplified, args, started_ms, finished_ms, succeeded, failed, skipped`

// ErrRunNotFound is returned by Run for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Runs returns the most recent runs, newest first.
func (l *Ledger) Runs(limit int) ([]Run, error) {
	rows, err := l.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_ms DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Run returns the run with the given id.
func (l *Ledger) Run(id string) (Run, error) {
	r, err := scanRun(l.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r          Run
		simplified int
		started    int64
		finished   sql.NullInt64
	)
	if err := s.Scan(&r.ID, &r.Tool, &r.Analysis, &simplified, &r.Args, &started, &finished, &r.Succeeded, &r.Failed, &r.Skipped); err != nil {
		return Run{}, err
	}
	r.Simplified = simplified != 0
	r.Started = time.UnixMilli(started)
	if finished.Valid {
		r.Finished = time.UnixMilli(finished.Int64)
	}
	return r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
