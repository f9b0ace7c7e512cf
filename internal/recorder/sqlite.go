package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"DCAPilot/internal/model"
)

// SQLiteRecorder writes run history to a SQLite database. Amounts are stored as
// decimal strings so nothing is lost to floating point.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger(), now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL UNIQUE,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			trigger     TEXT,
			outcome     TEXT,
			exit_code   INTEGER,
			primary_coin TEXT,
			required    TEXT,
			initial     TEXT,
			final       TEXT,
			trades      INTEGER,
			spent       TEXT,
			note        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS funding_events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			kind      TEXT,
			coin      TEXT,
			to_coin   TEXT,
			amount    TEXT,
			output    TEXT,
			ok        INTEGER,
			note      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_funding_run ON funding_events(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordFunding(runID string, step model.FundingStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO funding_events
		(run_id, timestamp, kind, coin, to_coin, amount, output, ok, note)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		runID, r.now().Unix(), string(step.Kind), step.Coin, step.ToCoin,
		step.Amount.String(), step.Output.String(), step.OK, step.Note,
	)
	return err
}

func (r *SQLiteRecorder) RecordRun(evt *RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO runs
		(run_id, started_at, finished_at, trigger, outcome, exit_code,
		 primary_coin, required, initial, final, trades, spent, note)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		evt.RunID, evt.StartedAt.Unix(), evt.FinishedAt.Unix(),
		string(evt.Trigger), string(evt.Outcome), evt.ExitCode,
		evt.Primary, evt.Required, evt.Initial, evt.Final,
		evt.Trades, evt.Spent, evt.Note,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
