// Package persistence records run history: a SQLite store of per-turn
// reports and log lines, and a compressed JSONL turn trace. Neither is read
// back into a simulation.
package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/civsim/internal/engine"
)

// DB wraps a SQLite connection for run history.
type DB struct {
	conn *sqlx.DB
}

// Run describes one simulation run.
type Run struct {
	ID        string    `db:"id"`
	StartedAt time.Time `db:"started_at"`
	Safety    bool      `db:"safety"`
	Seed      int64     `db:"seed"`
	People    int       `db:"people"`
}

// TurnRow is one recorded turn.
type TurnRow struct {
	RunID        string  `db:"run_id"`
	Turn         uint64  `db:"turn"`
	Year         int     `db:"year"`
	Season       string  `db:"season"`
	WaterGain    float64 `db:"water_gain"`
	FruitGain    float64 `db:"fruit_gain"`
	Research     float64 `db:"research"`
	Water        float64 `db:"water"`
	Fruits       float64 `db:"fruits"`
	ObsProgress  float64 `db:"obs_progress"`
	FireProgress float64 `db:"fire_progress"`
	HasHearth    bool    `db:"has_hearth"`
	Rained       bool    `db:"rained"`
	Alive        int     `db:"alive"`
	Deaths       int     `db:"deaths"` // Died this turn
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		safety INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		people INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turns (
		run_id TEXT NOT NULL REFERENCES runs(id),
		turn INTEGER NOT NULL,
		year INTEGER NOT NULL,
		season TEXT NOT NULL,
		water_gain REAL NOT NULL,
		fruit_gain REAL NOT NULL,
		research REAL NOT NULL,
		water REAL NOT NULL,
		fruits REAL NOT NULL,
		obs_progress REAL NOT NULL,
		fire_progress REAL NOT NULL,
		has_hearth INTEGER NOT NULL,
		rained INTEGER NOT NULL,
		alive INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		PRIMARY KEY (run_id, turn)
	);

	CREATE TABLE IF NOT EXISTS log_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		turn INTEGER NOT NULL,
		line TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_log_lines_run ON log_lines(run_id, id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// StartRun records a new run and returns it with a fresh ID.
func (db *DB) StartRun(safety bool, seed int64, people int) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Safety:    safety,
		Seed:      seed,
		People:    people,
	}
	_, err := db.conn.NamedExec(`INSERT INTO runs (id, started_at, safety, seed, people)
		VALUES (:id, :started_at, :safety, :seed, :people)`, run)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	slog.Info("run started", "run_id", run.ID)
	return run, nil
}

// RecordTurn stores one turn's report and the log lines it appended.
func (db *DB) RecordTurn(runID string, turn uint64, s engine.WorldState, r engine.TurnReport, lines []string) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin turn tx: %w", err)
	}
	defer tx.Rollback()

	row := TurnRow{
		RunID:        runID,
		Turn:         turn,
		Year:         r.Year,
		Season:       engine.SeasonName(r.Season),
		WaterGain:    r.WaterGain,
		FruitGain:    r.FruitGain,
		Research:     r.Research,
		Water:        s.Water(),
		Fruits:       s.Fruits(),
		ObsProgress:  s.Obs.Progress,
		FireProgress: s.Fire.Progress,
		HasHearth:    s.HasHearth,
		Rained:       r.Rained,
		Alive:        s.AliveCount(),
		Deaths:       len(r.Deaths),
	}
	if _, err := tx.NamedExec(`INSERT INTO turns
		(run_id, turn, year, season, water_gain, fruit_gain, research, water, fruits,
		 obs_progress, fire_progress, has_hearth, rained, alive, deaths)
		VALUES (:run_id, :turn, :year, :season, :water_gain, :fruit_gain, :research, :water, :fruits,
		 :obs_progress, :fire_progress, :has_hearth, :rained, :alive, :deaths)`, row); err != nil {
		return fmt.Errorf("insert turn %d: %w", turn, err)
	}

	for _, line := range lines {
		if _, err := tx.Exec("INSERT INTO log_lines (run_id, turn, line) VALUES (?, ?, ?)", runID, turn, line); err != nil {
			return fmt.Errorf("insert log line: %w", err)
		}
	}

	return tx.Commit()
}

// RecentTurns returns the most recent N turns of a run, newest first.
func (db *DB) RecentTurns(runID string, limit int) ([]TurnRow, error) {
	var rows []TurnRow
	err := db.conn.Select(&rows,
		"SELECT * FROM turns WHERE run_id = ? ORDER BY turn DESC LIMIT ?",
		runID, limit,
	)
	return rows, err
}

// RunLog returns every recorded log line of a run in append order.
func (db *DB) RunLog(runID string) ([]string, error) {
	var lines []string
	err := db.conn.Select(&lines, "SELECT line FROM log_lines WHERE run_id = ? ORDER BY id", runID)
	return lines, err
}

// Runs returns all recorded runs, newest first.
func (db *DB) Runs() ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs, "SELECT id, started_at, safety, seed, people FROM runs ORDER BY started_at DESC")
	return runs, err
}
