package record

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DBFileName is the journal created inside the data directory.
const DBFileName = "ddt.db"

// Store provides SQLite-backed persistence for runs and trials.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the journal inside dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return NewStore(filepath.Join(dataDir, DBFileName))
}

// NewStore opens the SQLite database at dbPath and creates tables if they don't exist.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		participant TEXT NOT NULL,
		session_id TEXT NOT NULL,
		session_count INTEGER NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS trials (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		session INTEGER NOT NULL,
		trial INTEGER NOT NULL,
		mode TEXT NOT NULL,
		t_ss REAL NOT NULL,
		t_ll REAL NOT NULL,
		r_ss REAL NOT NULL,
		r_ll REAL NOT NULL,
		direction INTEGER NOT NULL,
		resp_left INTEGER NOT NULL,
		resp_ss INTEGER NOT NULL,
		rt REAL NOT NULL,
		recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateRun creates a new active run for the given participant and session.
func (s *Store) CreateRun(participant, sessionID string, sessionCount int) (*Run, error) {
	id := uuid.New().String()
	now := time.Now()

	_, err := s.db.Exec(
		`INSERT INTO runs (id, participant, session_id, session_count, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, participant, sessionID, sessionCount, StatusActive, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return &Run{
		ID:           id,
		Participant:  participant,
		SessionID:    sessionID,
		SessionCount: sessionCount,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// GetRun retrieves a run by ID. Returns nil, nil if it does not exist.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, participant, session_id, session_count, status, created_at, updated_at
		 FROM runs WHERE id = ?`,
		id,
	)

	var r Run
	err := row.Scan(&r.ID, &r.Participant, &r.SessionID, &r.SessionCount, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	return &r, nil
}

// SetRunStatus updates the status of a run.
func (s *Store) SetRunStatus(id, status string) error {
	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}

	return nil
}

// RecordTrial appends an accepted trial to its run.
func (s *Store) RecordTrial(t Trial) error {
	if t.RecordedAt.IsZero() {
		t.RecordedAt = time.Now()
	}

	_, err := s.db.Exec(
		`INSERT INTO trials (run_id, session, trial, mode, t_ss, t_ll, r_ss, r_ll,
		   direction, resp_left, resp_ss, rt, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.RunID, t.Session, t.Index, t.Mode, t.TSS, t.TLL, t.RSS, t.RLL,
		t.Direction, t.RespLeft, t.RespSS, t.RT, t.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trial: %w", err)
	}

	_, err = s.db.Exec(`UPDATE runs SET updated_at = ? WHERE id = ?`, t.RecordedAt, t.RunID)
	if err != nil {
		return fmt.Errorf("touch run: %w", err)
	}

	return nil
}

// Trials retrieves the trials of a run in the order they were recorded.
func (s *Store) Trials(runID string) ([]Trial, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, session, trial, mode, t_ss, t_ll, r_ss, r_ll,
		        direction, resp_left, resp_ss, rt, recorded_at
		 FROM trials
		 WHERE run_id = ?
		 ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var trials []Trial
	for rows.Next() {
		var t Trial
		if err := rows.Scan(&t.ID, &t.RunID, &t.Session, &t.Index, &t.Mode, &t.TSS, &t.TLL, &t.RSS, &t.RLL,
			&t.Direction, &t.RespLeft, &t.RespSS, &t.RT, &t.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		trials = append(trials, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return trials, nil
}

// ListRuns returns all runs, most recently updated first, with trial counts.
func (s *Store) ListRuns() ([]Summary, error) {
	rows, err := s.db.Query(
		`SELECT r.id, r.participant, r.session_id, r.session_count, r.status, r.created_at, r.updated_at,
		        COALESCE(SUM(CASE WHEN t.mode = 'optimal' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN t.mode = 'train' THEN 1 ELSE 0 END), 0)
		 FROM runs r
		 LEFT JOIN trials t ON t.run_id = r.id
		 GROUP BY r.id
		 ORDER BY r.updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Participant, &sum.SessionID, &sum.SessionCount, &sum.Status,
			&sum.CreatedAt, &sum.UpdatedAt, &sum.MainTrials, &sum.TrainTrials); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return summaries, nil
}
