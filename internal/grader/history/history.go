// Package history keeps a local record of evaluation runs so a student can
// see whether the grade is moving between attempts.
package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/build-flow-labs/apigrader/internal/grader/checks"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id         TEXT PRIMARY KEY,
	student        TEXT NOT NULL,
	profile        TEXT NOT NULL,
	source         TEXT,
	obtained       REAL NOT NULL,
	max            REAL NOT NULL,
	percentage     REAL NOT NULL,
	letter         TEXT NOT NULL,
	mark           REAL NOT NULL,
	observations   TEXT NOT NULL,
	server_skipped INTEGER NOT NULL,
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_student_profile ON runs(student, profile, created_at);
`

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Trend labels.
const (
	FirstRun  = "FIRST_RUN"
	Improving = "IMPROVING"
	Declining = "DECLINING"
	Same      = "SAME"
)

// Trend compares a run with the previous run of the same student and profile.
type Trend struct {
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
	Delta    float64 `json:"delta"`
	Label    string  `json:"label"`
}

// Entry is one stored run.
type Entry struct {
	RunID         string    `json:"run_id"`
	Student       string    `json:"student"`
	Profile       string    `json:"profile"`
	Source        string    `json:"source,omitempty"`
	Obtained      float64   `json:"obtained"`
	Max           float64   `json:"max"`
	Percentage    float64   `json:"percentage"`
	Letter        string    `json:"letter"`
	Mark          float64   `json:"mark"`
	Observations  []string  `json:"observations"`
	ServerSkipped bool      `json:"server_skipped"`
	CreatedAt     time.Time `json:"created_at"`
}

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("run not found")

// Store is a SQLite file of runs.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a finished run and returns its trend against the previous
// run of the same student and profile.
func (s *Store) Record(o *checks.Outcome) (Trend, error) {
	tr := Trend{Current: o.Report.Percentage, Label: FirstRun}

	var prev float64
	err := s.db.QueryRow(
		`SELECT percentage FROM runs WHERE student = ? AND profile = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		o.Student, o.Profile,
	).Scan(&prev)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return Trend{}, fmt.Errorf("query previous run: %w", err)
	default:
		tr.Previous = prev
		tr.Delta = math.Round((tr.Current-prev)*10) / 10
		switch {
		case tr.Delta > 0:
			tr.Label = Improving
		case tr.Delta < 0:
			tr.Label = Declining
		default:
			tr.Label = Same
		}
	}

	obs := o.Report.Observations
	if obs == nil {
		obs = []string{}
	}
	obsJSON, err := json.Marshal(obs)
	if err != nil {
		return Trend{}, fmt.Errorf("encode observations: %w", err)
	}

	created := o.StartedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err = s.db.Exec(
		`INSERT INTO runs (run_id, student, profile, source, obtained, max, percentage, letter, mark,
			observations, server_skipped, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, o.Student, o.Profile, o.Source,
		o.Report.Obtained, o.Report.Max, o.Report.Percentage,
		o.Report.Grade.Letter, o.Report.Grade.Mark,
		string(obsJSON), o.ServerSkipped,
		created.UTC().Format(timeLayout),
	)
	if err != nil {
		return Trend{}, fmt.Errorf("insert run: %w", err)
	}
	return tr, nil
}

const selectRuns = `SELECT run_id, student, profile, COALESCE(source, ''), obtained, max, percentage, letter, mark,
	observations, server_skipped, created_at FROM runs`

// List returns the most recent runs, newest first. An empty student lists
// every student; limit <= 0 means no limit.
func (s *Store) List(student string, limit int) ([]Entry, error) {
	query := selectRuns
	var args []any
	if student != "" {
		query += ` WHERE student = ?`
		args = append(args, student)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Get returns one run by id.
func (s *Store) Get(runID string) (Entry, error) {
	e, err := scanEntry(s.db.QueryRow(selectRuns+` WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	var obs, created string
	if err := row.Scan(&e.RunID, &e.Student, &e.Profile, &e.Source, &e.Obtained, &e.Max,
		&e.Percentage, &e.Letter, &e.Mark, &obs, &e.ServerSkipped, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(obs), &e.Observations); err != nil {
		return Entry{}, fmt.Errorf("decode observations of %s: %w", e.RunID, err)
	}
	e.CreatedAt, _ = time.Parse(timeLayout, created)
	return e, nil
}
