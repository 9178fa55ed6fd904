// Package store persists mining runs to SQLite
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/vocabmine/internal/model"
)

// Store writes runs, their terms and their rejections
type Store struct {
	db *sql.DB
}

// RunRecord is the summary row of one saved run
type RunRecord struct {
	JobID    string
	State    model.Stage
	Policy   string
	Stats    model.Stats
	Started  time.Time
	Finished time.Time
}

// Open opens the database at path with WAL mode enabled, creating the
// parent directory and schema as needed
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	state TEXT NOT NULL,
	policy TEXT,
	stats_json TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS terms (
	run_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	phrase TEXT NOT NULL,
	definition TEXT NOT NULL,
	example TEXT,
	score REAL NOT NULL,
	safety_status TEXT NOT NULL,
	attribution TEXT,
	source_url TEXT,
	refinement_json TEXT,
	PRIMARY KEY(run_id, phrase),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS rejections (
	run_id TEXT NOT NULL,
	phrase TEXT NOT NULL,
	reason TEXT NOT NULL,
	detail TEXT,
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_terms_phrase ON terms(phrase);
CREATE INDEX IF NOT EXISTS idx_rejections_run ON rejections(run_id);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveRun writes the run and replaces any terms and rejections saved
// earlier under the same job ID
func (s *Store) SaveRun(ctx context.Context, jobID string, result *model.Result) error {
	stats, err := json.Marshal(result.Stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const upsertRun = `
INSERT INTO runs (id, state, policy, stats_json, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	state=excluded.state,
	policy=excluded.policy,
	stats_json=excluded.stats_json,
	started_at=excluded.started_at,
	finished_at=excluded.finished_at;
`
	if _, err := tx.ExecContext(ctx, upsertRun,
		jobID,
		string(result.State),
		result.Policy.Name,
		string(stats),
		result.Started.UTC().Format(time.RFC3339Nano),
		result.Finished.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	if err := replaceTerms(ctx, tx, jobID, result.Terms); err != nil {
		return fmt.Errorf("save terms: %w", err)
	}
	if err := replaceRejections(ctx, tx, jobID, result.Rejected); err != nil {
		return fmt.Errorf("save rejections: %w", err)
	}

	return tx.Commit()
}

func replaceTerms(ctx context.Context, tx *sql.Tx, jobID string, terms []model.MinedTerm) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM terms WHERE run_id=?`, jobID); err != nil {
		return err
	}
	if len(terms) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO terms (run_id, position, phrase, definition, example, score, safety_status, attribution, source_url, refinement_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, term := range terms {
		var refinement sql.NullString
		if term.Refinement != nil {
			data, err := json.Marshal(term.Refinement)
			if err != nil {
				return fmt.Errorf("encode refinement for %q: %w", term.Phrase, err)
			}
			refinement = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			jobID, i, term.Phrase, term.Definition, term.Example, term.Score,
			string(term.SafetyStatus), term.Attribution, term.SourceURL, refinement,
		); err != nil {
			return err
		}
	}
	return nil
}

func replaceRejections(ctx context.Context, tx *sql.Tx, jobID string, rejected []model.Rejection) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM rejections WHERE run_id=?`, jobID); err != nil {
		return err
	}
	if len(rejected) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO rejections (run_id, phrase, reason, detail) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rejected {
		if _, err := stmt.ExecContext(ctx, jobID, r.Phrase, string(r.Reason), r.Detail); err != nil {
			return err
		}
	}
	return nil
}

// Runs lists saved runs, newest first. limit <= 0 lists all.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT id, state, policy, stats_json, started_at, finished_at FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			rec               RunRecord
			state, stats      string
			policy            sql.NullString
			started, finished string
		)
		if err := rows.Scan(&rec.JobID, &state, &policy, &stats, &started, &finished); err != nil {
			return nil, err
		}
		rec.State = model.Stage(state)
		rec.Policy = policy.String
		if err := json.Unmarshal([]byte(stats), &rec.Stats); err != nil {
			return nil, fmt.Errorf("decode stats for %s: %w", rec.JobID, err)
		}
		rec.Started, _ = time.Parse(time.RFC3339Nano, started)
		rec.Finished, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// Terms returns the terms saved for a run in emission order
func (s *Store) Terms(ctx context.Context, jobID string) ([]model.MinedTerm, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT phrase, definition, example, score, safety_status, attribution, source_url, refinement_json
FROM terms WHERE run_id=? ORDER BY position`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	terms := []model.MinedTerm{}
	for rows.Next() {
		var (
			term                            model.MinedTerm
			safety                          string
			example, attribution, sourceURL sql.NullString
			refinement                      sql.NullString
		)
		if err := rows.Scan(&term.Phrase, &term.Definition, &example, &term.Score, &safety, &attribution, &sourceURL, &refinement); err != nil {
			return nil, err
		}
		term.Example = example.String
		term.SafetyStatus = model.SafetyStatus(safety)
		term.Attribution = attribution.String
		term.SourceURL = sourceURL.String
		if refinement.Valid {
			var r model.RefinementResult
			if err := json.Unmarshal([]byte(refinement.String), &r); err != nil {
				return nil, fmt.Errorf("decode refinement for %q: %w", term.Phrase, err)
			}
			term.Refinement = &r
		}
		terms = append(terms, term)
	}
	return terms, rows.Err()
}

// Rejections returns the rejections saved for a run
func (s *Store) Rejections(ctx context.Context, jobID string) ([]model.Rejection, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT phrase, reason, detail FROM rejections WHERE run_id=? ORDER BY rowid`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rejected := []model.Rejection{}
	for rows.Next() {
		var (
			r      model.Rejection
			reason string
			detail sql.NullString
		)
		if err := rows.Scan(&r.Phrase, &reason, &detail); err != nil {
			return nil, err
		}
		r.Reason = model.RejectReason(reason)
		r.Detail = detail.String
		rejected = append(rejected, r)
	}
	return rejected, rows.Err()
}
