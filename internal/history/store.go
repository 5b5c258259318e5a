// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records ranking runs in a SQLite database so spend and
// past recommendations can be reviewed across runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"

	"github.com/pdiddy/digest-ranker/pkg/types"
)

// ErrNotFound is returned by GetRun for an unknown run id.
var ErrNotFound = eris.New("history: run not found")

// Run is one recorded ranking run.
type Run struct {
	ID             string              `json:"id" yaml:"id"`
	StartedAt      time.Time           `json:"started_at" yaml:"started_at"`
	Digest         string              `json:"digest" yaml:"digest"`
	Model          string              `json:"model" yaml:"model"`
	Tier           string              `json:"tier" yaml:"tier"`
	TopN           int                 `json:"top_n" yaml:"top_n"`
	Candidates     int                 `json:"candidates" yaml:"candidates"`
	Usage          types.UsageStats    `json:"usage" yaml:"usage"`
	Fallback       bool                `json:"fallback" yaml:"fallback"`
	FallbackReason string              `json:"fallback_reason,omitempty" yaml:"fallback_reason,omitempty"`
	Papers         []types.PaperRecord `json:"papers" yaml:"papers"`
}

// Totals aggregates every recorded run.
type Totals struct {
	Runs             int     `json:"runs" yaml:"runs"`
	Fallbacks        int     `json:"fallbacks" yaml:"fallbacks"`
	InputTokens      int64   `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens     int64   `json:"output_tokens" yaml:"output_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd" yaml:"estimated_cost_usd"`
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the run history database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the database at path, creating its directory
// and schema as needed.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "history: create directory %s", dir)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, eris.Wrap(err, "history: open database")
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			digest TEXT,
			model TEXT,
			tier TEXT,
			top_n INTEGER,
			candidates INTEGER,
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			estimated_cost_usd REAL NOT NULL DEFAULT 0,
			fallback INTEGER NOT NULL DEFAULT 0,
			fallback_reason TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE TABLE IF NOT EXISTS ranked_papers (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			external_id TEXT NOT NULL,
			title TEXT NOT NULL,
			authors TEXT,
			categories TEXT,
			abstract TEXT,
			link TEXT,
			PRIMARY KEY (run_id, position)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return eris.Wrap(err, "history: create schema")
		}
	}
	return nil
}

// SaveRun stores run and its ranked papers in one transaction. An empty ID
// is filled with a new UUID and a zero StartedAt with the current time.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "history: begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, digest, model, tier, top_n, candidates,
			input_tokens, output_tokens, total_tokens, estimated_cost_usd, fallback, fallback_reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(timeLayout), run.Digest, run.Model, run.Tier,
		run.TopN, run.Candidates,
		run.Usage.InputTokens, run.Usage.OutputTokens, run.Usage.TotalTokens, run.Usage.EstimatedCostUSD,
		run.Fallback, run.FallbackReason,
	)
	if err != nil {
		return eris.Wrapf(err, "history: insert run %s", run.ID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ranked_papers (run_id, position, external_id, title, authors, categories, abstract, link)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "history: prepare paper insert")
	}
	defer stmt.Close()

	for i, p := range run.Papers {
		if _, err := stmt.ExecContext(ctx, run.ID, i+1, p.ExternalID, p.Title, p.Authors, p.Categories, p.Abstract, p.Link); err != nil {
			return eris.Wrapf(err, "history: insert paper %s", p.ExternalID)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "history: commit")
	}
	return nil
}

const runColumns = `id, started_at, digest, model, tier, top_n, candidates,
	input_tokens, output_tokens, total_tokens, estimated_cost_usd, fallback, fallback_reason`

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "history: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "history: list runs")
	}

	for i := range runs {
		papers, err := s.papers(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Papers = papers
	}
	return runs, nil
}

// GetRun returns one run with its papers.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "id %s", id)
	}
	if err != nil {
		return nil, err
	}

	run.Papers, err = s.papers(ctx, id)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Totals sums usage and cost over all runs.
func (s *Store) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*), COALESCE(SUM(fallback), 0), COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0), COALESCE(SUM(estimated_cost_usd), 0)
		 FROM runs`,
	).Scan(&t.Runs, &t.Fallbacks, &t.InputTokens, &t.OutputTokens, &t.EstimatedCostUSD)
	if err != nil {
		return Totals{}, eris.Wrap(err, "history: totals")
	}
	return t, nil
}

func (s *Store) papers(ctx context.Context, runID string) ([]types.PaperRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT external_id, title, authors, categories, abstract, link
		 FROM ranked_papers WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "history: papers of run %s", runID)
	}
	defer rows.Close()

	papers := []types.PaperRecord{}
	for rows.Next() {
		var p types.PaperRecord
		if err := rows.Scan(&p.ExternalID, &p.Title, &p.Authors, &p.Categories, &p.Abstract, &p.Link); err != nil {
			return nil, eris.Wrap(err, "history: scan paper")
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "history: scan paper")
	}
	return papers, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run       Run
		startedAt string
		digest    sql.NullString
		model     sql.NullString
		tier      sql.NullString
		reason    sql.NullString
	)
	err := sc.Scan(&run.ID, &startedAt, &digest, &model, &tier, &run.TopN, &run.Candidates,
		&run.Usage.InputTokens, &run.Usage.OutputTokens, &run.Usage.TotalTokens, &run.Usage.EstimatedCostUSD,
		&run.Fallback, &reason)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, eris.Wrap(err, "history: scan run")
	}

	run.StartedAt, err = time.Parse(timeLayout, startedAt)
	if err != nil {
		return Run{}, eris.Wrapf(err, "history: parse started_at of run %s", run.ID)
	}
	run.Digest = digest.String
	run.Model = model.String
	run.Tier = tier.String
	run.FallbackReason = reason.String
	return run, nil
}
