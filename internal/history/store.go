// Package history persists finished searches.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/metalagman/costplan/internal/search"
)

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned by Get for unknown run ids.
var ErrNotFound = errors.New("run not found")

// Warning is a stored consistency warning.
type Warning struct {
	Kind   string
	Path   string
	Action string
	F      float64
	Bound  float64
}

// Record is one finished search.
type Record struct {
	ID          string
	CreatedAt   time.Time
	KBPath      string
	Heuristic   string
	Status      string
	Aborted     bool
	TargetID    string
	Cost        float64
	CostBenefit float64
	Steps       int
	Open        int
	Closed      int
	Duration    time.Duration
	Plan        []string
	Warnings    []Warning
}

// Found reports whether the search reached a target.
func (r Record) Found() bool { return r.TargetID != "" }

// NewRunID returns a fresh run id.
func NewRunID() string {
	return uuid.NewString()
}

// FromResult builds a record for a search over the knowledge base at kbPath.
func FromResult(kbPath, heuristic string, r search.Result) Record {
	rec := Record{
		ID:          NewRunID(),
		KBPath:      kbPath,
		Heuristic:   heuristic,
		Status:      r.Outcome(),
		Aborted:     r.Aborted,
		Cost:        math.NaN(),
		CostBenefit: math.NaN(),
		Steps:       r.Steps,
		Open:        r.Open,
		Closed:      r.Closed,
		Duration:    r.Duration,
		Plan:        r.PlanIDs(),
	}
	if r.Found() {
		rec.TargetID = r.Target.ID
		rec.Cost = r.Cost
		rec.CostBenefit = r.CostBenefit
	}
	for _, w := range r.Warnings {
		rec.Warnings = append(rec.Warnings, Warning{
			Kind:   w.Kind,
			Path:   w.Path,
			Action: w.Action,
			F:      w.F,
			Bound:  w.Bound,
		})
	}
	return rec
}

// Store provides persistence for search records.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a store on an opened and migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Record inserts rec with its plan and warnings. An empty id is replaced
// with a fresh one. It returns the stored id.
func (s *Store) Record(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = NewRunID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("begin record run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO runs(run_id, created_at, kb_path, heuristic, status, aborted,
		target_id, cost, cost_benefit, steps, open_nodes, closed_nodes, duration_ms)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt.UTC().Format(timeLayout), rec.KBPath, rec.Heuristic, rec.Status, rec.Aborted,
		nullString(rec.TargetID), nullFloat(rec.Cost), nullFloat(rec.CostBenefit),
		rec.Steps, rec.Open, rec.Closed, rec.Duration.Milliseconds()); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	for i, id := range rec.Plan {
		if _, err := tx.ExecContext(ctx, `INSERT INTO plan_steps(run_id, step_index, action_id) VALUES(?, ?, ?)`,
			rec.ID, i, id); err != nil {
			return "", fmt.Errorf("insert plan step %d: %w", i, err)
		}
	}
	for i, w := range rec.Warnings {
		if _, err := tx.ExecContext(ctx, `INSERT INTO warnings(run_id, seq, kind, path, action_id, f, bound)
			VALUES(?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, i, w.Kind, w.Path, w.Action, finite(w.F), finite(w.Bound)); err != nil {
			return "", fmt.Errorf("insert warning %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit record run: %w", err)
	}
	return rec.ID, nil
}

const runColumns = `run_id, created_at, kb_path, heuristic, status, aborted, target_id, cost, cost_benefit,
	steps, open_nodes, closed_nodes, duration_ms`

// List returns the most recent runs first, without plans and warnings.
// A limit <= 0 lists every run.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// Get returns the run with its plan and warnings.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id=?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, err
	}
	if rec.Plan, err = s.plan(ctx, id); err != nil {
		return Record{}, err
	}
	if rec.Warnings, err = s.warnings(ctx, id); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Store) plan(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT action_id FROM plan_steps WHERE run_id=? ORDER BY step_index`, id)
	if err != nil {
		return nil, fmt.Errorf("list plan steps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var action string
		if err := rows.Scan(&action); err != nil {
			return nil, fmt.Errorf("scan plan step: %w", err)
		}
		out = append(out, action)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plan steps: %w", err)
	}
	return out, nil
}

func (s *Store) warnings(ctx context.Context, id string) ([]Warning, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, path, action_id, f, bound FROM warnings WHERE run_id=? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("list warnings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Warning
	for rows.Next() {
		var w Warning
		if err := rows.Scan(&w.Kind, &w.Path, &w.Action, &w.F, &w.Bound); err != nil {
			return nil, fmt.Errorf("scan warning: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate warnings: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Record, error) {
	var (
		rec         Record
		createdAt   string
		target      sql.NullString
		cost        sql.NullFloat64
		costBenefit sql.NullFloat64
		durationMS  int64
	)
	err := row.Scan(&rec.ID, &createdAt, &rec.KBPath, &rec.Heuristic, &rec.Status, &rec.Aborted, &target,
		&cost, &costBenefit, &rec.Steps, &rec.Open, &rec.Closed, &durationMS)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, err
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan run: %w", err)
	}
	rec.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("parse created_at of run %s: %w", rec.ID, err)
	}
	rec.TargetID = target.String
	rec.Cost = math.NaN()
	if cost.Valid {
		rec.Cost = cost.Float64
	}
	rec.CostBenefit = math.NaN()
	if costBenefit.Valid {
		rec.CostBenefit = costBenefit.Float64
	}
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: !math.IsNaN(f) && !math.IsInf(f, 0)}
}

// finite clamps infinities, which sqlite stores as NULL.
func finite(f float64) float64 {
	switch {
	case math.IsInf(f, 1):
		return math.MaxFloat64
	case math.IsInf(f, -1):
		return -math.MaxFloat64
	}
	return f
}
