package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/TobiSchelling/orgscout/internal/directory"
	"github.com/TobiSchelling/orgscout/internal/trace"
)

const selectQuery = `SELECT id, query, status, summary, created_at, updated_at FROM research_queries`

// CreateResearch inserts a pending research query with a fresh id.
func (db *DB) CreateResearch(ctx context.Context, query string) (*ResearchQuery, error) {
	now := db.now()
	id := uuid.NewString()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO research_queries (id, query, status, summary, created_at, updated_at)
		 VALUES (?, ?, ?, '', ?, ?)`,
		id, query, string(StatusPending), formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting research query: %w", err)
	}
	return db.GetResearch(ctx, id)
}

// GetResearch returns the research query with id, or ErrNotFound.
func (db *DB) GetResearch(ctx context.Context, id string) (*ResearchQuery, error) {
	var row queryRow
	err := db.conn.GetContext(ctx, &row, selectQuery+` WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting research query: %w", err)
	}
	q, err := row.model()
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ListResearch returns up to limit research queries, newest first. A
// non-positive limit returns all of them.
func (db *DB) ListResearch(ctx context.Context, limit int) ([]ResearchQuery, error) {
	stmt := selectQuery + ` ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []queryRow
	if err := db.conn.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, fmt.Errorf("listing research queries: %w", err)
	}

	out := make([]ResearchQuery, 0, len(rows))
	for _, r := range rows {
		q, err := r.model()
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// CountByStatus returns how many research queries are in each status.
func (db *DB) CountByStatus(ctx context.Context) (map[Status]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"n"`
	}
	if err := db.conn.SelectContext(ctx, &rows,
		`SELECT status, COUNT(*) AS n FROM research_queries GROUP BY status`); err != nil {
		return nil, fmt.Errorf("counting research queries: %w", err)
	}
	counts := make(map[Status]int, len(rows))
	for _, r := range rows {
		counts[Status(r.Status)] = r.Count
	}
	return counts, nil
}

// MarkInProgress moves a pending query to in_progress.
func (db *DB) MarkInProgress(ctx context.Context, id string) error {
	return db.transition(ctx, db.conn, id, StatusPending, StatusInProgress, nil)
}

// CompleteResearch marks an in-progress query completed and stores its
// summary, steps, profiles and insights in one transaction.
func (db *DB) CompleteResearch(ctx context.Context, id string, r Results) error {
	return db.finish(ctx, id, StatusCompleted, r)
}

// FailResearch marks an in-progress query failed, keeping whatever partial
// results r carries.
func (db *DB) FailResearch(ctx context.Context, id string, r Results) error {
	return db.finish(ctx, id, StatusFailed, r)
}

func (db *DB) finish(ctx context.Context, id string, to Status, r Results) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := db.transition(ctx, tx, id, StatusInProgress, to, &r.Summary); err != nil {
		return err
	}
	if err := insertSteps(ctx, tx, id, r.Steps); err != nil {
		return err
	}
	if err := insertProfiles(ctx, tx, id, r.Profiles); err != nil {
		return err
	}
	if err := insertInsights(ctx, tx, id, r.Insights); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit results: %w", err)
	}
	return nil
}

// transition changes status from -> to, optionally replacing the summary. It
// reports ErrNotFound or ErrInvalidTransition when no row was updated.
func (db *DB) transition(ctx context.Context, ex sqlx.ExtContext, id string, from, to Status, summary *string) error {
	var (
		res sql.Result
		err error
	)
	now := formatTime(db.now())
	if summary != nil {
		res, err = ex.ExecContext(ctx,
			`UPDATE research_queries SET status = ?, summary = ?, updated_at = ? WHERE id = ? AND status = ?`,
			string(to), *summary, now, id, string(from))
	} else {
		res, err = ex.ExecContext(ctx,
			`UPDATE research_queries SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			string(to), now, id, string(from))
	}
	if err != nil {
		return fmt.Errorf("updating status to %s: %w", to, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking status update: %w", err)
	}
	if n > 0 {
		return nil
	}

	var current string
	err = sqlx.GetContext(ctx, ex, &current, `SELECT status FROM research_queries WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current, to)
}

func insertSteps(ctx context.Context, tx *sqlx.Tx, id string, steps []trace.Record) error {
	for i, s := range steps {
		var end sql.NullString
		if s.EndTime != nil {
			end = sql.NullString{String: formatTime(*s.EndTime), Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO research_steps
			 (query_id, position, description, reasoning, status, result, confidence, start_time, end_time, duration)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, s.Description, s.Reasoning, string(s.Status), s.Result.Text(),
			nullFloat(s.Confidence), formatTime(s.StartTime), end, nullFloat(s.Duration),
		)
		if err != nil {
			return fmt.Errorf("inserting step %d: %w", i, err)
		}
	}
	return nil
}

func insertProfiles(ctx context.Context, tx *sqlx.Tx, id string, profiles []directory.Profile) error {
	for i, p := range profiles {
		expertise := p.Expertise
		if expertise == nil {
			expertise = []string{}
		}
		data, err := json.Marshal(expertise)
		if err != nil {
			return fmt.Errorf("encoding expertise: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO profiles
			 (query_id, position, name, title, organization, location, profile_url, image_url, expertise)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, p.Name, p.Title, p.Organization, p.Location, p.ProfileURL, p.ImageURL, string(data),
		)
		if err != nil {
			return fmt.Errorf("inserting profile %d: %w", i, err)
		}
	}
	return nil
}

func insertInsights(ctx context.Context, tx *sqlx.Tx, id string, insights []string) error {
	for i, content := range insights {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO insights (query_id, position, content) VALUES (?, ?, ?)`,
			id, i, content,
		); err != nil {
			return fmt.Errorf("inserting insight %d: %w", i, err)
		}
	}
	return nil
}

// GetSteps returns the trace of a query in order.
func (db *DB) GetSteps(ctx context.Context, id string) ([]trace.Record, error) {
	var rows []stepRow
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT description, reasoning, status, result, confidence, start_time, end_time, duration
		 FROM research_steps WHERE query_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("getting steps: %w", err)
	}

	out := make([]trace.Record, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// GetProfiles returns the profiles found for a query in order.
func (db *DB) GetProfiles(ctx context.Context, id string) ([]directory.Profile, error) {
	var rows []profileRow
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT name, title, organization, location, profile_url, image_url, expertise
		 FROM profiles WHERE query_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("getting profiles: %w", err)
	}

	out := make([]directory.Profile, 0, len(rows))
	for _, r := range rows {
		p, err := r.profile()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// GetInsights returns the insights for a query in order.
func (db *DB) GetInsights(ctx context.Context, id string) ([]string, error) {
	out := []string{}
	err := db.conn.SelectContext(ctx, &out,
		`SELECT content FROM insights WHERE query_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("getting insights: %w", err)
	}
	return out, nil
}

// GetReport loads a query together with its steps, profiles and insights.
func (db *DB) GetReport(ctx context.Context, id string) (*Report, error) {
	q, err := db.GetResearch(ctx, id)
	if err != nil {
		return nil, err
	}
	steps, err := db.GetSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	profiles, err := db.GetProfiles(ctx, id)
	if err != nil {
		return nil, err
	}
	insights, err := db.GetInsights(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Report{ResearchQuery: *q, Steps: steps, Profiles: profiles, Insights: insights}, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
