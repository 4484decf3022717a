// Package repo is the SQLite record gateway. Every read returns the
// collection already ordered the way the feed and story callers expect.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sitefeed/internal/domain"
)

// Repo reads skip rows that fail to decode, logging each one at warn, so a
// single bad record never empties its collection.
type Repo struct {
	DB     *sql.DB
	Logger *slog.Logger
}

var ErrNotFound = errors.New("not found")

// decodeError names the column of a stored row that could not be read back.
type decodeError struct {
	Kind  string
	ID    string
	Field string
	Err   error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Kind, e.ID, e.Field, e.Err)
}

func (e *decodeError) Unwrap() error { return e.Err }

func badField(kind, id, field string, err error) error {
	return &decodeError{Kind: kind, ID: id, Field: field, Err: err}
}

func (r Repo) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r Repo) skipRow(kind string, err error) {
	attrs := []any{"kind", kind}
	var de *decodeError
	if errors.As(err, &de) {
		attrs = append(attrs, "id", de.ID, "field", de.Field, "error", de.Err)
	} else {
		attrs = append(attrs, "error", err)
	}
	r.logger().Warn("skipping malformed row", attrs...)
}

const dateLayout = "2006-01-02"

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const projectColumns = `id,code,COALESCE(client_code,''),COALESCE(client_name,''),COALESCE(description,''),status,estimate_amount,final_cost,final_revenue,profit_margin,created_at,updated_at`

func scanProject(row scanner) (domain.Project, error) {
	var (
		p                                    domain.Project
		estimate, finalCost, revenue, margin sql.NullFloat64
		createdAt, updatedAt                 string
	)
	err := row.Scan(&p.ID, &p.Code, &p.ClientCode, &p.ClientName, &p.Description, &p.Status,
		&estimate, &finalCost, &revenue, &margin, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.EstimateAmount = floatPtr(estimate)
	p.FinalCost = floatPtr(finalCost)
	p.FinalRevenue = floatPtr(revenue)
	p.ProfitMargin = floatPtr(margin)
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return p, badField("project", p.ID, "created_at", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return p, badField("project", p.ID, "updated_at", err)
	}
	return p, nil
}

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO projects(id,code,client_code,client_name,description,status,estimate_amount,final_cost,final_revenue,profit_margin,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Code, nullable(p.ClientCode), nullable(p.ClientName), nullable(p.Description), p.Status,
		nullableFloat(p.EstimateAmount), nullableFloat(p.FinalCost), nullableFloat(p.FinalRevenue), nullableFloat(p.ProfitMargin),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	return err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	return scanProject(r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id))
}

func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			r.skipRow("project", err)
			continue
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// CountProjects reports how many projects the workspace holds.
func (r Repo) CountProjects(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&n)
	return n, err
}

// InTx runs fn inside a transaction, committing only when fn succeeds.
func (r Repo) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableDate(v *time.Time) any {
	if v == nil {
		return nil
	}
	return formatDate(*v)
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid || v.String == "" {
		return nil
	}
	s := v.String
	return &s
}

func formatDate(t time.Time) string { return t.Format(dateLayout) }

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

// parseDate reads a calendar date as UTC midnight. Full timestamps are
// accepted too so hand-edited rows still load.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}

func optionalDate(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := parseDate(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
