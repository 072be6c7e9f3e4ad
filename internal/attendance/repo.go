package attendance

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Repository persists attendance in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertForDay records a check-in for the calendar day of now. Returns false
// when the student already has a row for that day; the (student_id, day)
// unique constraint makes the attempt atomic, so two concurrent check-ins
// cannot both land.
func (r *Repository) InsertForDay(ctx context.Context, studentID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (id, student_id, occurred_at, day)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id, day) DO NOTHING
	`, uuid.NewString(), studentID, now, dayOf(now))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// List returns check-ins joined with their student, newest first. An empty
// query returns everything up to limit; otherwise rows whose student name or
// matric number contains the query.
func (r *Repository) List(ctx context.Context, query string, limit int) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.occurred_at, s.full_name, s.matric_number, s.department, s.level
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		WHERE $1 = '' OR s.full_name ILIKE '%' || $1 || '%' OR s.matric_number ILIKE '%' || $1 || '%'
		ORDER BY a.occurred_at DESC
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// AllNewestFirst returns the full attendance history joined with students.
func (r *Repository) AllNewestFirst(ctx context.Context) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.occurred_at, s.full_name, s.matric_number, s.department, s.level
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		ORDER BY a.occurred_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Delete removes one row by id. Returns false when no row matched.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteAll removes every attendance row.
func (r *Repository) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM attendance`)
	return err
}

// CountForDay counts check-ins on the calendar day of now.
func (r *Repository) CountForDay(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance WHERE day = $1`, dayOf(now)).Scan(&n)
	return n, err
}

// Count returns the total number of attendance rows.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance`).Scan(&n)
	return n, err
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var res []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.OccurredAt, &e.FullName, &e.MatricNumber, &e.Department, &e.Level); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
