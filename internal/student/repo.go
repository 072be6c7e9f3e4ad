package student

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Repository persists students in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new student. Returns false when the matric number is
// already taken; the unique constraint is the duplicate signal, there is no
// separate existence check.
func (r *Repository) Insert(ctx context.Context, in Input) (Student, bool, error) {
	s := Student{
		ID:           uuid.NewString(),
		MatricNumber: in.MatricNumber,
		FullName:     in.FullName,
		Department:   in.Department,
		Level:        in.Level,
		CreatedAt:    time.Now(),
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO students (id, matric_number, full_name, department, level, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (matric_number) DO NOTHING
	`, s.ID, s.MatricNumber, s.FullName, s.Department, s.Level, s.CreatedAt)
	if err != nil {
		return Student{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Student{}, false, err
	}
	return s, n == 1, nil
}

// GetByMatric returns the student with the exact matric number, or nil when
// absent.
func (r *Repository) GetByMatric(ctx context.Context, matric string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, matric_number, full_name, department, level, created_at
		FROM students WHERE matric_number = $1
	`, matric)
	var s Student
	if err := row.Scan(&s.ID, &s.MatricNumber, &s.FullName, &s.Department, &s.Level, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// List returns all students, newest first.
func (r *Repository) List(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, matric_number, full_name, department, level, created_at
		FROM students ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.MatricNumber, &s.FullName, &s.Department, &s.Level, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// SearchByMatric returns up to limit students whose matric number contains
// the query as a substring.
func (r *Repository) SearchByMatric(ctx context.Context, query string, limit int) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, matric_number, full_name, department, level, created_at
		FROM students
		WHERE matric_number LIKE '%' || $1 || '%'
		ORDER BY matric_number
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.MatricNumber, &s.FullName, &s.Department, &s.Level, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// ExistingMatrics returns which of the candidate matric numbers are already
// registered.
func (r *Repository) ExistingMatrics(ctx context.Context, matrics []string) ([]string, error) {
	if len(matrics) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT matric_number FROM students WHERE matric_number = ANY($1)
	`, matrics)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// BulkInsert writes a batch of students in one statement, skipping rows whose
// matric number already exists. Returns the number of rows actually written.
func (r *Repository) BulkInsert(ctx context.Context, ins []Input) (int, error) {
	if len(ins) == 0 {
		return 0, nil
	}
	query := `INSERT INTO students (id, matric_number, full_name, department, level, created_at) VALUES `
	args := make([]any, 0, len(ins)*6)
	now := time.Now()
	for i, in := range ins {
		if i > 0 {
			query += ", "
		}
		base := i * 6
		query += placeholders(base+1, 6)
		args = append(args, uuid.NewString(), in.MatricNumber, in.FullName, in.Department, in.Level, now)
	}
	query += ` ON CONFLICT (matric_number) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Delete removes a student by id; attendance rows cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	return err
}

// DeleteAll removes every student.
func (r *Repository) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM students`)
	return err
}

// Count returns the total number of students.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&n)
	return n, err
}

func placeholders(start, n int) string {
	out := "("
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ","
		}
		out += "$" + strconv.Itoa(start+i)
	}
	return out + ")"
}
