package student

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"rollbook/internal/metrics"
	"rollbook/internal/store"
)

const searchLimit = 5

var validate = validator.New()

// Store is the persistence surface the service needs. *Repository implements
// it; tests substitute an in-memory fake.
type Store interface {
	Insert(ctx context.Context, in Input) (Student, bool, error)
	List(ctx context.Context) ([]Student, error)
	SearchByMatric(ctx context.Context, query string, limit int) ([]Student, error)
	ExistingMatrics(ctx context.Context, matrics []string) ([]string, error)
	BulkInsert(ctx context.Context, ins []Input) (int, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// Cache invalidates and serves prerendered view data. May be nil.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) bool
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
}

// Service coordinates student management.
type Service struct {
	store   Store
	cache   Cache
	listTTL time.Duration
}

// NewService creates a service backed by a store. cache may be nil, in which
// case list views are always rebuilt from the store.
func NewService(st Store, cache Cache, listTTL time.Duration) *Service {
	return &Service{store: st, cache: cache, listTTL: listTTL}
}

// Create validates and registers a single student.
func (s *Service) Create(ctx context.Context, in Input) (Student, error) {
	in = trimInput(in)
	if err := validate.Struct(in); err != nil {
		return Student{}, fmt.Errorf("%w: all four fields are required", ErrInvalid)
	}
	created, inserted, err := s.store.Insert(ctx, in)
	if err != nil {
		return Student{}, fmt.Errorf("insert student: %w", err)
	}
	if !inserted {
		return Student{}, ErrDuplicateMatric
	}
	s.invalidate(ctx)
	return created, nil
}

// List returns all registered students, served from the view cache when
// fresh.
func (s *Service) List(ctx context.Context) ([]Student, error) {
	var cached []Student
	if s.cache != nil && s.cache.GetJSON(ctx, store.KeyStudentList, &cached) {
		return cached, nil
	}
	res, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetJSON(ctx, store.KeyStudentList, res, s.listTTL)
	}
	return res, nil
}

// Delete removes a student by id, best-effort. Failures are logged so the
// admin can keep working with the page.
func (s *Service) Delete(ctx context.Context, id string) {
	if err := s.store.Delete(ctx, id); err != nil {
		log.Printf("delete student %s failed: %v", id, err)
		return
	}
	s.invalidate(ctx)
}

// Search returns up to five students whose matric number contains the query.
// Queries shorter than two characters and store errors both yield an empty
// result; a failed typeahead must never break the form around it.
func (s *Service) Search(ctx context.Context, query string) []Student {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil
	}
	res, err := s.store.SearchByMatric(ctx, query, searchLimit)
	if err != nil {
		log.Printf("student search %q failed: %v", query, err)
		return nil
	}
	return res
}

// Count returns the total number of students.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// ImportResult reports the outcome of a bulk import.
type ImportResult struct {
	Inserted       int
	Skipped        int
	SkippedMatrics []string
	RowErrors      []string
}

// Message renders the result the way the upload page shows it.
func (r ImportResult) Message() string {
	msg := fmt.Sprintf("Successfully uploaded %d students. %d duplicates skipped.", r.Inserted, r.Skipped)
	if len(r.SkippedMatrics) > 0 {
		msg += " Skipped: " + strings.Join(r.SkippedMatrics, ", ")
	}
	return msg
}

// BulkCreate validates and inserts a batch of previously parsed rows.
// Invalid rows are collected as indexed errors and do not abort the batch;
// rows whose matric number already exists are skipped and reported.
func (s *Service) BulkCreate(ctx context.Context, rows []Input) (ImportResult, error) {
	var res ImportResult
	var valid []Input
	for i, row := range rows {
		row = trimInput(row)
		if err := validate.Struct(row); err != nil {
			res.RowErrors = append(res.RowErrors, fmt.Sprintf("Row %d: Invalid data", i+1))
			continue
		}
		valid = append(valid, row)
	}
	if len(valid) == 0 {
		return res, ErrNoValidRows
	}

	matrics := make([]string, len(valid))
	for i, row := range valid {
		matrics[i] = row.MatricNumber
	}
	existing, err := s.store.ExistingMatrics(ctx, matrics)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrBulkWrite, err)
	}
	existingSet := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		existingSet[m] = struct{}{}
	}

	var toCreate []Input
	for _, row := range valid {
		if _, dup := existingSet[row.MatricNumber]; dup {
			res.SkippedMatrics = append(res.SkippedMatrics, row.MatricNumber)
			continue
		}
		toCreate = append(toCreate, row)
	}
	if len(toCreate) == 0 {
		return res, ErrAllDuplicates
	}

	inserted, err := s.store.BulkInsert(ctx, toCreate)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrBulkWrite, err)
	}
	res.Inserted = inserted
	res.Skipped = len(valid) - inserted
	metrics.StudentsImported.Add(float64(inserted))
	s.invalidate(ctx)
	return res, nil
}

// invalidate drops cached views that show student data. Deleting a student
// also removes their attendance via the cascade, so those views go too.
func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, store.KeyStudentList, store.KeyDashboardStats, store.KeyAttendanceList)
	}
}

func trimInput(in Input) Input {
	in.FullName = strings.TrimSpace(in.FullName)
	in.MatricNumber = strings.TrimSpace(in.MatricNumber)
	in.Department = strings.TrimSpace(in.Department)
	in.Level = strings.TrimSpace(in.Level)
	return in
}
